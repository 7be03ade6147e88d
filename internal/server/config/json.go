package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/farmgate/internal/flagx"
	"github.com/dmitrijs2005/farmgate/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration. Durations accept
// "10m"-style strings or integer nanoseconds. Absent fields leave the current
// value untouched.
type JsonConfig struct {
	EndpointAddrHTTP string `json:"endpoint_addr_http"`
	EndpointAddrGRPC string `json:"endpoint_addr_grpc"`
	DatabaseDSN      string `json:"database_dsn"`
	Environment      string `json:"environment"`
	SiteName         string `json:"site_name"`

	OTPValidityDuration          *timex.Duration `json:"otp_validity_duration"`
	SessionInactiveTimeout       *timex.Duration `json:"session_inactive_timeout"`
	SessionActivityCheckInterval *timex.Duration `json:"session_activity_check_interval"`
	OTPAttemptLimit              int             `json:"otp_attempt_limit"`
	OTPAttemptWindow             *timex.Duration `json:"otp_attempt_window"`
	CleanupInterval              *timex.Duration `json:"cleanup_interval"`

	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`

	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUser     string `json:"smtp_user"`
	SMTPPassword string `json:"smtp_password"`
	SMTPFrom     string `json:"smtp_from"`

	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
}

// parseJson loads the file named by -c / -config, if any, and overlays it on
// config. An unreadable file or invalid JSON panics: a broken config file is a
// deployment error that must stop startup.
func parseJson(config *Config) {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	overlay(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	overlay(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	overlay(&config.DatabaseDSN, c.DatabaseDSN)
	overlay(&config.Environment, c.Environment)
	overlay(&config.SiteName, c.SiteName)

	if c.OTPValidityDuration != nil {
		config.OTPValidityDuration = c.OTPValidityDuration.Duration
	}
	if c.SessionInactiveTimeout != nil {
		config.SessionInactiveTimeout = c.SessionInactiveTimeout.Duration
	}
	if c.SessionActivityCheckInterval != nil {
		config.SessionActivityCheckInterval = c.SessionActivityCheckInterval.Duration
	}
	if c.OTPAttemptWindow != nil {
		config.OTPAttemptWindow = c.OTPAttemptWindow.Duration
	}
	if c.CleanupInterval != nil {
		config.CleanupInterval = c.CleanupInterval.Duration
	}
	overlay(&config.OTPAttemptLimit, c.OTPAttemptLimit)

	overlay(&config.RedisAddr, c.RedisAddr)
	overlay(&config.RedisPassword, c.RedisPassword)
	overlay(&config.RedisDB, c.RedisDB)

	overlay(&config.SMTPHost, c.SMTPHost)
	overlay(&config.SMTPPort, c.SMTPPort)
	overlay(&config.SMTPUser, c.SMTPUser)
	overlay(&config.SMTPPassword, c.SMTPPassword)
	overlay(&config.SMTPFrom, c.SMTPFrom)

	overlay(&config.S3RootUser, c.S3RootUser)
	overlay(&config.S3RootPassword, c.S3RootPassword)
	overlay(&config.S3Bucket, c.S3Bucket)
	overlay(&config.S3Region, c.S3Region)
	overlay(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func overlay[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
