package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// loadDotEnv is a test seam for godotenv.Load. Variables already present in
// the process environment win over the .env file.
var loadDotEnv = func() error { return godotenv.Load() }

// parseEnv overlays values from the process environment. A missing .env file
// is not an error. Malformed numbers are ignored and the previous value kept.
func parseEnv(c *Config) {
	_ = loadDotEnv()

	setString(&c.Environment, "APP_ENV")
	setString(&c.DatabaseDSN, "DATABASE_URL")
	setString(&c.SiteName, "SITE_NAME")

	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.RedisPassword, "REDIS_PASSWORD")
	setInt(&c.RedisDB, "REDIS_DB")

	setString(&c.SMTPHost, "SMTP_HOST")
	setInt(&c.SMTPPort, "SMTP_PORT")
	setString(&c.SMTPUser, "SMTP_USER")
	setString(&c.SMTPPassword, "SMTP_PASS")
	setString(&c.SMTPFrom, "SMTP_FROM")

	setString(&c.S3RootUser, "S3_ROOT_USER")
	setString(&c.S3RootPassword, "S3_ROOT_PASSWORD")
	setString(&c.S3Bucket, "S3_BUCKET")
	setString(&c.S3Region, "S3_REGION")
	setString(&c.S3BaseEndpoint, "S3_BASE_ENDPOINT")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}
