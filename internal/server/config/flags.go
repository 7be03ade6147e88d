package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/farmgate/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g. ":3000")
//	-g string   gRPC bind address (e.g. ":50051")
//	-d string   PostgreSQL DSN
//	-e string   environment: development, production, test
//	-o int      OTP validity, minutes
//	-t int      session inactive timeout, hours
//	-l int      OTP attempts allowed per window
//	-r string   Redis address for the shared limiter
//
// Only these flags are looked at; everything else on the command line is
// filtered out first with flagx.FilterArgs.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-d", "-e", "-o", "-t", "-l", "-r"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port to run server")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.Environment, "e", config.Environment, "environment (development, production, test)")

	otpValidity := fs.Int("o", int(config.OTPValidityDuration.Minutes()), "otp validity (in minutes)")
	inactiveTimeout := fs.Int("t", int(config.SessionInactiveTimeout.Hours()), "session inactive timeout (in hours)")

	fs.IntVar(&config.OTPAttemptLimit, "l", config.OTPAttemptLimit, "otp attempts per window")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.OTPValidityDuration = time.Duration(*otpValidity) * time.Minute
	config.SessionInactiveTimeout = time.Duration(*inactiveTimeout) * time.Hour
}
