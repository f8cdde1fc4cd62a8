// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values.  Each field maps to
// one environment variable.  Required variables are enforced by must()
// and missing values abort startup with a fatal log message.
type Config struct {
	Env            string // application environment (dev/test/prod)
	Port           string // HTTP port to listen on
	DBUser         string
	DBPass         string // optional
	DBHost         string
	DBPort         string
	DBName         string
	JWTSecret      string
	AccessTTLMin   int // access token TTL in minutes
	RefreshTTLDays int // refresh token TTL in days
	BcryptCost     int

	// Booking policy.
	AllowPendingPayment  bool          // accept PENDING_PAYMENT packages when booking
	CancellationCutoff   time.Duration // late-cancellation window; 0 disables
	PublicPackageCredits int           // credits on the pay-later package granted to guests

	// Notification delivery.  Empty SendGridKey selects the console notifier.
	SendGridKey   string
	EmailFromName string
	EmailFromAddr string
}

// Load reads the configuration from the environment.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		AllowPendingPayment:  envBool("BOOKING_ALLOW_PENDING_PAYMENT", true),
		CancellationCutoff:   envDur("BOOKING_CANCELLATION_CUTOFF", 0),
		PublicPackageCredits: envInt("BOOKING_PUBLIC_PACKAGE_CREDITS", 1),

		SendGridKey:   os.Getenv("SENDGRID_API_KEY"),
		EmailFromName: envStr("EMAIL_FROM_NAME", "EME Studio"),
		EmailFromAddr: envStr("EMAIL_FROM_ADDR", "no-reply@eme.studio"),
	}
}

// must retrieves a required environment variable or aborts.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the value to an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
