package config // package config loads application configuration from environment variables

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env            string // application environment (dev, prod)
	Port           string // HTTP port to listen on
	DBUser         string
	DBPass         string // optional
	DBHost         string
	DBPort         string
	DBName         string
	DBAutoMigrate  bool // create tables on start
	JWTSecret      string
	AccessTTLMin   int // access token TTL in minutes
	RefreshTTLDays int // refresh token TTL in days
	BcryptCost     int

	RentalCredits       int           // credits charged per rental
	SignupCredits       int           // credits granted on signup
	RentalMaxWindow     time.Duration // longest rental
	RentalDefaultWindow time.Duration // rental length when no end time is given
	ExpirySweepInterval time.Duration // 0 disables the background sweeper

	LogLevel  string
	LogFormat string // text | json
	LogFile   string // optional rotating file

	CORSOrigins    []string
	EventsEnabled  bool
	RentalEventLog string // audit log written by the event consumer
}

// Load reads configuration values from environment variables. Required
// variables are enforced by must() and a missing one stops the process.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		DBAutoMigrate:  envBool("DB_AUTO_MIGRATE", false),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:     envInt("BCRYPT_COST", 10),

		RentalCredits:       envInt("RENTAL_CREDITS", 50),
		SignupCredits:       envInt("SIGNUP_CREDITS", 200),
		RentalMaxWindow:     envDur("RENTAL_MAX_WINDOW", 48*time.Hour),
		RentalDefaultWindow: envDur("RENTAL_DEFAULT_WINDOW", 24*time.Hour),
		ExpirySweepInterval: envDur("RENTAL_EXPIRY_SWEEP_INTERVAL", 0),

		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: envStr("LOG_FORMAT", "text"),
		LogFile:   os.Getenv("LOG_FILE"),

		CORSOrigins:    envList("CORS_ORIGINS", "*"),
		EventsEnabled:  envBool("EVENTS_ENABLED", true),
		RentalEventLog: envStr("RENTAL_EVENT_LOG", "logs/rental.log"),
	}
}

// must retrieves the value of a required environment variable.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
