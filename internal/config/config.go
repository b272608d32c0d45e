package config // package config loads application configuration from environment variables

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration values.  It is built once by
// Load at process start and passed by value to the components that need
// it; nothing below cmd/ reads the environment directly.
type Config struct {
	Env           string        // application environment (e.g. "dev", "prod")
	Port          string        // HTTP port to listen on
	LogLevel      string        // logrus level name
	DBDriver      string        // "mysql" or "sqlite3"
	DBUser        string        // database username
	DBPass        string        // database password (optional)
	DBHost        string        // database host address
	DBPort        string        // database port number
	DBName        string        // database name
	DBPath        string        // sqlite3 file path
	JWTSecret     string        // secret used to sign tokens; required
	TokenTTL      time.Duration // identity token lifetime
	BcryptCost    int           // bcrypt cost for password hashing
	CORSOrigins   []string      // allowed CORS origins
	AMQPURL       string        // broker for audit events; empty disables publishing
	AuditConsumer bool          // run the audit log consumer in-process
	AuditLogPath  string        // file the audit consumer appends to
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables that are missing or malformed are all
// reported in one error.
func Load() (Config, error) {
	var problems []string

	cfg := Config{
		Env:           envStr("APP_ENV", "dev"),
		Port:          envStr("APP_PORT", "5000"),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		DBDriver:      strings.ToLower(envStr("DB_DRIVER", "mysql")),
		DBUser:        os.Getenv("DB_USER"),
		DBPass:        os.Getenv("DB_PASS"),
		DBHost:        envStr("DB_HOST", "localhost"),
		DBPort:        envStr("DB_PORT", "3306"),
		DBName:        os.Getenv("DB_NAME"),
		DBPath:        envStr("DB_PATH", "camera.db"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		CORSOrigins:   splitList(envStr("CORS_ORIGINS", "*")),
		AMQPURL:       envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		AuditConsumer: envBool("AUDIT_CONSUMER", false),
		AuditLogPath:  envStr("AUDIT_LOG_PATH", "logs/audit.log"),
	}

	if cfg.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}

	ttl, err := time.ParseDuration(envStr("TOKEN_TTL", "24h"))
	if err != nil || ttl <= 0 {
		problems = append(problems, fmt.Sprintf("invalid TOKEN_TTL: %q", os.Getenv("TOKEN_TTL")))
	}
	cfg.TokenTTL = ttl

	cost, err := strconv.Atoi(envStr("BCRYPT_COST", "10"))
	if err != nil {
		problems = append(problems, fmt.Sprintf("invalid int for BCRYPT_COST: %q", os.Getenv("BCRYPT_COST")))
	}
	cfg.BcryptCost = cost

	switch cfg.DBDriver {
	case "mysql":
		if cfg.DBUser == "" {
			problems = append(problems, "DB_USER is required for mysql")
		}
		if cfg.DBName == "" {
			problems = append(problems, "DB_NAME is required for mysql")
		}
	case "sqlite3":
	default:
		problems = append(problems, fmt.Sprintf("unsupported DB_DRIVER: %q", cfg.DBDriver))
	}

	if len(problems) > 0 {
		return Config{}, fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

// IsDev reports whether the app runs in a development environment.
func (c Config) IsDev() bool {
	return c.Env == "" || c.Env == "dev" || c.Env == "development"
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
