package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	APIToken       string
	HTTPListenAddr string
	MetricsAddr    string
	LogLevel       string
	ServiceName    string
	AllowedOrigins []string

	DBDriver         string
	DBHost           string
	DBPort           string
	DBUser           string
	DBPassword       string
	DBName           string
	DatabaseURL      string
	DBPoolSize       int
	DBAcquireTimeout time.Duration

	// DBTLSCACert, DBTLSCert and DBTLSKey enable TLS towards a MySQL server.
	DBTLSCACert     string
	DBTLSCert       string
	DBTLSKey        string
	DBTLSServerName string

	RateLimitEnabled bool
	RateLimitStorage string
	RateLimitDefault string

	PasswordScheme      string
	PasswordBcryptCost  int
	PasswordMinStrength int
}

// Load reads configuration from the environment. A dotenv file named by
// MAIL_API_ENV_FILE (or ./.env when present) is applied first; variables
// already set in the environment win.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	poolSize, err := getEnvInt("MAIL_DB_POOL_SIZE", 10)
	if err != nil {
		return nil, err
	}
	acquireTimeout, err := getEnvDuration("MAIL_DB_ACQUIRE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	bcryptCost, err := getEnvInt("MAIL_PASSWORD_BCRYPT_COST", 12)
	if err != nil {
		return nil, err
	}
	minStrength, err := getEnvInt("MAIL_PASSWORD_MIN_SCORE", 0)
	if err != nil {
		return nil, err
	}
	rateLimitEnabled, err := getEnvBool("MAIL_API_RATE_LIMIT_ENABLED", true)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		APIToken:       strings.TrimSpace(os.Getenv("MAIL_API_TOKEN")),
		HTTPListenAddr: getEnv("MAIL_API_LISTEN_ADDR", ":5000"),
		MetricsAddr:    getEnv("MAIL_API_METRICS_ADDR", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		ServiceName:    getEnv("SERVICE_NAME", "mail-api"),
		AllowedOrigins: splitList(getEnv("MAIL_API_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost"), ","),

		DBDriver:         strings.ToLower(getEnv("MAIL_DB_DRIVER", DriverMySQL)),
		DBHost:           getEnv("MAIL_MYSQL_HOST", "mariadb"),
		DBPort:           getEnv("MAIL_MYSQL_PORT", "3306"),
		DBUser:           getEnv("MAIL_MYSQL_USER", "mailu_api"),
		DBPassword:       os.Getenv("MAIL_MYSQL_PASSWORD"),
		DBName:           getEnv("MAIL_MYSQL_DB", "mailu"),
		DatabaseURL:      getEnv("MAIL_DATABASE_URL", ""),
		DBPoolSize:       poolSize,
		DBAcquireTimeout: acquireTimeout,

		DBTLSCACert:     getEnv("MAIL_MYSQL_TLS_CA_CERT", ""),
		DBTLSCert:       getEnv("MAIL_MYSQL_TLS_CERT", ""),
		DBTLSKey:        getEnv("MAIL_MYSQL_TLS_KEY", ""),
		DBTLSServerName: getEnv("MAIL_MYSQL_TLS_SERVER_NAME", ""),

		RateLimitEnabled: rateLimitEnabled,
		RateLimitStorage: getEnv("MAIL_API_RATE_LIMIT_STORAGE", "memory://"),
		RateLimitDefault: getEnv("MAIL_API_RATE_LIMIT_DEFAULT", "200 per day;50 per hour"),

		PasswordScheme:      getEnv("MAIL_PASSWORD_SCHEME", "bcrypt-sha256"),
		PasswordBcryptCost:  bcryptCost,
		PasswordMinStrength: minStrength,
	}

	return cfg, nil
}

// Validate checks that required fields are set. The server must refuse to
// start without an API token, and without a password for networked databases.
func (c *Config) Validate() error {
	var missing []string
	if c.APIToken == "" {
		missing = append(missing, "MAIL_API_TOKEN")
	}
	switch c.DBDriver {
	case DriverMySQL, DriverPostgres:
		if c.DBPassword == "" && c.DatabaseURL == "" {
			missing = append(missing, "MAIL_MYSQL_PASSWORD")
		}
	case DriverSQLite:
		if c.DatabaseURL == "" {
			missing = append(missing, "MAIL_DATABASE_URL")
		}
	default:
		return fmt.Errorf("unsupported MAIL_DB_DRIVER %q", c.DBDriver)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	if c.DBPoolSize < 1 {
		return fmt.Errorf("MAIL_DB_POOL_SIZE must be at least 1")
	}
	if c.DBAcquireTimeout <= 0 {
		return fmt.Errorf("MAIL_DB_ACQUIRE_TIMEOUT must be positive")
	}
	if c.PasswordMinStrength < 0 || c.PasswordMinStrength > 4 {
		return fmt.Errorf("MAIL_PASSWORD_MIN_SCORE must be between 0 and 4")
	}
	if (c.DBTLSCert == "") != (c.DBTLSKey == "") {
		return fmt.Errorf("MAIL_MYSQL_TLS_CERT and MAIL_MYSQL_TLS_KEY must be set together")
	}
	return nil
}

// DSN returns the driver-specific data source name. MAIL_DATABASE_URL
// overrides the individual MAIL_MYSQL_* fields.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	switch c.DBDriver {
	case DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.DBUser, c.DBPassword),
			Host:   net.JoinHostPort(c.DBHost, c.DBPort),
			Path:   "/" + c.DBName,
		}
		return u.String()
	default:
		mc := mysql.NewConfig()
		mc.User = c.DBUser
		mc.Passwd = c.DBPassword
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.DBHost, c.DBPort)
		mc.DBName = c.DBName
		mc.ParseTime = true
		if c.DBTLSCACert != "" || c.DBTLSCert != "" {
			mc.TLSConfig = MySQLTLSConfigName
		}
		return mc.FormatDSN()
	}
}

func loadEnvFile() error {
	path := os.Getenv("MAIL_API_ENV_FILE")
	if path == "" {
		path = ".env"
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
