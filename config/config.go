package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	TokenTTLHours      int
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Registration throttling per client IP (needs Redis); <= 0 disables it
	RegisterMaxPerIPPerDay int
	// Require a captcha answer on registration
	CaptchaEnabled bool
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for the streak view cache and token revocation; empty host disables it
	RedisHost             string
	RedisPort             int
	RedisDB               int
	RedisPassword         string
	StreakCacheTTLSeconds int
	// Gin framework configuration
	GinMode string
	GinPath string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: config/config.json -> defaults -> environment variable overrides
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Fatalf("invalid config/config.json: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// SetForTest installs c as the loaded configuration after filling defaults.
func SetForTest(c AppConfig) {
	applyDefaults(&c)
	cfg = c
	loaded = true
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads a JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	if app, ok := raw["app"].(map[string]any); ok {
		setString(&out.AppPort, app, "AppPort")
		setString(&out.JWTSecret, app, "JWTSecret")
		setInt(&out.TokenTTLHours, app, "TokenTTLHours")
		setInt(&out.RateLimitPerMinute, app, "RateLimitPerMinute")
		setStrings(&out.AllowedOrigins, app, "AllowedOrigins")
		setInt(&out.RegisterMaxPerIPPerDay, app, "RegisterMaxPerIPPerDay")
		if b, ok := app["CaptchaEnabled"].(bool); ok {
			out.CaptchaEnabled = b
		}
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		setString(&out.GinMode, g, "Mode")
		setString(&out.GinPath, g, "LogPath")
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		setString(&out.DBDriver, dbs, "Driver")
		setString(&out.DatabaseURI, dbs, "DatabaseURI")
		setString(&out.DBHost, dbs, "DBHost")
		setString(&out.DBPort, dbs, "DBPort")
		setString(&out.DBUser, dbs, "DBUser")
		setString(&out.DBPassword, dbs, "DBPassword")
		setString(&out.DBName, dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		setString(&out.RedisHost, rds, "RedisHost")
		setInt(&out.RedisPort, rds, "RedisPort")
		setInt(&out.RedisDB, rds, "RedisDB")
		setString(&out.RedisPassword, rds, "RedisPassword")
		setInt(&out.StreakCacheTTLSeconds, rds, "StreakCacheTTLSeconds")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		setString(&out.LogLevel, lg, "Level")
		setString(&out.LogPath, lg, "Path")
		setString(&out.GinMode, lg, "GinMode")
		setString(&out.GinPath, lg, "GinPath")
		setInt(&out.LogMaxSizeMB, lg, "MaxSizeMB")
		setInt(&out.LogMaxBackups, lg, "MaxBackups")
		setInt(&out.LogMaxAgeDays, lg, "MaxAgeDays")
		if b, ok := lg["Compress"].(bool); ok {
			out.LogCompress = b
		}
	}

	// Flat keys for backward compatibility; grouped sections win.
	setString(&out.AppPort, raw, "AppPort")
	setString(&out.JWTSecret, raw, "JWTSecret")
	setString(&out.DBDriver, raw, "DBDriver")
	setString(&out.DatabaseURI, raw, "DatabaseURI")
	setString(&out.RedisHost, raw, "RedisHost")
	setString(&out.LogLevel, raw, "LogLevel")
	setString(&out.LogPath, raw, "LogPath")

	return nil
}

// setString copies m[key] into dst when dst is still empty.
func setString(dst *string, m map[string]any, key string) {
	if *dst != "" {
		return
	}
	if s, ok := m[key].(string); ok {
		*dst = s
	}
}

func setInt(dst *int, m map[string]any, key string) {
	if *dst != 0 {
		return
	}
	switch t := m[key].(type) {
	case float64:
		*dst = int(t)
	case int:
		*dst = t
	case json.Number:
		i, _ := t.Int64()
		*dst = int(i)
	}
}

func setStrings(dst *[]string, m map[string]any, key string) {
	if len(*dst) > 0 {
		return
	}
	arr, ok := m[key].([]any)
	if !ok {
		return
	}
	for _, it := range arr {
		if s, ok := it.(string); ok {
			*dst = append(*dst, s)
		}
	}
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 24
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 120
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = defaultPort(c.DBDriver)
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "greenify"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.StreakCacheTTLSeconds == 0 {
		c.StreakCacheTTLSeconds = 300
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

func defaultPort(driver string) string {
	switch strings.ToLower(driver) {
	case "postgres":
		return "5432"
	case "sqlite":
		return ""
	default:
		return "3306"
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("TOKEN_TTL_HOURS", ""); v != "" {
		c.TokenTTLHours = mustParseInt(v)
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CAPTCHA_ENABLED", ""); v != "" {
		c.CaptchaEnabled = v == "true"
	}
	if v := getEnv("REGISTER_MAX_PER_IP_PER_DAY", ""); v != "" {
		c.RegisterMaxPerIPPerDay = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("DB_DRIVER", ""); v != "" {
		c.DBDriver = v
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("STREAK_CACHE_TTL_SECONDS", ""); v != "" {
		c.StreakCacheTTLSeconds = mustParseInt(v)
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
}

// DSN builds the driver specific connection string unless DatabaseURI overrides it.
func (c AppConfig) DSN() string {
	if c.DatabaseURI != "" {
		return c.DatabaseURI
	}
	switch strings.ToLower(c.DBDriver) {
	case "postgres":
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
	case "sqlite":
		return c.DBName + ".db"
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
