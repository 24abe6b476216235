package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/area"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workday"
	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	JWT        JWTConfig
	App        AppConfig
	Attendance AttendanceConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxConns     int32
	MinConns     int32
	QueryTimeout time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration time.Duration
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

// AttendanceConfig holds the organisation-wide attendance policy.
type AttendanceConfig struct {
	UTCOffsetHours   int
	DefaultStart     workday.TimeOfDay
	DefaultEnd       workday.TimeOfDay
	GeofenceRequired bool

	// Shared area used when no area is assigned and none is marked default.
	SharedAreaEnabled bool
	SharedAreaLat     float64
	SharedAreaLng     float64
	SharedAreaRadius  float64
}

// Load reads configuration from the environment. A .env file is loaded when
// present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	maxConns, err := strconv.ParseInt(getEnv("DB_MAX_CONNS", "25"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	minConns, err := strconv.ParseInt(getEnv("DB_MIN_CONNS", "5"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}
	queryTimeout, err := time.ParseDuration(getEnv("DB_QUERY_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_QUERY_TIMEOUT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:         getEnv("DB_HOST", "localhost"),
		Port:         dbPort,
		User:         getEnv("DB_USER", "postgres"),
		Password:     getEnv("DB_PASSWORD", ""),
		Name:         getEnv("DB_NAME", "attendance"),
		SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		MaxConns:     int32(maxConns),
		MinConns:     int32(minConns),
		QueryTimeout: queryTimeout,
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS"),
	}

	// JWT configuration
	accessExpiration, err := time.ParseDuration(getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_EXPIRATION_TIME: %w", err)
	}

	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: accessExpiration,
	}

	// Attendance policy
	attendance, err := loadAttendance()
	if err != nil {
		return nil, err
	}
	config.Attendance = attendance

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadAttendance() (AttendanceConfig, error) {
	var cfg AttendanceConfig
	var err error

	if cfg.UTCOffsetHours, err = strconv.Atoi(getEnv("ORG_UTC_OFFSET_HOURS", strconv.Itoa(workday.DefaultOffsetHours))); err != nil {
		return cfg, fmt.Errorf("invalid ORG_UTC_OFFSET_HOURS: %w", err)
	}
	if cfg.DefaultStart, err = workday.ParseTimeOfDay(getEnv("WORK_START_TIME", "09:00")); err != nil {
		return cfg, fmt.Errorf("invalid WORK_START_TIME: %w", err)
	}
	if cfg.DefaultEnd, err = workday.ParseTimeOfDay(getEnv("WORK_END_TIME", "17:00")); err != nil {
		return cfg, fmt.Errorf("invalid WORK_END_TIME: %w", err)
	}
	if cfg.GeofenceRequired, err = strconv.ParseBool(getEnv("GEOFENCE_REQUIRED", "true")); err != nil {
		return cfg, fmt.Errorf("invalid GEOFENCE_REQUIRED: %w", err)
	}

	lat, lng := os.Getenv("SHARED_AREA_LATITUDE"), os.Getenv("SHARED_AREA_LONGITUDE")
	if lat == "" && lng == "" {
		return cfg, nil
	}
	cfg.SharedAreaEnabled = true
	if cfg.SharedAreaLat, err = strconv.ParseFloat(lat, 64); err != nil {
		return cfg, fmt.Errorf("invalid SHARED_AREA_LATITUDE: %w", err)
	}
	if cfg.SharedAreaLng, err = strconv.ParseFloat(lng, 64); err != nil {
		return cfg, fmt.Errorf("invalid SHARED_AREA_LONGITUDE: %w", err)
	}
	if cfg.SharedAreaRadius, err = strconv.ParseFloat(getEnv("SHARED_AREA_RADIUS_METERS", "100"), 64); err != nil {
		return cfg, fmt.Errorf("invalid SHARED_AREA_RADIUS_METERS: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.JWT.AccessExpiration <= 0 {
		return fmt.Errorf("JWT_ACCESS_EXPIRATION_TIME must be positive")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS must not exceed DB_MAX_CONNS")
	}

	a := c.Attendance
	if a.UTCOffsetHours < -12 || a.UTCOffsetHours > 14 {
		return fmt.Errorf("ORG_UTC_OFFSET_HOURS must be between -12 and 14")
	}
	if a.DefaultEnd.Minutes() <= a.DefaultStart.Minutes() {
		return fmt.Errorf("WORK_END_TIME must be after WORK_START_TIME")
	}
	if a.SharedAreaEnabled {
		if a.SharedAreaLat < -90 || a.SharedAreaLat > 90 {
			return fmt.Errorf("SHARED_AREA_LATITUDE must be between -90 and 90")
		}
		if a.SharedAreaLng < -180 || a.SharedAreaLng > 180 {
			return fmt.Errorf("SHARED_AREA_LONGITUDE must be between -180 and 180")
		}
		if a.SharedAreaRadius <= 0 {
			return fmt.Errorf("SHARED_AREA_RADIUS_METERS must be positive")
		}
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Location returns the organisation's fixed-offset time zone.
func (c *Config) Location() *time.Location {
	return workday.FixedZone(c.Attendance.UTCOffsetHours)
}

// Policy builds the scheduling fallbacks from the attendance settings.
func (c *Config) Policy() schedule.Policy {
	policy := schedule.Policy{
		Location:     c.Location(),
		DefaultStart: c.Attendance.DefaultStart,
		DefaultEnd:   c.Attendance.DefaultEnd,
	}
	if c.Attendance.SharedAreaEnabled {
		policy.SharedArea = &area.Area{
			Name:         "Shared attendance area",
			Latitude:     c.Attendance.SharedAreaLat,
			Longitude:    c.Attendance.SharedAreaLng,
			RadiusMeters: c.Attendance.SharedAreaRadius,
		}
	}
	return policy
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
