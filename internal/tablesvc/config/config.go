package config

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type Config struct {
	Port          string
	RateLimit     int
	StoreDriver   string
	MongoURI      string
	HallOfFameDSN string
	NatsURL       string
	NatsToken     string
	JWTSecret     string
	PublicBaseURL string

	MediaEndpoint        string
	MediaRegion          string
	MediaBucket          string
	MediaAccessKeyID     string
	MediaAccessKeySecret string
	MediaPublicBaseURL   string

	CodeActivityWindow time.Duration
	CodeMaxAttempts    int
	JoinToastDuration  time.Duration
	SweepInterval      time.Duration
}

var (
	intDefaults = map[string]int{
		"RATE_LIMIT":        120,
		"CODE_MAX_ATTEMPTS": 20,
	}
	durationDefaults = map[string]time.Duration{
		"CODE_ACTIVITY_WINDOW": 14 * 24 * time.Hour,
		"JOIN_TOAST_DURATION":  3 * time.Second,
		"SWEEP_INTERVAL":       time.Hour,
	}
)

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("TABLE_SERVICE_PORT", "8080")
	v.SetDefault("STORE_DRIVER", DriverMongo)
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:5173")
	v.SetDefault("MEDIA_REGION", "auto")
	for key, def := range intDefaults {
		v.SetDefault(key, def)
	}
	for key, def := range durationDefaults {
		v.SetDefault(key, def)
	}
	return v
}

// Load reads the service configuration from the environment. Invalid
// numbers and durations fall back to their defaults with a warning.
func Load() (Config, error) {
	v := newViper()

	cfg := Config{
		Port:          v.GetString("TABLE_SERVICE_PORT"),
		RateLimit:     positiveInt(v, "RATE_LIMIT"),
		StoreDriver:   v.GetString("STORE_DRIVER"),
		MongoURI:      v.GetString("MONGODB_URI"),
		HallOfFameDSN: v.GetString("HALL_OF_FAME_POSTGRES_URL"),
		NatsURL:       v.GetString("NATS_URL"),
		NatsToken:     v.GetString("NATS_TOKEN"),
		JWTSecret:     v.GetString("JWT_SECRET_KEY"),
		PublicBaseURL: v.GetString("PUBLIC_BASE_URL"),

		MediaEndpoint:        v.GetString("MEDIA_ENDPOINT"),
		MediaRegion:          v.GetString("MEDIA_REGION"),
		MediaBucket:          v.GetString("MEDIA_BUCKET"),
		MediaAccessKeyID:     v.GetString("MEDIA_ACCESS_KEY_ID"),
		MediaAccessKeySecret: v.GetString("MEDIA_ACCESS_KEY_SECRET"),
		MediaPublicBaseURL:   v.GetString("MEDIA_PUBLIC_BASE_URL"),

		CodeActivityWindow: positiveDuration(v, "CODE_ACTIVITY_WINDOW"),
		CodeMaxAttempts:    positiveInt(v, "CODE_MAX_ATTEMPTS"),
		JoinToastDuration:  positiveDuration(v, "JOIN_TOAST_DURATION"),
		SweepInterval:      positiveDuration(v, "SWEEP_INTERVAL"),
	}

	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET_KEY is required")
	}
	switch cfg.StoreDriver {
	case DriverMemory:
	case DriverMongo:
		if cfg.MongoURI == "" {
			return cfg, fmt.Errorf("MONGODB_URI is required for the mongo store driver")
		}
		if cfg.MediaBucket == "" {
			return cfg, fmt.Errorf("MEDIA_BUCKET is required for the mongo store driver")
		}
	default:
		return cfg, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	return cfg, nil
}

// positiveInt returns the value of key, or its default when the value does
// not parse to a positive number.
func positiveInt(v *viper.Viper, key string) int {
	if n := v.GetInt(key); n > 0 {
		return n
	}
	def := intDefaults[key]
	log.Warnf("invalid %s value %q, using %d", key, v.GetString(key), def)
	return def
}

func positiveDuration(v *viper.Viper, key string) time.Duration {
	if d := v.GetDuration(key); d > 0 {
		return d
	}
	def := durationDefaults[key]
	log.Warnf("invalid %s value %q, using %s", key, v.GetString(key), def)
	return def
}
