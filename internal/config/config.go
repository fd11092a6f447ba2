package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Detector   DetectorConfig
	Match      MatchConfig
	Attendance AttendanceConfig
	Storage    StorageConfig
	Retry      RetryConfig
}

type DetectorConfig struct {
	URL          string // face embedding server base URL (e.g. http://localhost:8000)
	Dim          int    // embedding dimension produced by the detector
	MaxImageSize int    // images larger than this (px) are downscaled before detection
}

type MatchConfig struct {
	Threshold float64 // maximum Euclidean distance for a positive match
	ANNCutoff int     // enrolled-vector count above which the HNSW index kicks in
}

type AttendanceConfig struct {
	Cooldown time.Duration // minimum gap between two logged events for one user
}

type StorageConfig struct {
	Backend      string // "file" or "postgres"
	DataDir      string // directory for the file backend
	DatabaseURL  string // PostgreSQL connection URL
	MaxOpenConns int
}

type RetryConfig struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// defaults mirrors the structure of the embedded defaults.yaml file.
type defaults struct {
	Match struct {
		Threshold float64 `yaml:"threshold"`
		ANNCutoff int     `yaml:"ann_cutoff"`
	} `yaml:"match"`
	Attendance struct {
		Cooldown string `yaml:"cooldown"`
	} `yaml:"attendance"`
	Detector struct {
		Dim          int `yaml:"dim"`
		MaxImageSize int `yaml:"max_image_size"`
	} `yaml:"detector"`
	Retry struct {
		MaxAttempts     uint   `yaml:"max_attempts"`
		InitialInterval string `yaml:"initial_interval"`
		MaxInterval     string `yaml:"max_interval"`
	} `yaml:"retry"`
}

// mustDuration parses a duration literal from the embedded defaults file.
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic("invalid duration in embedded defaults.yaml: " + s)
	}
	return d
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable and parses it as a duration ("5m", "30s").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

// envString reads an environment variable with a fallback.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var d defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// Embedded file, so this only happens if the file itself is broken.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Detector: DetectorConfig{
			URL:          os.Getenv("DETECTOR_URL"),
			Dim:          envInt("DETECTOR_DIM", d.Detector.Dim),
			MaxImageSize: envInt("DETECTOR_MAX_IMAGE_SIZE", d.Detector.MaxImageSize),
		},
		Match: MatchConfig{
			Threshold: envFloat("MATCH_THRESHOLD", d.Match.Threshold),
			ANNCutoff: envInt("MATCH_ANN_CUTOFF", d.Match.ANNCutoff),
		},
		Attendance: AttendanceConfig{
			Cooldown: envDuration("ATTENDANCE_COOLDOWN", mustDuration(d.Attendance.Cooldown)),
		},
		Storage: StorageConfig{
			Backend:      envString("STORAGE_BACKEND", "file"),
			DataDir:      envString("DATA_DIR", "data"),
			DatabaseURL:  os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
		},
		Retry: RetryConfig{
			MaxAttempts:     uint(envInt("RETRY_MAX_ATTEMPTS", int(d.Retry.MaxAttempts))),
			InitialInterval: envDuration("RETRY_INITIAL_INTERVAL", mustDuration(d.Retry.InitialInterval)),
			MaxInterval:     envDuration("RETRY_MAX_INTERVAL", mustDuration(d.Retry.MaxInterval)),
		},
	}
}
