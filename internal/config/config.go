package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Host        string `envconfig:"HOST" default:"127.0.0.1"`
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Storage
	FacesDir          string `envconfig:"FACES_DIR" default:"faces"`
	AttendanceFile    string `envconfig:"ATTENDANCE_FILE" default:"attendance.json"`
	LedgerLoadOnStart bool   `envconfig:"LEDGER_LOAD_ON_START" default:"true"`

	// Provider
	ProviderType       string        `envconfig:"FACE_PROVIDER" default:"deepface"`
	DeepFaceURL        string        `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	DeepFaceModel      string        `envconfig:"DEEPFACE_MODEL" default:"Facenet512"`
	DeepFaceDetector   string        `envconfig:"DEEPFACE_DETECTOR" default:"retinaface"`
	DeepFaceTimeout    time.Duration `envconfig:"DEEPFACE_TIMEOUT" default:"30s"`
	DeepFaceRetryCount int           `envconfig:"DEEPFACE_RETRY_COUNT" default:"2"`

	// Matching
	MatchMetric         string  `envconfig:"MATCH_METRIC" default:"cosine"`
	MatchThreshold      float64 `envconfig:"MATCH_THRESHOLD" default:"0"`
	MatchPolicy         string  `envconfig:"MATCH_POLICY" default:"first"`
	ReferenceFacePolicy string  `envconfig:"REFERENCE_FACE_POLICY" default:"first"`

	// Video
	TargetFPS     int `envconfig:"TARGET_FPS" default:"5"`
	Downscale     int `envconfig:"DOWNSCALE" default:"4"`
	ProgressEvery int `envconfig:"PROGRESS_EVERY" default:"10"`
	JPEGQuality   int `envconfig:"JPEG_QUALITY" default:"90"`

	// HTTP
	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Validate checks enum values and sampling parameters.
func (c *Config) Validate() error {
	if err := oneOf("FACE_PROVIDER", c.ProviderType, "deepface", "mock"); err != nil {
		return err
	}
	if err := oneOf("MATCH_METRIC", c.MatchMetric, "cosine", "euclidean", "euclidean_l2"); err != nil {
		return err
	}
	if err := oneOf("MATCH_POLICY", c.MatchPolicy, "first", "best"); err != nil {
		return err
	}
	if err := oneOf("REFERENCE_FACE_POLICY", c.ReferenceFacePolicy, "first", "largest", "single"); err != nil {
		return err
	}

	positive := []struct {
		key   string
		value int
	}{
		{"TARGET_FPS", c.TargetFPS},
		{"DOWNSCALE", c.Downscale},
		{"PROGRESS_EVERY", c.ProgressEvery},
		{"RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", p.key, p.value)
		}
	}

	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("JPEG_QUALITY must be between 1 and 100, got %d", c.JPEGQuality)
	}
	if c.MatchThreshold < 0 {
		return fmt.Errorf("MATCH_THRESHOLD must not be negative, got %v", c.MatchThreshold)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Addr is the listen address for the HTTP shell.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s: unsupported value %q (allowed: %v)", key, value, allowed)
}
