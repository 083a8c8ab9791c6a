package config

import (
	_ "embed"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var modelsYAML []byte

type Config struct {
	Embedding EmbeddingConfig
	Detector  DetectorConfig
	Verifier  VerifierConfig
	Worker    WorkerConfig
	Storage   StorageConfig
	Log       LogConfig
	Telemetry TelemetryConfig
	Web       WebConfig
	Models    ModelsConfig
}

type EmbeddingConfig struct {
	URL string `env:"EMBEDDING_URL" envDefault:"http://localhost:8000"`
}

type DetectorConfig struct {
	Backend   string `env:"DETECTOR_BACKEND" envDefault:"http" validate:"oneof=http dlib"`
	ModelsDir string `env:"DLIB_MODELS_DIR" envDefault:"models"` // dlib model files for the dlib backend
}

type VerifierConfig struct {
	Backend   string  `env:"VERIFIER_BACKEND" envDefault:"http" validate:"oneof=http embedding worker"`
	Model     string  `env:"VERIFY_MODEL" envDefault:"VGG-Face" validate:"required"`
	Threshold float64 `env:"VERIFY_THRESHOLD" validate:"gte=0"` // 0 keeps the capability's own decision
}

type WorkerConfig struct {
	Command string `env:"WORKER_COMMAND" envDefault:"python3"`
	Script  string `env:"WORKER_SCRIPT" envDefault:"python/verify_worker.py"`
}

type StorageConfig struct {
	Backend        string `env:"STORAGE_BACKEND" envDefault:"local" validate:"oneof=local s3"`
	Dir            string `env:"STORAGE_DIR" envDefault:"output_images"`
	DebugRotations bool   `env:"DEBUG_ROTATIONS" envDefault:"true"`
	SaveUploads    bool   `env:"SAVE_UPLOADS" envDefault:"false"`
	S3             S3Config
}

type S3Config struct {
	Region          string `env:"AWS_REGION"`
	Bucket          string `env:"AWS_BUCKET_NAME"`
	Prefix          string `env:"AWS_BUCKET_PREFIX"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Endpoint        string `env:"AWS_S3_ENDPOINT"`
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=trace debug info warn warning error"`
	File  string `env:"LOG_FILE"`
}

type TelemetryConfig struct {
	Endpoint string `env:"OTEL_ENDPOINT"` // tracing is off when empty
}

type WebConfig struct {
	Host           string  `env:"WEB_HOST" envDefault:"0.0.0.0"`
	Port           int     `env:"WEB_PORT" envDefault:"5000" validate:"min=1,max=65535"`
	RateLimit      float64 `env:"WEB_RATE_LIMIT" envDefault:"2" validate:"gte=0"` // verify requests per second per client, 0 disables
	RateBurst      int     `env:"WEB_RATE_BURST" envDefault:"5" validate:"gte=0"`
	AllowedOrigins string  `env:"WEB_ALLOWED_ORIGINS"`
}

type ModelsConfig struct {
	Models map[string]ModelThreshold `yaml:"models"`
}

// ModelThreshold is the distance metric and match threshold of an embedding model.
type ModelThreshold struct {
	Metric    string  `yaml:"metric"`
	Threshold float64 `yaml:"threshold"`
}

// Load reads configuration from environment variables and the embedded model table.
func Load() (*Config, error) {
	var models ModelsConfig
	if err := yaml.Unmarshal(modelsYAML, &models); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded models.yaml: " + err.Error())
	}

	cfg := &Config{Models: models}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks field constraints and backend-specific requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Storage.Backend == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("invalid config: AWS_BUCKET_NAME is required for the s3 storage backend")
	}
	if c.Verifier.Backend == "embedding" {
		if _, ok := c.ModelThreshold(c.Verifier.Model); !ok {
			return fmt.Errorf("invalid config: no threshold known for model %q", c.Verifier.Model)
		}
	}
	return nil
}

// ModelThreshold returns the metric and threshold for a model, if known.
func (c *Config) ModelThreshold(model string) (ModelThreshold, bool) {
	t, ok := c.Models.Models[model]
	return t, ok
}
