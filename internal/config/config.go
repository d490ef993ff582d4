package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/imagegate/internal/domain/findings"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres, default mysql
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Gate struct {
		Parallelism  int      `yaml:"parallelism"`
		ScanTimeout  Duration `yaml:"scanTimeout"`
		BuildRetries uint64   `yaml:"buildRetries"`
		ScanRetries  uint64   `yaml:"scanRetries"`
		TempDir      string   `yaml:"tempDir"`
	} `yaml:"gate"`

	Scanners []ScannerConfig `yaml:"scanners"`

	Registry struct {
		Destination string `yaml:"destination"`
		Sign        bool   `yaml:"sign"`
		CosignKey   string `yaml:"cosignKey"`
	} `yaml:"registry"`

	AI struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"ai"`

	APIKeys map[string]string `yaml:"apiKeys"` // tenant -> key, for serve mode
}

// Duration lets YAML carry timeouts as "5m" / "90s" strings
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// ScannerConfig configures one scan connector. Severities overrides the
// scanner's native severity labels onto the shared scale.
type ScannerConfig struct {
	Name       string               `yaml:"name"` // trivy | grype
	ToolImage  string               `yaml:"toolImage"`
	Severities findings.SeverityMap `yaml:"severities"`
	Disabled   bool                 `yaml:"disabled"`
}

// Load reads the YAML config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a config usable without a file (CLI mode, no persistence)
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Gate.Parallelism <= 0 {
		c.Gate.Parallelism = 2
	}
	if c.Gate.ScanTimeout <= 0 {
		c.Gate.ScanTimeout = Duration(10 * time.Minute)
	}
	if c.Gate.TempDir == "" {
		c.Gate.TempDir = "./temp"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if len(c.Scanners) == 0 {
		c.Scanners = []ScannerConfig{{Name: "trivy"}, {Name: "grype"}}
	}
	for i := range c.Scanners {
		c.Scanners[i].Severities = c.Scanners[i].Severities.Normalized()
	}
}

// MySQLDSN builds the MySQL connection string
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds the Postgres connection string
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}
