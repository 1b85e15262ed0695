package notifier

import (
	"os"

	"gopkg.in/yaml.v3"
)

type SMTPConfig struct {
	Addr string `yaml:"addr"`
	From string `yaml:"from"`
}

type CatalogConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type FileConfig struct {
	DB      string        `yaml:"db"`
	SMTP    SMTPConfig    `yaml:"smtp"`
	Catalog CatalogConfig `yaml:"catalog"`

	// ReleaseThresholdHours is the force-email deadline: when the
	// version's origin time is older than this, time-based suppression
	// is ignored for the run. Zero disables the deadline.
	ReleaseThresholdHours float64 `yaml:"release_threshold_hours"`

	// MetricsDir enables the per-run Prometheus textfile when set.
	MetricsDir string `yaml:"metrics_dir"`

	// Primary marks this host as the primary alerting system. A
	// non-primary host treats every run as a no-op.
	Primary *bool `yaml:"primary"`

	Debug  bool `yaml:"debug"`
	NoSend bool `yaml:"no_send"`
}

func LoadConfig(path string) (*FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *FileConfig) IsPrimary() bool {
	if c.Primary == nil {
		return true
	}
	return *c.Primary
}
