package config

import (
	"os"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Index   IndexConfig   `yaml:"index"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

type IndexConfig struct {
	Workers   int `yaml:"workers"`    // partitions, one per worker (0 = GOMAXPROCS)
	Degree    int `yaml:"degree"`     // btree degree of each partition
	ScanLimit int `yaml:"scan_limit"` // default bound for scans issued by tools
}

type StorageConfig struct {
	Path      string `yaml:"path"`
	CacheSize int    `yaml:"cache_size"` // item read cache entries
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// WorkersEnv overrides index.workers when set to a positive integer.
const WorkersEnv = "SLABINDEX_WORKERS"

func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Index: IndexConfig{
			Degree:    32,
			ScanLimit: 100,
		},
		Storage: StorageConfig{
			Path:      "slabindex_data",
			CacheSize: 4096,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}

	if configPath == "" {
		for _, p := range []string{"configs/slabindex.yaml", "slabindex.yaml"} {
			data, err := os.ReadFile(p)
			if err == nil {
				if err := yaml.Unmarshal(data, cfg); err != nil {
					return cfg, err
				}
				applyDefaults(cfg)
				return cfg, nil
			}
		}
		applyDefaults(cfg)
		return cfg, nil // no file found: use defaults
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		applyDefaults(cfg)
		return cfg, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if env := os.Getenv(WorkersEnv); env != "" {
		if val, err := strconv.Atoi(env); err == nil && val > 0 {
			cfg.Index.Workers = val
		}
	}
	if cfg.Index.Workers <= 0 {
		cfg.Index.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Index.Workers < 1 { // GOMAXPROCS should always give >= 1, but in case
		cfg.Index.Workers = 1
	}
	if cfg.Index.Degree < 2 {
		cfg.Index.Degree = 32
	}
	if cfg.Index.ScanLimit <= 0 {
		cfg.Index.ScanLimit = 100
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "slabindex_data"
	}
	if cfg.Storage.CacheSize <= 0 {
		cfg.Storage.CacheSize = 4096
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
