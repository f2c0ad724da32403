package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var configSearchPaths = []string{"config.yml", "config/config.yml"}

// Load reads, defaults, and validates the collector configuration. An
// empty path searches the default locations. A .env file, when present,
// is folded into the environment first.
func Load(path string) (*AppConfig, error) {
	_ = godotenv.Load()

	data, err := readConfig(path)
	if err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := applyEnvToggles(&cfg); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func readConfig(path string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		return data, nil
	}
	for _, p := range configSearchPaths {
		if data, err := os.ReadFile(p); err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("no config file found in %v", configSearchPaths)
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Collector.IntervalSeconds == 0 {
		cfg.Collector.IntervalSeconds = 20
	}
	if cfg.Collector.FetchTimeoutSeconds == 0 {
		cfg.Collector.FetchTimeoutSeconds = 30
	}
	if cfg.Collector.DataDir == "" {
		cfg.Collector.DataDir = "data/raw"
	}
	if cfg.Collector.StaticOnFirstCycle == nil {
		yes := true
		cfg.Collector.StaticOnFirstCycle = &yes
	}
	if cfg.NATS.SubjectPrefix == "" {
		cfg.NATS.SubjectPrefix = "gtfs"
	}
}

func applyEnvToggles(cfg *AppConfig) error {
	var err error
	if cfg.Collector.ArchiveRealtimeRaw, err = envBool("ARCHIVE_RAW_PROTOBUF"); err != nil {
		return err
	}
	if cfg.Collector.ArchiveStaticRaw, err = envBool("ARCHIVE_RAW_STATIC_ZIP"); err != nil {
		return err
	}
	return nil
}

func envBool(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", key, v)
	}
	return b, nil
}
