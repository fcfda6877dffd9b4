package main

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// fileConfig mirrors the subset of pool.Config that execpool.yaml may
// override. Zero values mean "not set" so CLI flags (which carry their
// own defaults) win unless the file says otherwise.
type fileConfig struct {
	Policy      string `koanf:"policy"`
	MinWorkers  int    `koanf:"min_workers"`
	MaxWorkers  int    `koanf:"max_workers"`
	InitWorkers int    `koanf:"init_workers"`
}

// loadFileConfig reads path if it exists and unmarshals it into a
// fileConfig. A missing file is not an error: the CLI flags stand on
// their own.
func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return cfg, fmt.Errorf("execpool-demo: loading %s: %w", path, err)
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("execpool-demo: parsing %s: %w", path, err)
	}
	return cfg, nil
}
