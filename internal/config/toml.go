package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// LoadTOML reads configuration from a TOML file. Load dispatches here
// for any configPath ending in ".toml"; unset fields fall back to
// Default()'s values, same as Load's YAML/viper path does via
// setDefaults. BurntSushi/toml matches TOML keys to Config's Go field
// names case-insensitively since the struct only carries mapstructure
// tags, not toml tags.
func LoadTOML(path string) (*LoadResult, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode TOML config %s: %w", path, err)
	}

	return &LoadResult{
		Config:       cfg,
		ConfigPath:   path,
		UsedDefaults: len(meta.Keys()) == 0,
	}, nil
}
