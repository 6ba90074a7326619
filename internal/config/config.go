// Package config loads the engine's tunable knobs from a YAML file, the
// same way the teacher's internal/config/local_config.go reads its own
// config.yaml directly with yaml.v3 rather than always going through a
// viper singleton.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// EngineConfig is the subset of engine tuning that changes how the
// storage and planning layers behave, loaded once at startup.
type EngineConfig struct {
	// BTreeOrder is the fanout setting for the arena B+Tree index
	// (internal/index/btree). It is loaded but not read by any package:
	// row stores build their trees with btree.DefaultOrder.
	BTreeOrder int `yaml:"btree-order"`
	// PlanCacheSize bounds the LRU plan cache in internal/planctx.
	PlanCacheSize int `yaml:"plan-cache-size"`
	// HashJoinThreshold is a row-count threshold for join selection. It is
	// loaded but not read by any package: physical conversion picks a join
	// algorithm without consulting a row-count threshold.
	HashJoinThreshold int `yaml:"hash-join-threshold"`
}

// DefaultEngineConfig returns the defaults used when no config file is
// present. BTreeOrder and PlanCacheSize equal btree.DefaultOrder and
// planctx.DefaultPlanCacheSize.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		BTreeOrder:        64,
		PlanCacheSize:     256,
		HashJoinThreshold: 16,
	}
}

// Load reads and parses an engine config file. Returns the defaults
// (not an error) if the file doesn't exist, matching LoadLocalConfig's
// "missing file is not fatal" contract in the teacher.
func Load(path string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
