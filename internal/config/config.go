package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the config file searched for from the scan root upwards.
const FileName = ".anchor-sentinel.yaml"

type IgnoreRule struct {
	Rule    string `yaml:"rule"`
	Path    string `yaml:"path"`
	Reason  string `yaml:"reason"`
	Expires string `yaml:"expires"`
}

type ExternalTools struct {
	CargoAudit bool `yaml:"cargoAudit"`
	Clippy     bool `yaml:"clippy"`
}

// AnalysisOptions tunes the semantic engines.
type AnalysisOptions struct {
	// ContextTypes are the outer generic names that mark an instruction
	// handler parameter, e.g. Context<Deposit>.
	ContextTypes []string `yaml:"contextTypes"`
	// ContextReceiver is the parameter name seeded as account-field taint.
	ContextReceiver string `yaml:"contextReceiver"`
	// ExtendedSinks enables ArrayIndex, StateModification and UncheckedMath sinks.
	ExtendedSinks bool `yaml:"extendedSinks"`
	// Workers bounds parallel parsing in the indexing pass. 0 means NumCPU.
	Workers int `yaml:"workers"`
	// Cache enables the on-disk per-file symbol cache.
	Cache              bool  `yaml:"cache"`
	LoopBoundThreshold int64 `yaml:"loopBoundThreshold"`
}

type Config struct {
	SeverityThreshold string          `yaml:"severityThreshold"`
	TimeBudgetMs      int             `yaml:"timeBudgetMs"`
	LogLevel          int             `yaml:"logLevel"`
	Ignore            []IgnoreRule    `yaml:"ignore"`
	Plugins           []string        `yaml:"plugins"`
	Analysis          AnalysisOptions `yaml:"analysis"`
	ExternalTools     ExternalTools   `yaml:"externalTools"`
}

func Default() Config {
	return Config{
		SeverityThreshold: "medium",
		TimeBudgetMs:      4500,
		LogLevel:          int(WarnLevel),
		Analysis: AnalysisOptions{
			ContextTypes:       []string{"Context"},
			ContextReceiver:    "ctx",
			Cache:              true,
			LoopBoundThreshold: 1000,
		},
	}
}

// Load searches startDir and its parents for FileName. Missing files are not
// an error: the defaults are returned with an empty path.
func Load(startDir string) (Config, string, error) {
	cfg := Default()
	dir := startDir
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			b, err := os.ReadFile(candidate)
			if err != nil {
				return cfg, candidate, err
			}
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, candidate, fmt.Errorf("parse %s: %w", candidate, err)
			}
			return cfg, candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return cfg, "", nil
}

// LoadFile reads a config from an explicit path.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Marshal renders cfg as YAML, as written by `anchor-sentinel init`.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
