package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Inventory InventoryConfig `yaml:"inventory" mapstructure:"inventory"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL   string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath    string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns      int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns      int32  `yaml:"min_conns" mapstructure:"min_conns"`
	BatchSize     int    `yaml:"batch_size" mapstructure:"batch_size"`
	RetryAttempts int    `yaml:"retry_attempts" mapstructure:"retry_attempts"` // attempts per transiently failing write
}

// InventoryConfig locates the reference table and the per-year raw files.
type InventoryConfig struct {
	GeocodesPath       string       `yaml:"geocodes_path" mapstructure:"geocodes_path"`
	GeocodesHeaderRows int          `yaml:"geocodes_header_rows" mapstructure:"geocodes_header_rows"`
	RawDir             string       `yaml:"raw_dir" mapstructure:"raw_dir"`
	OutputDir          string       `yaml:"output_dir" mapstructure:"output_dir"`
	Format             string       `yaml:"format" mapstructure:"format"`
	Encoding           string       `yaml:"encoding" mapstructure:"encoding"`
	Workers            int          `yaml:"workers" mapstructure:"workers"`
	Years              []YearConfig `yaml:"years" mapstructure:"years"`
}

// YearConfig names the raw file for one inventory year. A relative RawPath
// is resolved against InventoryConfig.RawDir.
type YearConfig struct {
	Year    int    `yaml:"year" mapstructure:"year"`
	RawPath string `yaml:"raw_path" mapstructure:"raw_path"`
}

// MetricsConfig configures the node-exporter textfile written after a run.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ResolvedYears returns the configured years with raw paths joined to RawDir.
func (c InventoryConfig) ResolvedYears() []YearConfig {
	out := make([]YearConfig, len(c.Years))
	for i, y := range c.Years {
		out[i] = y
		if y.RawPath != "" && !filepath.IsAbs(y.RawPath) && c.RawDir != "" {
			out[i].RawPath = filepath.Join(c.RawDir, y.RawPath)
		}
	}
	return out
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "data/bridges.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("store.batch_size", 5000)
	v.SetDefault("store.retry_attempts", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("inventory.geocodes_path", "data/all-geocodes-v2017.xlsx")
	v.SetDefault("inventory.geocodes_header_rows", 4)
	v.SetDefault("inventory.raw_dir", "data/raw")
	v.SetDefault("inventory.output_dir", "data/clean")
	v.SetDefault("inventory.format", "csv")
	v.SetDefault("inventory.encoding", "latin1")
	v.SetDefault("inventory.workers", 4)
	v.SetDefault("inventory.years", []map[string]any{
		{"year": 2007, "raw_path": "2007.txt"},
		{"year": 2017, "raw_path": "2017.txt"},
	})
	v.SetDefault("metrics.textfile", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields a command needs. mode is "clean", "store" or
// "migrate"; "store" is a clean run that also persists.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "clean":
		problems = append(problems, c.inventoryProblems()...)
	case "store":
		problems = append(problems, c.inventoryProblems()...)
		problems = append(problems, c.storeProblems()...)
	case "migrate":
		problems = append(problems, c.storeProblems()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) inventoryProblems() []string {
	var problems []string
	inv := c.Inventory
	if inv.GeocodesPath == "" {
		problems = append(problems, "inventory.geocodes_path is required")
	}
	if inv.OutputDir == "" {
		problems = append(problems, "inventory.output_dir is required")
	}
	if inv.Workers < 1 || inv.Workers > 64 {
		problems = append(problems, "inventory.workers must be between 1 and 64")
	}
	if len(inv.Years) == 0 {
		problems = append(problems, "inventory.years must list at least one year")
	}
	seen := make(map[int]bool, len(inv.Years))
	for _, y := range inv.Years {
		switch {
		case y.Year <= 0:
			problems = append(problems, "inventory.years entries need a positive year")
		case y.RawPath == "":
			problems = append(problems, fmt.Sprintf("inventory.years entry %d has no raw_path", y.Year))
		case seen[y.Year]:
			problems = append(problems, fmt.Sprintf("inventory.years lists %d twice", y.Year))
		}
		seen[y.Year] = true
	}
	return problems
}

func (c *Config) storeProblems() []string {
	var problems []string
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for postgres")
		}
		if c.Store.MinConns > c.Store.MaxConns {
			problems = append(problems, "store.min_conns must not exceed store.max_conns")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			problems = append(problems, "store.sqlite_path is required for sqlite")
		}
	default:
		problems = append(problems, "store.driver must be postgres or sqlite")
	}
	if c.Store.RetryAttempts < 0 {
		problems = append(problems, "store.retry_attempts must be >= 0")
	}
	if c.Store.BatchSize < 0 {
		problems = append(problems, "store.batch_size must be >= 0")
	}
	return problems
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
