// Package config holds the analyzer settings. Values come from built-in
// defaults, then an optional YAML file, then the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"cox-analyzer/internal/logger"
)

// EnvConfigPath names the variable holding the path of the YAML config file.
const EnvConfigPath = "COX_ANALYZER_CONFIG"

type Config struct {
	LogLevel string `yaml:"log_level" validate:"loglevel"`
	LogFile  string `yaml:"log_file"`

	Window   WindowConfig   `yaml:"window"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Plot     PlotConfig     `yaml:"plot"`
}

type WindowConfig struct {
	Width  float32 `yaml:"width" validate:"gt=0"`
	Height float32 `yaml:"height" validate:"gt=0"`
}

// AnalysisConfig controls how results are computed and reported.
type AnalysisConfig struct {
	// PValueThreshold flags covariates in the proportional hazards test.
	PValueThreshold float64 `yaml:"p_value_threshold" validate:"gt=0,lt=1"`

	// ConfidenceLevel of the coefficient and hazard ratio intervals.
	ConfidenceLevel float64 `yaml:"confidence_level" validate:"gt=0,lt=1"`

	// PreviewRows is the number of rows echoed after loading and preparing.
	PreviewRows int `yaml:"preview_rows" validate:"gte=0"`

	// TimeTransform used by the proportional hazards test: rank, identity or log.
	TimeTransform string `yaml:"time_transform" validate:"oneof=rank identity log"`
}

type PlotConfig struct {
	// Quantiles of the plotted covariate at which curves are drawn.
	Quantiles []float64 `yaml:"quantiles" validate:"min=1,dive,gte=0,lte=1"`

	// FallbackValues caps the distinct values used when quantiles collapse.
	FallbackValues int `yaml:"fallback_values" validate:"gte=2"`

	// Width and Height in inches.
	Width  float64 `yaml:"width" validate:"gt=0"`
	Height float64 `yaml:"height" validate:"gt=0"`

	// OutputDir receives PNG exports; empty disables export.
	OutputDir string `yaml:"output_dir"`
}

func Default() *Config {
	return &Config{
		LogLevel: "info",
		Window: WindowConfig{
			Width:  800,
			Height: 700,
		},
		Analysis: AnalysisConfig{
			PValueThreshold: 0.05,
			ConfidenceLevel: 0.95,
			PreviewRows:     5,
			TimeTransform:   "rank",
		},
		Plot: PlotConfig{
			Quantiles:      []float64{0.1, 0.25, 0.5, 0.75, 0.9},
			FallbackValues: 5,
			Width:          6.4,
			Height:         4.8,
		},
	}
}

// Load builds the configuration. An empty path falls back to
// $COX_ANALYZER_CONFIG; when that is empty too only defaults and the
// environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from LOG_LEVEL, DEBUG, COX_LOG_FILE and
// COX_PLOT_DIR.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	} else if getenv("DEBUG") == "1" {
		c.LogLevel = "debug"
	}
	if v := getenv("COX_LOG_FILE"); v != "" {
		c.LogFile = v
	}
	if v := getenv("COX_PLOT_DIR"); v != "" {
		c.Plot.OutputDir = v
	}
	if v := getenv("COX_P_THRESHOLD"); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil {
			c.Analysis.PValueThreshold = p
		}
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		_, ok := logger.ParseLevel(fl.Field().String())
		return ok
	})
	return v
}

// Validate reports every setting outside its allowed range.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, fieldError(fe))
	}
	return errors.Join(errs...)
}

func fieldError(fe validator.FieldError) error {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	rule := fe.Tag()
	if fe.Param() != "" {
		rule += "=" + fe.Param()
	}
	if rule == "loglevel" {
		return fmt.Errorf("%s: unknown log level %q", field, fe.Value())
	}
	return fmt.Errorf("%s: %v does not satisfy %s", field, fe.Value(), rule)
}

// Level returns the parsed log level.
func (c *Config) Level() logger.LogLevel {
	level, _ := logger.ParseLevel(c.LogLevel)
	return level
}
