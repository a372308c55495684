package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "bookrestore"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "BOOKRESTORE"
)

// Loader layers configuration from flags (bound by the caller via the
// returned viper instance), environment variables, a YAML config file, and
// compiled-in defaults, in that precedence order (spec section 6).
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader backed by the global viper instance, so that
// flag bindings set up by cobra.Command.Flags() take effect.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// Viper returns the underlying instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load reads the config file (if present), layers environment variables and
// defaults, and unmarshals into a Config.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	l.addConfigPaths()
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyAdvanced()
	return &cfg, nil
}

func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
	}
	l.v.AddConfigPath("/etc/bookrestore")
	if configDir, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		l.v.AddConfigPath(filepath.Join(configDir, "bookrestore"))
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "bookrestore"))
	}
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func (l *Loader) setDefaults() {
	d := DefaultConfig()
	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)

	l.v.SetDefault("rasterize.dpi", d.Rasterize.DPI)
	l.v.SetDefault("rasterize.internal_resolution", d.Rasterize.NormalizeToInternal)

	l.v.SetDefault("features.ocr", d.Features.OCR)
	l.v.SetDefault("features.color_correction", d.Features.ColorCorrection)
	l.v.SetDefault("features.offset_alignment", d.Features.OffsetAlignment)
	l.v.SetDefault("features.margin_trim", d.Features.MarginTrimPct)
	l.v.SetDefault("features.advanced", d.Features.Advanced)

	l.v.SetDefault("external.upscale", d.External.Upscale)
	l.v.SetDefault("external.deskew", d.External.Deskew)
	l.v.SetDefault("external.gpu", d.External.GPU)
	l.v.SetDefault("external.rasterizer_binary", d.External.RasterizerBinary)
	l.v.SetDefault("external.page_number_ocr_binary", d.External.PageNumberOCRBinary)
	l.v.SetDefault("external.japanese_ocr_binary", d.External.JapaneseOCRBinary)
	l.v.SetDefault("external.upscaler_binary", d.External.UpscalerBinary)
	l.v.SetDefault("external.deskewer_binary", d.External.DeskewerBinary)

	l.v.SetDefault("finalize.output_height", d.Finalize.OutputHeight)
	l.v.SetDefault("resource.threads", d.Resource.Threads)
	l.v.SetDefault("progress.listen_addr", d.Progress.ListenAddr)
}
