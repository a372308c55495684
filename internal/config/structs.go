// Package config defines and loads bookrestore's configuration: the §6 CLI
// options as a struct tree, layered from flags, environment variables, a
// YAML config file, and compiled-in defaults (in that precedence order),
// field-for-field in the style of the teacher's internal/config package.
package config

// Config is the complete configuration for one convert invocation.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose"   yaml:"verbose"   json:"verbose"`

	Rasterize RasterizeConfig `mapstructure:"rasterize" yaml:"rasterize" json:"rasterize"`
	Features  FeatureConfig   `mapstructure:"features"  yaml:"features"  json:"features"`
	External  ExternalConfig  `mapstructure:"external"  yaml:"external"  json:"external"`
	Finalize  FinalizeConfig  `mapstructure:"finalize"  yaml:"finalize"  json:"finalize"`
	Resource  ResourceConfig  `mapstructure:"resource"  yaml:"resource"  json:"resource"`
	Progress  ProgressConfig  `mapstructure:"progress"  yaml:"progress"  json:"progress"`
}

// RasterizeConfig covers --dpi and --internal-resolution.
type RasterizeConfig struct {
	DPI                int  `mapstructure:"dpi"                 yaml:"dpi"                 json:"dpi"`
	NormalizeToInternal bool `mapstructure:"internal_resolution" yaml:"internal_resolution" json:"internal_resolution"`
}

// FeatureConfig covers --ocr, --color-correction, --offset-alignment,
// --margin-trim, and the --advanced shorthand (spec section 6).
type FeatureConfig struct {
	OCR             bool    `mapstructure:"ocr" yaml:"ocr" json:"ocr"`
	ColorCorrection bool    `mapstructure:"color_correction" yaml:"color_correction" json:"color_correction"`
	OffsetAlignment bool    `mapstructure:"offset_alignment" yaml:"offset_alignment" json:"offset_alignment"`
	MarginTrimPct   float64 `mapstructure:"margin_trim" yaml:"margin_trim" json:"margin_trim"`
	Advanced        bool    `mapstructure:"advanced" yaml:"advanced" json:"advanced"`
}

// ExternalConfig covers --upscale, --deskew, --gpu, and the external
// collaborator binaries.
type ExternalConfig struct {
	Upscale             bool   `mapstructure:"upscale" yaml:"upscale" json:"upscale"`
	Deskew              bool   `mapstructure:"deskew" yaml:"deskew" json:"deskew"`
	GPU                 bool   `mapstructure:"gpu" yaml:"gpu" json:"gpu"`
	RasterizerBinary    string `mapstructure:"rasterizer_binary" yaml:"rasterizer_binary" json:"rasterizer_binary"`
	PageNumberOCRBinary string `mapstructure:"page_number_ocr_binary" yaml:"page_number_ocr_binary" json:"page_number_ocr_binary"`
	JapaneseOCRBinary   string `mapstructure:"japanese_ocr_binary" yaml:"japanese_ocr_binary" json:"japanese_ocr_binary"`
	UpscalerBinary      string `mapstructure:"upscaler_binary" yaml:"upscaler_binary" json:"upscaler_binary"`
	DeskewerBinary      string `mapstructure:"deskewer_binary" yaml:"deskewer_binary" json:"deskewer_binary"`
}

// FinalizeConfig covers --output-height.
type FinalizeConfig struct {
	OutputHeight int `mapstructure:"output_height" yaml:"output_height" json:"output_height"`
}

// ResourceConfig covers --threads.
type ResourceConfig struct {
	Threads int `mapstructure:"threads" yaml:"threads" json:"threads"`
}

// ProgressConfig covers --progress-ws: an optional loopback address to
// serve per-page progress events over a websocket. Empty disables it.
type ProgressConfig struct {
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr" json:"listen_addr"`
}

// DefaultConfig returns the spec section 6 defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Rasterize: RasterizeConfig{
			DPI:                 300,
			NormalizeToInternal: false,
		},
		Features: FeatureConfig{
			OCR:             false,
			ColorCorrection: false,
			OffsetAlignment: false,
			MarginTrimPct:   0.5,
			Advanced:        false,
		},
		External: ExternalConfig{
			Upscale: true,
			Deskew:  true,
			GPU:     true,
		},
		Finalize: FinalizeConfig{OutputHeight: 3508},
		Resource: ResourceConfig{Threads: 0},
	}
}

// ApplyAdvanced turns on the three boolean flags --advanced is shorthand
// for: --internal-resolution, --color-correction, --offset-alignment
// (spec section 6: "shorthand enabling the four above" — the fourth,
// --output-height, is a quantity with its own default rather than a
// togglable feature, so --advanced leaves it untouched).
func (c *Config) ApplyAdvanced() {
	if !c.Features.Advanced {
		return
	}
	c.Rasterize.NormalizeToInternal = true
	c.Features.ColorCorrection = true
	c.Features.OffsetAlignment = true
}
