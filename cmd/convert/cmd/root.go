// Package cmd implements the convert CLI: a single cobra command that
// wires flags (spec section 6's table) through internal/config into one
// internal/convertpipeline.Run call. Grounded on the teacher's
// cmd/ocr/cmd/root.go (persistent flags, cobra.OnInitialize, viper
// binding) collapsed from a multi-subcommand CLI to a single command, since
// spec section 6 names exactly one surface: `convert <input.pdf> [output.pdf] [options]`.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inkwell-labs/bookrestore/internal/bookerr"
	"github.com/inkwell-labs/bookrestore/internal/config"
)

var (
	rootCmd = &cobra.Command{
		Use:   "convert <input.pdf> [output.pdf]",
		Short: "Convert a scanned book PDF into a corrected PDF",
		Long: `convert detects and unifies page margins, optionally normalizes color
and aligns physical pages to their printed numbers, then resizes, crops,
shifts, and pads every page to a common output size before reassembling
the PDF.

Examples:
  convert scan.pdf
  convert scan.pdf restored.pdf --advanced
  convert scan.pdf --ocr --color-correction --threads 4`,
		Args:         cobra.RangeArgs(1, 2),
		SilenceUsage: true,
		RunE:         runConvert,
	}
	cfgFile string
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/bookrestore, /etc/bookrestore)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")

	rootCmd.Flags().Int("dpi", 300, "output DPI")
	rootCmd.Flags().Bool("ocr", false, "run external Japanese OCR on every page (runs are counted; no text layer is written to the output PDF)")
	rootCmd.Flags().Bool("upscale", true, "enable AI upscaling via external process")
	rootCmd.Flags().Bool("deskew", true, "enable rotation correction")
	rootCmd.Flags().Float64("margin-trim", 0.5, "percent-of-edge trim floor (validated to 0-100; not applied by the pipeline)")
	rootCmd.Flags().Bool("gpu", true, "allow GPU in external processes")
	rootCmd.Flags().Int("threads", 0, "worker pool size (0 = auto)")
	rootCmd.Flags().Bool("internal-resolution", false, "normalize to 4960x7016 before analysis (recorded in config; pages are analyzed at their rasterized size)")
	rootCmd.Flags().Bool("color-correction", false, "enable global color normalization")
	rootCmd.Flags().Bool("offset-alignment", false, "enable physical/logical page-number shift")
	rootCmd.Flags().Int("output-height", 3508, "finalize target height")
	rootCmd.Flags().Bool("advanced", false, "shorthand enabling --internal-resolution, --color-correction and --offset-alignment")
	rootCmd.Flags().String("progress-ws", "", "loopback address to serve per-page progress events over websocket (empty disables it)")

	rootCmd.Flags().String("rasterizer-binary", "", "path to the rasterizer binary")
	rootCmd.Flags().String("page-number-ocr-binary", "", "path to the page-number OCR binary")
	rootCmd.Flags().String("japanese-ocr-binary", "", "path to the Japanese OCR binary")
	rootCmd.Flags().String("upscaler-binary", "", "path to the upscaler binary")
	rootCmd.Flags().String("deskewer-binary", "", "path to the deskew binary")

	bind := func(key, flag string) {
		if err := viper.BindPFlag(key, rootCmd.Flags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
	bindP := func(key, flag string) {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
	bindP("log_level", "log-level")
	bindP("verbose", "verbose")
	bind("rasterize.dpi", "dpi")
	bind("features.ocr", "ocr")
	bind("external.upscale", "upscale")
	bind("external.deskew", "deskew")
	bind("features.margin_trim", "margin-trim")
	bind("external.gpu", "gpu")
	bind("resource.threads", "threads")
	bind("rasterize.internal_resolution", "internal-resolution")
	bind("features.color_correction", "color-correction")
	bind("features.offset_alignment", "offset-alignment")
	bind("finalize.output_height", "output-height")
	bind("features.advanced", "advanced")
	bind("progress.listen_addr", "progress-ws")
	bind("external.rasterizer_binary", "rasterizer-binary")
	bind("external.page_number_ocr_binary", "page-number-ocr-binary")
	bind("external.japanese_ocr_binary", "japanese-ocr-binary")
	bind("external.upscaler_binary", "upscaler-binary")
	bind("external.deskewer_binary", "deskewer-binary")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// RootCmd returns the root command, for main and for tests that want to
// invoke it without os.Exit.
func RootCmd() *cobra.Command { return rootCmd }

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExitCode maps a returned error to the spec section 6 exit code table.
func ExitCode(err error) (int, bool) {
	if err == nil {
		return 0, true
	}
	var argErr *usageError
	if errors.As(err, &argErr) {
		return 2, true
	}
	var be *bookerr.Error
	if errors.As(err, &be) {
		switch be.Kind {
		case bookerr.InputKind:
			return 3, true
		case bookerr.DependencyKind:
			return 4, true
		default:
			return 5, true
		}
	}
	return 5, true
}

// usageError marks a bad-arguments condition (exit code 2), distinct from
// a bookerr.Error since it is caught before the pipeline ever runs.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func runConvert(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		return &usageError{msg: fmt.Sprintf("load config: %v", err)}
	}
	setupLogging(cfg)

	inputPDF := args[0]
	outputPDF := defaultOutputPath(inputPDF)
	if len(args) == 2 {
		outputPDF = args[1]
	}

	if cfg.Rasterize.DPI <= 0 {
		return &usageError{msg: fmt.Sprintf("invalid --dpi %d", cfg.Rasterize.DPI)}
	}
	if cfg.Features.MarginTrimPct < 0 || cfg.Features.MarginTrimPct > 100 {
		return &usageError{msg: fmt.Sprintf("invalid --margin-trim %g", cfg.Features.MarginTrimPct)}
	}

	opts, collab, err := buildRun(cfg, inputPDF, outputPDF)
	if err != nil {
		return err
	}

	summary, err := runPipeline(cmd.Context(), opts, collab)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "converted %d pages (%d skipped) -> %s\n",
		summary.PagesTotal, summary.PagesSkipped, outputPDF)
	return nil
}

func defaultOutputPath(inputPDF string) string {
	return withSuffix(inputPDF, ".restored.pdf")
}

func withSuffix(path, suffix string) string {
	const ext = ".pdf"
	if len(path) > len(ext) && path[len(path)-len(ext):] == ext {
		return path[:len(path)-len(ext)] + suffix
	}
	return path + suffix
}
