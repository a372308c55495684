package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/inkwell-labs/bookrestore/internal/colorcorrect"
	"github.com/inkwell-labs/bookrestore/internal/config"
	"github.com/inkwell-labs/bookrestore/internal/convertpipeline"
	"github.com/inkwell-labs/bookrestore/internal/external"
	"github.com/inkwell-labs/bookrestore/internal/finalize"
	"github.com/inkwell-labs/bookrestore/internal/margin"
	"github.com/inkwell-labs/bookrestore/internal/pagenumber"
	"github.com/inkwell-labs/bookrestore/internal/telemetry"
)

// buildRun translates a loaded config.Config into the options and
// collaborators internal/convertpipeline.Run expects. Collaborators for
// disabled features are left nil; internal/convertpipeline treats a nil
// collaborator as "feature unavailable" (spec section 7: DependencyError
// silently disables an unrequested feature).
func buildRun(cfg *config.Config, inputPDF, outputPDF string) (convertpipeline.BookOptions, convertpipeline.Collaborators, error) {
	if cfg.External.RasterizerBinary == "" {
		return convertpipeline.BookOptions{}, convertpipeline.Collaborators{},
			&usageError{msg: "no rasterizer binary configured (--rasterizer-binary or BOOKRESTORE_EXTERNAL_RASTERIZER_BINARY)"}
	}

	poolSize := cfg.Resource.Threads
	if poolSize <= 0 {
		poolSize = 4
	}

	collab := convertpipeline.Collaborators{
		Rasterizer: external.SubprocessRasterizer{
			BinaryPath: cfg.External.RasterizerBinary,
			Pool:       external.NewSlotPool(poolSize),
		},
	}
	if cfg.Features.OffsetAlignment && cfg.External.PageNumberOCRBinary != "" {
		collab.PageNumberOCR = external.SubprocessPageNumberOCR{
			BinaryPath: cfg.External.PageNumberOCRBinary,
			Pool:       external.NewSlotPool(poolSize),
		}
	}
	if cfg.Features.OCR && cfg.External.JapaneseOCRBinary != "" {
		collab.JapaneseOCR = external.SubprocessJapaneseOCR{
			BinaryPath: cfg.External.JapaneseOCRBinary,
			Pool:       external.NewSlotPool(poolSize),
		}
	}
	if cfg.External.Upscale && cfg.External.UpscalerBinary != "" {
		collab.Upscaler = external.SubprocessUpscaler{
			BinaryPath: cfg.External.UpscalerBinary,
			GPU:        cfg.External.GPU,
			Pool:       external.NewSlotPool(poolSize),
		}
	}
	if cfg.External.Deskew && cfg.External.DeskewerBinary != "" {
		collab.Deskewer = external.SubprocessDeskewer{
			BinaryPath: cfg.External.DeskewerBinary,
			Pool:       external.NewSlotPool(poolSize),
		}
	}

	marginOpts := margin.DefaultOptions()
	colorOpts := colorcorrect.DefaultOptions()
	pageNumberOpts := pagenumber.DefaultOptions()
	finalizeOpts := finalize.DefaultOptions()
	finalizeOpts.TargetHeight = cfg.Finalize.OutputHeight

	opts := convertpipeline.BookOptions{
		Book:          inputPDF,
		InputPDF:      inputPDF,
		OutputPDF:     outputPDF,
		DPI:           cfg.Rasterize.DPI,
		EnableOCR:     cfg.Features.OCR,
		EnableUpscale: cfg.External.Upscale,
		EnableDeskew:  cfg.External.Deskew,
		EnableColor:   cfg.Features.ColorCorrection,
		EnableOffset:  cfg.Features.OffsetAlignment,
		Margin:        marginOpts,
		Color:         colorOpts,
		PageNumber:    pageNumberOpts,
		Finalize:      finalizeOpts,
		Workers:       cfg.Resource.Threads,
	}
	if cfg.Progress.ListenAddr != "" {
		opts.Broadcaster = startProgressServer(cfg.Progress.ListenAddr)
	}
	return opts, collab, nil
}

// startProgressServer serves a Broadcaster over a websocket at --progress-ws's
// loopback address, for the lifetime of the process (spec section 6's
// optional per-page progress feed). The server is never explicitly shut
// down: it exits with the CLI process once the convert run finishes.
func startProgressServer(addr string) *telemetry.Broadcaster {
	broadcaster := telemetry.NewBroadcaster()
	mux := http.NewServeMux()
	mux.Handle("/progress", broadcaster)
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("progress websocket server failed", "addr", addr, "error", err)
		}
	}()
	return broadcaster
}

func runPipeline(
	ctx context.Context, opts convertpipeline.BookOptions, collab convertpipeline.Collaborators,
) (convertpipeline.Summary, error) {
	return convertpipeline.Run(ctx, opts, collab)
}
