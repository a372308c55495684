// Subprocess-backed production implementations of the capability
// interfaces. Grounded on other_examples' subprocess bridge
// (cpcloud-micasa/internal/extract/ocr_progress.go): a temp working
// directory, image written to disk, external binary invoked with
// exec.CommandContext, JSON result read back.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/inkwell-labs/bookrestore/internal/mempool"
	"github.com/inkwell-labs/bookrestore/internal/pageraster"
)

// SubprocessRasterizer shells out to an ImageMagick-like rasterizer binary.
// Pool, when set, bounds how many rasterizer processes run at once
// (spec section 5's pooled-handle guarantee); nil leaves it unbounded.
type SubprocessRasterizer struct {
	BinaryPath string
	Pool       *HandlePool[struct{}]
}

func (r SubprocessRasterizer) Rasterize(ctx context.Context, pdfPath string, page int, dpi int) (image.Image, error) {
	release, err := acquireSlot(ctx, r.Pool)
	if err != nil {
		return nil, err
	}
	defer release()

	return RunWithRetry(ctx, "rasterizer", func(ctx context.Context) (image.Image, error) {
		return runRasterize(ctx, r.BinaryPath, pdfPath, page, dpi)
	})
}

func (r SubprocessRasterizer) PageCount(ctx context.Context, pdfPath string) (int, error) {
	out, err := exec.CommandContext(ctx, r.BinaryPath, "-identify", pdfPath).Output() //nolint:gosec // operator-controlled binary path
	if err != nil {
		return 0, fmt.Errorf("rasterizer page count: %w", err)
	}
	var n int
	if _, err := fmt.Sscanf(string(bytes.TrimSpace(out)), "%d", &n); err != nil {
		return 0, fmt.Errorf("parse page count: %w", err)
	}
	return n, nil
}

func runRasterize(ctx context.Context, binary, pdfPath string, page, dpi int) (image.Image, error) {
	tmpDir, err := os.MkdirTemp("", "bookrestore-raster-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	outPath := filepath.Join(tmpDir, "page.png")
	cmd := exec.CommandContext(ctx, binary, //nolint:gosec // operator-controlled binary path
		"-density", fmt.Sprintf("%d", dpi),
		fmt.Sprintf("%s[%d]", pdfPath, page),
		outPath,
	)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("rasterize page %d: %w", page, err)
	}

	f, err := os.Open(outPath) //nolint:gosec // path constructed from our own temp dir
	if err != nil {
		return nil, fmt.Errorf("open rasterized page: %w", err)
	}
	defer func() { _ = f.Close() }()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode rasterized page: %w", err)
	}
	return img, nil
}

// SubprocessPageNumberOCR shells out to a tesseract-like OCR binary,
// exchanging the cropped band and the recognized tokens as JSON.
type SubprocessPageNumberOCR struct {
	BinaryPath string
	Pool       *HandlePool[struct{}]
}

type ocrTokenWire struct {
	Text string `json:"text"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	W    int    `json:"w"`
	H    int    `json:"h"`
}

func (o SubprocessPageNumberOCR) Detect(
	ctx context.Context, page pageraster.PageRaster, band pageraster.Rect,
) ([]PageNumberToken, error) {
	release, err := acquireSlot(ctx, o.Pool)
	if err != nil {
		return nil, err
	}
	defer release()

	return RunWithRetry(ctx, "page-number-ocr", func(ctx context.Context) ([]PageNumberToken, error) {
		return runPageNumberOCR(ctx, o.BinaryPath, page, band)
	})
}

func runPageNumberOCR(
	ctx context.Context, binary string, page pageraster.PageRaster, band pageraster.Rect,
) ([]PageNumberToken, error) {
	tmpDir, err := os.MkdirTemp("", "bookrestore-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	cropPath := filepath.Join(tmpDir, "crop.png")
	if err := writeCroppedPNG(cropPath, page, band); err != nil {
		return nil, err
	}

	out, err := exec.CommandContext(ctx, binary, cropPath).Output() //nolint:gosec // operator-controlled binary path
	if err != nil {
		return nil, fmt.Errorf("run page-number OCR: %w", err)
	}

	var wire []ocrTokenWire
	if err := json.Unmarshal(out, &wire); err != nil {
		return nil, fmt.Errorf("parse OCR output: %w", err)
	}

	tokens := make([]PageNumberToken, 0, len(wire))
	for _, w := range wire {
		n, convErr := parseDigitsOnly(w.Text)
		box := pageraster.Rect{X: band.X + w.X, Y: band.Y + w.Y, W: w.W, H: w.H}
		tok := PageNumberToken{Text: w.Text, Box: box}
		if convErr == nil {
			tok.Number = n
		} else {
			tok.Number = -1
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

func parseDigitsOnly(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty token")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-digit token %q", s)
		}
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, err
	}
	return n, nil
}

func writeCroppedPNG(path string, page pageraster.PageRaster, band pageraster.Rect) error {
	f, err := os.Create(path) //nolint:gosec // path constructed from our own temp dir
	if err != nil {
		return fmt.Errorf("create crop file: %w", err)
	}
	defer func() { _ = f.Close() }()

	pix := mempool.GetBytes(band.W * band.H * 4)
	defer mempool.PutBytes(pix)
	crop := &image.RGBA{Pix: pix, Stride: band.W * 4, Rect: image.Rect(0, 0, band.W, band.H)}
	for y := range band.H {
		for x := range band.W {
			crop.SetRGBA(x, y, page.At(band.X+x, band.Y+y))
		}
	}
	if err := png.Encode(f, crop); err != nil {
		return fmt.Errorf("encode crop: %w", err)
	}
	return nil
}

// SubprocessUpscaler shells out to an AI upscaling binary.
type SubprocessUpscaler struct {
	BinaryPath string
	GPU        bool
	Pool       *HandlePool[struct{}]
}

func (u SubprocessUpscaler) Upscale(ctx context.Context, page pageraster.PageRaster) (pageraster.PageRaster, error) {
	release, err := acquireSlot(ctx, u.Pool)
	if err != nil {
		return pageraster.PageRaster{}, err
	}
	defer release()

	return RunWithRetry(ctx, "upscaler", func(ctx context.Context) (pageraster.PageRaster, error) {
		return runUpscale(ctx, u.BinaryPath, u.GPU, page)
	})
}

func runUpscale(ctx context.Context, binary string, gpu bool, page pageraster.PageRaster) (pageraster.PageRaster, error) {
	tmpDir, err := os.MkdirTemp("", "bookrestore-upscale-*")
	if err != nil {
		return pageraster.PageRaster{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	inPath := filepath.Join(tmpDir, "in.png")
	outPath := filepath.Join(tmpDir, "out.png")
	if err := writeCroppedPNG(inPath, page, pageraster.Rect{W: page.Width(), H: page.Height()}); err != nil {
		return pageraster.PageRaster{}, err
	}

	args := []string{"-i", inPath, "-o", outPath}
	if gpu {
		args = append(args, "-gpu")
	}
	if err := exec.CommandContext(ctx, binary, args...).Run(); err != nil { //nolint:gosec // operator-controlled binary path
		return pageraster.PageRaster{}, fmt.Errorf("run upscaler: %w", err)
	}

	f, err := os.Open(outPath) //nolint:gosec // path constructed from our own temp dir
	if err != nil {
		return pageraster.PageRaster{}, fmt.Errorf("open upscaled output: %w", err)
	}
	defer func() { _ = f.Close() }()
	img, err := png.Decode(f)
	if err != nil {
		return pageraster.PageRaster{}, fmt.Errorf("decode upscaled output: %w", err)
	}
	return pageraster.FromImage(img), nil
}

// SubprocessDeskewer shells out to a rotation-correction binary. Grounded
// on the same in/out PNG round-trip as SubprocessUpscaler (spec section 6
// specifies the deskew collaborator only at the interface, not its wire
// format, so it reuses the upscaler's file-exchange convention).
type SubprocessDeskewer struct {
	BinaryPath string
	Pool       *HandlePool[struct{}]
}

func (d SubprocessDeskewer) Deskew(ctx context.Context, page pageraster.PageRaster) (pageraster.PageRaster, error) {
	release, err := acquireSlot(ctx, d.Pool)
	if err != nil {
		return pageraster.PageRaster{}, err
	}
	defer release()

	return RunWithRetry(ctx, "deskewer", func(ctx context.Context) (pageraster.PageRaster, error) {
		return runImageToImage(ctx, d.BinaryPath, nil, page)
	})
}

// SubprocessJapaneseOCR shells out to a full-page text-recognition binary,
// exchanging the page image as a file and the recognized runs as JSON.
type SubprocessJapaneseOCR struct {
	BinaryPath string
	Pool       *HandlePool[struct{}]
}

type textRunWire struct {
	Text string `json:"text"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	W    int    `json:"w"`
	H    int    `json:"h"`
}

func (o SubprocessJapaneseOCR) Recognize(ctx context.Context, page pageraster.PageRaster) ([]TextRun, error) {
	release, err := acquireSlot(ctx, o.Pool)
	if err != nil {
		return nil, err
	}
	defer release()

	return RunWithRetry(ctx, "japanese-ocr", func(ctx context.Context) ([]TextRun, error) {
		return runJapaneseOCR(ctx, o.BinaryPath, page)
	})
}

func runJapaneseOCR(ctx context.Context, binary string, page pageraster.PageRaster) ([]TextRun, error) {
	tmpDir, err := os.MkdirTemp("", "bookrestore-jaocr-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	inPath := filepath.Join(tmpDir, "page.png")
	if err := writeCroppedPNG(inPath, page, pageraster.Rect{W: page.Width(), H: page.Height()}); err != nil {
		return nil, err
	}

	out, err := exec.CommandContext(ctx, binary, inPath).Output() //nolint:gosec // operator-controlled binary path
	if err != nil {
		return nil, fmt.Errorf("run japanese OCR: %w", err)
	}

	var wire []textRunWire
	if err := json.Unmarshal(out, &wire); err != nil {
		return nil, fmt.Errorf("parse japanese OCR output: %w", err)
	}
	runs := make([]TextRun, 0, len(wire))
	for _, w := range wire {
		runs = append(runs, TextRun{Text: w.Text, Box: pageraster.Rect{X: w.X, Y: w.Y, W: w.W, H: w.H}})
	}
	return runs, nil
}

// runImageToImage round-trips page through binary as an image-in,
// image-out subprocess: write page, run `binary [extraArgs...] in out`,
// decode the result. Shared by deskew (and could grow further
// image-to-image collaborators without duplicating the temp-dir dance).
func runImageToImage(ctx context.Context, binary string, extraArgs []string, page pageraster.PageRaster) (pageraster.PageRaster, error) {
	tmpDir, err := os.MkdirTemp("", "bookrestore-img2img-*")
	if err != nil {
		return pageraster.PageRaster{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	inPath := filepath.Join(tmpDir, "in.png")
	outPath := filepath.Join(tmpDir, "out.png")
	if err := writeCroppedPNG(inPath, page, pageraster.Rect{W: page.Width(), H: page.Height()}); err != nil {
		return pageraster.PageRaster{}, err
	}

	args := append(append([]string{}, extraArgs...), inPath, outPath)
	if err := exec.CommandContext(ctx, binary, args...).Run(); err != nil { //nolint:gosec // operator-controlled binary path
		return pageraster.PageRaster{}, fmt.Errorf("run %s: %w", binary, err)
	}

	f, err := os.Open(outPath) //nolint:gosec // path constructed from our own temp dir
	if err != nil {
		return pageraster.PageRaster{}, fmt.Errorf("open output: %w", err)
	}
	defer func() { _ = f.Close() }()
	img, err := png.Decode(f)
	if err != nil {
		return pageraster.PageRaster{}, fmt.Errorf("decode output: %w", err)
	}
	return pageraster.FromImage(img), nil
}
