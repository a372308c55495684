// Package pdfio handles the PDF boundary of the pipeline: counting and
// rasterizing source pages through an injected external.Rasterizer, and
// assembling finalized page rasters back into a single output PDF with
// pdfcpu. Grounded on the teacher's internal/pdf/pdf.go, which drives
// pdfcpu's api package the same way.
package pdfio

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/inkwell-labs/bookrestore/internal/external"
	"github.com/inkwell-labs/bookrestore/internal/pageraster"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ExtractPages returns the 0-based rasterized pages of the PDF at pdfPath,
// rasterized at dpi through the given collaborator (spec section 6:
// --dpi, default 300).
func ExtractPages(ctx context.Context, pdfPath string, dpi int, rasterizer external.Rasterizer) ([]pageraster.PageRaster, error) {
	n, err := rasterizer.PageCount(ctx, pdfPath)
	if err != nil {
		return nil, fmt.Errorf("count pages: %w", err)
	}

	pages := make([]pageraster.PageRaster, n)
	for i := range n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := rasterizer.Rasterize(ctx, pdfPath, i, dpi)
		if err != nil {
			return nil, fmt.Errorf("rasterize page %d: %w", i, err)
		}
		pages[i] = pageraster.FromImage(img)
	}
	return pages, nil
}

// AssemblePDF writes pages, in order, into a single PDF at outPath, using
// pdfcpu's image-import machinery the same way the teacher's internal/pdf
// package drives api.ExtractImagesFile for the reverse direction.
func AssemblePDF(pages []pageraster.PageRaster, outPath string) (err error) {
	tmpDir, err := os.MkdirTemp("", "bookrestore-assemble-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	imgFiles := make([]string, len(pages))
	for i, p := range pages {
		path := filepath.Join(tmpDir, fmt.Sprintf("page_%05d.png", i))
		if err := writePNG(path, p); err != nil {
			return fmt.Errorf("write page %d: %w", i, err)
		}
		imgFiles[i] = path
	}

	imp, err := api.Import("", pdfcpu.POINTS)
	if err != nil {
		return fmt.Errorf("configure image import: %w", err)
	}
	imp.FullPage = true

	if err := api.ImportImagesFile(imgFiles, outPath, imp, model.NewDefaultConfiguration()); err != nil {
		return fmt.Errorf("assemble pdf: %w", err)
	}
	return nil
}

func writePNG(path string, p pageraster.PageRaster) error {
	f, err := os.Create(path) //nolint:gosec // path constructed from our own temp dir
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return png.Encode(f, p.Img)
}
