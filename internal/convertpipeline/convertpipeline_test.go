package convertpipeline

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-labs/bookrestore/internal/colorcorrect"
	"github.com/inkwell-labs/bookrestore/internal/external"
	"github.com/inkwell-labs/bookrestore/internal/finalize"
	"github.com/inkwell-labs/bookrestore/internal/margin"
	"github.com/inkwell-labs/bookrestore/internal/pagenumber"
	"github.com/inkwell-labs/bookrestore/internal/pageraster"
	"github.com/inkwell-labs/bookrestore/internal/testutil"
)

func syntheticImages(n int) []image.Image {
	pages := testutil.GenerateBook(n, 1, 1, nil)
	out := make([]image.Image, n)
	for i, p := range pages {
		out[i] = p.Img
	}
	return out
}

func fakeBookOptions(inputPDF string, images []image.Image) (BookOptions, Collaborators) {
	opts := BookOptions{
		Book:       "test-book",
		InputPDF:   inputPDF,
		OutputPDF:  "ignored.pdf",
		DPI:        300,
		Margin:     margin.DefaultOptions(),
		Color:      colorcorrect.DefaultOptions(),
		PageNumber: pagenumber.DefaultOptions(),
		Finalize:   finalize.Options{TargetHeight: 400},
		Workers:    2,
	}
	collab := Collaborators{
		Rasterizer: external.FakeRasterizer{Pages: images},
		Deskewer:   external.NoopDeskewer{},
		Upscaler:   external.NoopUpscaler{},
	}
	return opts, collab
}

func TestRunProducesOnePerPageOutput(t *testing.T) {
	opts, collab := fakeBookOptions("book.pdf", syntheticImages(4))

	summary, err := Run(context.Background(), opts, collab)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.PagesTotal)
	assert.Equal(t, 0, summary.PagesSkipped)
}

func TestRunWithColorAndOffsetEnabledProducesDecision(t *testing.T) {
	opts, collab := fakeBookOptions("book.pdf", syntheticImages(6))
	opts.EnableColor = true
	opts.EnableOffset = true
	collab.PageNumberOCR = external.PerPageOCR{}

	summary, err := Run(context.Background(), opts, collab)
	require.NoError(t, err)
	assert.Equal(t, 6, summary.PagesTotal)
	_ = summary.Decision.GlobalColor()
	_ = summary.Decision.OffsetAnalysis()
}

type fixedRunsOCR struct{ n int }

func (f fixedRunsOCR) Recognize(_ context.Context, _ pageraster.PageRaster) ([]external.TextRun, error) {
	runs := make([]external.TextRun, f.n)
	return runs, nil
}

func TestRunWithOCREnabledCountsTextRuns(t *testing.T) {
	opts, collab := fakeBookOptions("book.pdf", syntheticImages(3))
	opts.EnableOCR = true
	collab.JapaneseOCR = fixedRunsOCR{n: 2}

	summary, err := Run(context.Background(), opts, collab)
	require.NoError(t, err)
	assert.Equal(t, 6, summary.TextRuns)
}

type failingDeskewer struct{}

func (failingDeskewer) Deskew(_ context.Context, page pageraster.PageRaster) (pageraster.PageRaster, error) {
	return pageraster.PageRaster{}, errors.New("deskew unavailable")
}

func TestRunRecordsSkipsOnDeskewFailureButContinues(t *testing.T) {
	opts, collab := fakeBookOptions("book.pdf", syntheticImages(3))
	opts.EnableDeskew = true
	collab.Deskewer = failingDeskewer{}

	summary, err := Run(context.Background(), opts, collab)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.PagesSkipped)
	assert.Equal(t, 3, summary.PagesTotal)
}

func TestRunFailsOnEmptyPDF(t *testing.T) {
	opts, collab := fakeBookOptions("empty.pdf", nil)
	_, err := Run(context.Background(), opts, collab)
	require.Error(t, err)
}
