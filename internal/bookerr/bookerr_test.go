package bookerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFatalKinds(t *testing.T) {
	assert.True(t, InputKind.Fatal())
	assert.True(t, OutputKind.Fatal())
	assert.False(t, PageKind.Fatal())
	assert.False(t, AggregationKind.Fatal())
	assert.False(t, DependencyKind.Fatal())
}

func TestUnwrap(t *testing.T) {
	sentinel := errors.New("boom")
	err := Page("margin-detect", sentinel)
	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "page error in margin-detect")
}
