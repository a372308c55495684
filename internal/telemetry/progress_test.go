package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBroadcasterWithNoClientsDoesNotPanic(t *testing.T) {
	b := NewBroadcaster()
	assert.NotPanics(t, func() {
		b.Broadcast(ProgressEvent{Book: "test", Stage: "margin", PagesDone: 1, PagesTotal: 10})
	})
}

func TestStageTimerRecordsWithoutPanicking(t *testing.T) {
	done := StageTimer("margin")
	assert.NotPanics(t, done)
}

func TestRecordHelpersDoNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordPage("book-1", "ok")
		RecordPageSkipped("book-1", "page_error")
		RecordBookCompleted()
	})
}
