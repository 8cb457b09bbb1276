package streaming

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
)

func drain(d *Dispatcher) []models.Event {
	var events []models.Event
	for e := range d.Events() {
		events = append(events, e)
	}
	return events
}

func smallResult() *models.FinalResult {
	return &models.FinalResult{
		Status:   "complete",
		Report:   "short report",
		RawData:  []models.Row{{"id": 1}},
		RowCount: 1,
	}
}

func largeResult(rows int) *models.FinalResult {
	data := make([]models.Row, rows)
	for i := range data {
		data[i] = models.Row{
			"id":          i,
			"description": strings.Repeat("x", 400), // force past the size threshold
		}
	}
	return &models.FinalResult{
		Status:   "complete",
		Report:   "big report",
		RawData:  data,
		RowCount: rows,
	}
}

func TestComplete_SmallResultSingleEvent(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	go func() {
		d.Complete(smallResult())
		d.Close()
	}()

	events := drain(d)
	require.Len(t, events, 1)
	assert.Equal(t, "complete", events[0].Status())
	assert.True(t, events[0].IsTerminal())

	rawData, ok := events[0]["rawData"].([]any)
	require.True(t, ok)
	assert.Len(t, rawData, 1)
	_, pending := events[0]["rawDataPending"]
	assert.False(t, pending)
}

func TestComplete_LargeResultChunked(t *testing.T) {
	// 250 wide rows serialize past the threshold: expect one metadata event,
	// three chunks of 100+100+50, then a completion marker.
	d := NewDispatcher(zap.NewNop())
	go func() {
		d.Complete(largeResult(250))
		d.Close()
	}()

	events := drain(d)
	require.Len(t, events, 5)

	meta := events[0]
	assert.Equal(t, "complete", meta.Status())
	assert.Equal(t, true, meta["rawDataPending"])
	rawData, ok := meta["rawData"].([]any)
	require.True(t, ok)
	assert.Empty(t, rawData)

	wantSizes := []int{100, 100, 50}
	for i, want := range wantSizes {
		chunk := events[i+1]
		rows, ok := chunk["rawDataChunk"].([]models.Row)
		require.True(t, ok, "chunk %d", i)
		assert.Len(t, rows, want)
		assert.Equal(t, i, chunk["chunkIndex"])
		assert.Equal(t, 3, chunk["totalChunks"])
	}

	done := events[4]
	assert.Equal(t, true, done["rawDataComplete"])
	assert.Equal(t, 250, done["rowCount"])
	assert.True(t, done.IsTerminal())
}

func TestComplete_ChunkEventsSerializable(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	go func() {
		d.Complete(largeResult(150))
		d.Close()
	}()

	total := 0
	for _, e := range drain(d) {
		payload, err := json.Marshal(e)
		require.NoError(t, err)
		assert.NotEmpty(t, payload)
		if rows, ok := e["rawDataChunk"].([]models.Row); ok {
			total += len(rows)
		}
	}
	assert.Equal(t, 150, total)
}

func TestFail_EmitsTerminalErrorEvent(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	go func() {
		d.Fail("rate limited, try again later", fmt.Errorf("llm rate limit exceeded"))
		d.Close()
	}()

	events := drain(d)
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].Status())
	assert.True(t, events[0].IsTerminal())
	assert.Contains(t, events[0]["message"], "rate limited")
}

func TestComplete_ReturnsAfterStopWithoutReader(t *testing.T) {
	// When the client disconnects nothing drains the channel anymore; Stop
	// must release a chunked Complete instead of blocking the pipeline
	// goroutine forever.
	d := NewDispatcher(zap.NewNop())
	d.Stop()

	done := make(chan struct{})
	go func() {
		d.Complete(largeResult(10000))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Complete did not return after Stop with no reader")
	}
}

func TestEmit_AfterStopDoesNotBlock(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	d.Stop()

	done := make(chan struct{})
	go func() {
		// Well past the channel buffer.
		for i := 0; i < 200; i++ {
			d.Emit(models.NewProcessingEvent("milestone"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked after Stop")
	}
}

func TestEmit_AfterCloseDoesNotPanic(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	d.Close()
	assert.NotPanics(t, func() {
		d.Emit(models.NewProcessingEvent("late"))
	})
}
