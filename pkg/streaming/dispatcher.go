// Package streaming serializes pipeline progress into server-sent events,
// chunking large result payloads so slow clients still see steady progress.
package streaming

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
)

const (
	// ChunkThreshold is the serialized size above which the final result is
	// split into a metadata event plus raw-data chunks.
	ChunkThreshold = 50000

	// ChunkSize is the number of rows per chunk event.
	ChunkSize = 100
)

// Dispatcher buffers pipeline events for one request and knows how to
// decompose a large final result into chunked events. Emit is safe to call
// from the pipeline goroutine while a writer drains Events.
type Dispatcher struct {
	events   chan models.Event
	done     chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher. The buffer keeps milestone emission
// from blocking the pipeline on a slow client.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		events: make(chan models.Event, 64),
		done:   make(chan struct{}),
		logger: logger.Named("streaming"),
	}
}

// Events is the stream a transport writer drains until closed.
func (d *Dispatcher) Events() <-chan models.Event {
	return d.events
}

// Emit queues one event. Events emitted after Close or Stop are dropped.
func (d *Dispatcher) Emit(event models.Event) {
	defer func() {
		if recover() != nil {
			d.logger.Debug("Event dropped after stream close")
		}
	}()
	select {
	case d.events <- event:
	case <-d.done:
	}
}

// Stop releases the pipeline once nothing drains Events anymore, typically
// because the client disconnected. Emit calls made afterwards return
// immediately instead of blocking on the full buffer.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.done) })
}

// Close ends the stream. No events may be emitted afterwards.
func (d *Dispatcher) Close() {
	close(d.events)
}

// Complete emits the terminal events for a finished result. A result whose
// serialized form fits under the threshold goes out as one complete event.
// A larger one is decomposed: a metadata event with rawData emptied and
// rawDataPending set, one chunk event per 100 rows, then a completion marker.
func (d *Dispatcher) Complete(result *models.FinalResult) {
	serialized, err := json.Marshal(result)
	if err != nil {
		d.logger.Error("Result serialization failed", zap.Error(err))
		d.Emit(models.NewErrorEvent("Failed to serialize the report result.", err))
		return
	}

	if len(serialized) < ChunkThreshold {
		var event models.Event
		if err := json.Unmarshal(serialized, &event); err != nil {
			d.Emit(models.NewErrorEvent("Failed to serialize the report result.", err))
			return
		}
		d.Emit(event)
		return
	}

	rows := result.RawData
	trimmed := *result
	trimmed.RawData = []models.Row{}

	meta, err := json.Marshal(&trimmed)
	if err != nil {
		d.Emit(models.NewErrorEvent("Failed to serialize the report result.", err))
		return
	}
	var metaEvent models.Event
	if err := json.Unmarshal(meta, &metaEvent); err != nil {
		d.Emit(models.NewErrorEvent("Failed to serialize the report result.", err))
		return
	}
	metaEvent["rawDataPending"] = true
	d.Emit(metaEvent)

	total := (len(rows) + ChunkSize - 1) / ChunkSize
	for i := 0; i < total; i++ {
		end := (i + 1) * ChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		d.Emit(models.NewChunkEvent(rows[i*ChunkSize:end], i, total))
	}

	d.Emit(models.NewDataCompleteEvent(len(rows)))
}

// Fail emits the terminal error event.
func (d *Dispatcher) Fail(message string, err error) {
	d.Emit(models.NewErrorEvent(message, err))
}

// WriteSSE drains events onto an SSE response until the stream closes or the
// client disconnects. Each event is written as `data: <json>` followed by a
// blank line, flushed immediately.
func WriteSSE(w http.ResponseWriter, r *http.Request, events <-chan models.Event, logger *zap.Logger) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error("Response writer does not support flushing, cannot stream")
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	for {
		select {
		case event, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				logger.Error("Event serialization failed", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		case <-r.Context().Done():
			logger.Debug("Client disconnected, stopping event delivery")
			return
		}
	}
}
