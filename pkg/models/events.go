package models

// Event is one server-sent payload in the report stream. Event shapes vary
// by pipeline stage (processing updates, data chunks, terminal results), so
// they are built as plain JSON objects rather than one wide struct.
type Event map[string]any

// Status returns the event's status field, or "" when absent (chunk events).
func (e Event) Status() string {
	s, _ := e["status"].(string)
	return s
}

// IsTerminal reports whether the stream ends after this event.
func (e Event) IsTerminal() bool {
	switch e.Status() {
	case "complete", "error":
		return true
	}
	_, done := e["rawDataComplete"]
	return done
}

// NewProcessingEvent announces a pipeline milestone to the client.
func NewProcessingEvent(message string) Event {
	return Event{"status": "processing", "message": message}
}

// NewProcessingEventWithData announces a milestone with an extra payload field.
func NewProcessingEventWithData(message, key string, value any) Event {
	return Event{"status": "processing", "message": message, key: value}
}

// NewErrorEvent is the terminal event for an unrecoverable pipeline failure.
func NewErrorEvent(message string, err error) Event {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return Event{"status": "error", "message": message, "error": detail}
}

// NewChunkEvent carries one fixed-size slice of the raw data array.
func NewChunkEvent(chunk []Row, index, total int) Event {
	return Event{"rawDataChunk": chunk, "chunkIndex": index, "totalChunks": total}
}

// NewDataCompleteEvent marks the end of a chunked raw data transfer.
func NewDataCompleteEvent(rowCount int) Event {
	return Event{"rawDataComplete": true, "rowCount": rowCount}
}
