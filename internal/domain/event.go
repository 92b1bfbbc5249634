package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// SmoothedSample is the published form of one year after smoothing.
type SmoothedSample struct {
	Year        int                   `json:"year"`
	Values      map[FieldName]Reading `json:"values"`
	Window      int                   `json:"window"`
	Fields      []FieldName           `json:"fields"`
	ProcessedAt time.Time             `json:"processed_at"`
}
