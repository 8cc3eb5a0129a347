package output

import (
	"time"

	"github.com/theirongolddev/qview/internal/broker"
)

// ErrorResponse is the standard structured error format
type ErrorResponse struct {
	Error   string `json:"error" yaml:"error"`
	Code    string `json:"code,omitempty" yaml:"code,omitempty"`
	Details string `json:"details,omitempty" yaml:"details,omitempty"`
	Hint    string `json:"hint,omitempty" yaml:"hint,omitempty"`
}

// QueueRow is one queue as listed by 'qview queues'.
type QueueRow struct {
	Name       string         `json:"name" yaml:"name"`
	Messages   uint64         `json:"messages" yaml:"messages"`
	Bytes      uint64         `json:"bytes" yaml:"bytes"`
	System     bool           `json:"system,omitempty" yaml:"system,omitempty"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// QueuesResponse is the output of 'qview queues'.
type QueuesResponse struct {
	GeneratedAt time.Time  `json:"generated_at" yaml:"generated_at"`
	Broker      string     `json:"broker" yaml:"broker"`
	Queues      []QueueRow `json:"queues" yaml:"queues"`
}

// ExportedMessage is one message written by 'qview export'.
type ExportedMessage struct {
	ID          uint64     `json:"id" yaml:"id"`
	Header      broker.Map `json:"header" yaml:"header"`
	ContentType string     `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Body        string     `json:"body" yaml:"body"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// ExportResponse is the output of 'qview export'.
type ExportResponse struct {
	GeneratedAt time.Time         `json:"generated_at" yaml:"generated_at"`
	Broker      string            `json:"broker" yaml:"broker"`
	Queue       string            `json:"queue" yaml:"queue"`
	Messages    []ExportedMessage `json:"messages" yaml:"messages"`
}

// PurgeResponse is the output of 'qview purge'.
type PurgeResponse struct {
	Queue     string `json:"queue" yaml:"queue"`
	Requested uint64 `json:"requested" yaml:"requested"`
	Before    uint64 `json:"before" yaml:"before"`
	After     uint64 `json:"after" yaml:"after"`
}
