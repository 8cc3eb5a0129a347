package worker

import "github.com/theirongolddev/qview/internal/broker"

// Message is anything the worker posts to its mailbox. Consumers type-switch
// on the concrete types below.
type Message any

// StatusMsg reports connection progress in human-readable form.
type StatusMsg struct {
	Text  string
	State State
}

// ConnectedMsg reports that the session opened or closed.
type ConnectedMsg struct {
	Connected bool
}

// ErrorMsg carries a broker fault or a failed request.
type ErrorMsg struct {
	Text string
}

// ObjectMsg carries one queue object from a poll cycle.
type ObjectMsg struct {
	Object broker.Data
	Epoch  uint64
}

// BatchCompleteMsg follows the last ObjectMsg of a poll cycle.
type BatchCompleteMsg struct {
	Epoch uint64
}

// HeaderIDsMsg lists the message ids a header fetch is about to request.
// One HeadersMsg follows for each id, in no particular order. When Err is
// set the id list could not be read and no HeadersMsg follows.
type HeaderIDsMsg struct {
	Queue string
	Epoch uint64
	IDs   []uint64
	Err   error
}

// HeadersMsg answers one header request. Args are the arguments the call was
// issued with; they identify the message the header belongs to.
type HeadersMsg struct {
	Queue  string
	ID     uint64
	Epoch  uint64
	Header broker.Map
	Args   broker.Map
	Err    error
}

// MessageRemovedMsg answers a RemoveMessage request.
type MessageRemovedMsg struct {
	Queue string
	Args  broker.Map
	Err   error
}

// PurgedMsg answers a Purge request.
type PurgedMsg struct {
	Queue string
	Count uint64
	Err   error
}

// BodyMsg answers an asynchronous body fetch. Text is Body decoded for display.
type BodyMsg struct {
	Queue       string
	ID          uint64
	Args        broker.Map
	Body        any
	ContentType string
	Text        string
	Err         error
}
