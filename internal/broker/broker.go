// Package broker defines the management-plane view of a message broker that the
// console talks to: connections, management sessions, events, queried objects
// and remote method calls. Concrete transports live in subpackages.
package broker

import (
	"context"
	"errors"
	"fmt"
)

// Well-known names used by the console.
const (
	// Package is the schema package of every broker-side management object.
	Package = "org.apache.qpid.broker"

	// ClassBroker is the schema class of the broker singleton.
	ClassBroker = "broker"
	// ClassQueue is the schema class of queue objects.
	ClassQueue = "queue"

	// DefaultURL is used by the localhost connect shortcut.
	DefaultURL = "localhost"
	// DefaultSessionOptions are the session options used by the localhost shortcut.
	DefaultSessionOptions = "{strict-security:False}"

	// AgentFilter limits agent discovery to broker agents.
	AgentFilter = "[eq, _product, [quote, 'qpidd']]"
)

var (
	// ErrNotConnected is returned when a call needs an open session.
	ErrNotConnected = errors.New("broker: not connected")
	// ErrAgentUnavailable is returned when the broker singleton was never found.
	ErrAgentUnavailable = errors.New("broker: agent unavailable")
	// ErrClosed is returned by operations on a closed connection or session.
	ErrClosed = errors.New("broker: closed")
)

// Fault is a broker-side failure carrying a human-readable message.
type Fault struct {
	Text string
}

func (f *Fault) Error() string {
	return "broker fault: " + f.Text
}

// NewFault returns a Fault with a formatted message.
func NewFault(format string, args ...any) *Fault {
	return &Fault{Text: fmt.Sprintf(format, args...)}
}

// EventType discriminates inbound session events.
type EventType int

const (
	EventAgentAdded EventType = iota + 1
	EventAgentDeleted
	EventQueryResponse
	EventMethodResponse
	EventException
)

func (t EventType) String() string {
	switch t {
	case EventAgentAdded:
		return "agent-added"
	case EventAgentDeleted:
		return "agent-deleted"
	case EventQueryResponse:
		return "query-response"
	case EventMethodResponse:
		return "method-response"
	case EventException:
		return "exception"
	default:
		return "unknown"
	}
}

// DataAddr addresses a management object on an agent.
type DataAddr struct {
	Agent string `json:"agent" yaml:"agent"`
	Name  string `json:"name" yaml:"name"`
	Class string `json:"class,omitempty" yaml:"class,omitempty"`
}

// IsZero reports whether the address is unset.
func (a DataAddr) IsZero() bool {
	return a.Agent == "" && a.Name == ""
}

// Data is a management object returned by a query.
type Data struct {
	Addr       DataAddr `json:"addr" yaml:"addr"`
	Properties Map      `json:"properties" yaml:"properties"`
}

// Valid reports whether the object carries an address.
func (d Data) Valid() bool {
	return !d.Addr.IsZero()
}

// Query selects objects of one schema class.
type Query struct {
	Class   string `json:"class"`
	Package string `json:"package"`
}

// QueueQuery is the recurring object-list query.
var QueueQuery = Query{Class: ClassQueue, Package: Package}

// BrokerQuery fetches the broker singleton.
var BrokerQuery = Query{Class: ClassBroker, Package: Package}

// Event is one inbound session event.
type Event struct {
	Type       EventType
	Agent      string
	Correlator uint32
	Data       []Data
	Arguments  Map
}

// ErrorText extracts the human-readable message of an exception event.
// Absent text yields an empty string.
func (e Event) ErrorText() string {
	if text := e.Arguments.String("error_text"); text != "" {
		return text
	}
	if len(e.Data) > 0 {
		return e.Data[0].Properties.String("error_text")
	}
	return ""
}

// Dialer opens transport connections.
type Dialer interface {
	Dial(ctx context.Context, url string, opts Options) (Connection, error)
}

// Connection is an open transport connection.
type Connection interface {
	OpenSession(ctx context.Context, opts Options) (Session, error)
	Close() error
}

// Session is an open management session. Implementations deliver every
// asynchronous response on Events; synchronous calls consume their own reply.
type Session interface {
	Events() <-chan Event
	BrokerAgent() string
	SetAgentFilter(filter string) error

	Query(ctx context.Context, agent string, q Query) ([]Data, error)
	QueryAsync(agent string, q Query) (uint32, error)

	CallMethod(ctx context.Context, addr DataAddr, method string, args Map) (Map, error)
	CallMethodAsync(addr DataAddr, method string, args Map) (uint32, error)

	Close() error
}
