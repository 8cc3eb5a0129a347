// Package wire carries the broker management interface over a websocket.
//
// Every frame is a JSON object. The client opens with a hello naming itself,
// the server answers with welcome. Requests carry a client-chosen id and are
// answered by a reply with the same id; asynchronous requests are answered by
// an ack holding the broker-assigned correlator, and their results later
// arrive as event frames carrying that correlator.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/theirongolddev/qview/internal/broker"
)

// DefaultPort is the management websocket port used when a URL names only a host.
const DefaultPort = "5674"

// Path is the websocket endpoint path.
const Path = "/qmf"

const (
	kindHello   = "hello"
	kindWelcome = "welcome"
	kindRequest = "request"
	kindReply   = "reply"
	kindEvent   = "event"
)

const (
	opOpenSession = "open-session"
	opSetFilter   = "set-filter"
	opQuery       = "query"
	opCall        = "call"
	opClose       = "close-session"
)

type frame struct {
	Kind string `json:"kind"`
	ID   uint32 `json:"id,omitempty"`

	// hello / welcome
	Console string         `json:"console,omitempty"`
	URL     string         `json:"url,omitempty"`
	Options broker.Options `json:"options,omitempty"`
	Agent   string         `json:"agent,omitempty"`

	// request
	Op     string           `json:"op,omitempty"`
	Async  bool             `json:"async,omitempty"`
	Query  *broker.Query    `json:"query,omitempty"`
	Addr   *broker.DataAddr `json:"addr,omitempty"`
	Method string           `json:"method,omitempty"`
	Args   broker.Map       `json:"args,omitempty"`
	Filter string           `json:"filter,omitempty"`

	// reply
	Correlator uint32        `json:"correlator,omitempty"`
	Data       []broker.Data `json:"data,omitempty"`
	Result     broker.Map    `json:"result,omitempty"`
	Error      string        `json:"error,omitempty"`
	Fault      bool          `json:"fault,omitempty"`

	// event
	Event *eventFrame `json:"event,omitempty"`
}

type eventFrame struct {
	Type       string        `json:"type"`
	Agent      string        `json:"agent,omitempty"`
	Correlator uint32        `json:"correlator,omitempty"`
	Data       []broker.Data `json:"data,omitempty"`
	Arguments  broker.Map    `json:"arguments,omitempty"`
}

func encodeEvent(ev broker.Event) *eventFrame {
	return &eventFrame{
		Type:       ev.Type.String(),
		Agent:      ev.Agent,
		Correlator: ev.Correlator,
		Data:       ev.Data,
		Arguments:  ev.Arguments,
	}
}

func decodeEvent(f *eventFrame) (broker.Event, error) {
	var t broker.EventType
	switch f.Type {
	case "agent-added":
		t = broker.EventAgentAdded
	case "agent-deleted":
		t = broker.EventAgentDeleted
	case "query-response":
		t = broker.EventQueryResponse
	case "method-response":
		t = broker.EventMethodResponse
	case "exception":
		t = broker.EventException
	default:
		return broker.Event{}, fmt.Errorf("unknown event type %q", f.Type)
	}
	return broker.Event{
		Type:       t,
		Agent:      f.Agent,
		Correlator: f.Correlator,
		Data:       f.Data,
		Arguments:  f.Arguments,
	}, nil
}

// replyError turns an error reply back into an error, keeping broker faults typed.
func replyError(f frame) error {
	if f.Error == "" {
		return nil
	}
	if f.Fault {
		return &broker.Fault{Text: f.Error}
	}
	return fmt.Errorf("wire: %s", f.Error)
}

func readFrame(ws *websocket.Conn, timeout time.Duration) (frame, error) {
	if timeout > 0 {
		ws.SetReadDeadline(time.Now().Add(timeout))
	} else {
		ws.SetReadDeadline(time.Time{})
	}
	messageType, message, err := ws.ReadMessage()
	if err != nil {
		return frame{}, err
	}
	if messageType != websocket.TextMessage {
		return frame{}, fmt.Errorf("wire: unexpected message type %d", messageType)
	}
	var f frame
	dec := json.NewDecoder(bytes.NewReader(message))
	dec.UseNumber()
	if err := dec.Decode(&f); err != nil {
		return frame{}, fmt.Errorf("wire: decoding frame: %w", err)
	}
	return f, nil
}

// NormalizeURL maps console-style broker URLs onto websocket URLs:
// "localhost" and "host:port" become ws://host:port/qmf; amqp and tcp schemes
// map to ws, amqps to wss. Explicit ws/wss URLs pass through.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty broker url")
	}
	if !strings.Contains(raw, "://") {
		raw = "ws://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing broker url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "amqp", "tcp":
		u.Scheme = "ws"
	case "amqps", "ssl":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported broker url scheme %q", u.Scheme)
	}
	if u.Port() == "" {
		u.Host = u.Hostname() + ":" + DefaultPort
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = Path
	}
	u.User = nil
	return u.String(), nil
}
