package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/theirongolddev/qview/internal/tui/theme"
)

// CLIError represents a structured CLI error with remediation hints.
type CLIError struct {
	Message string // What failed
	Cause   string // Why it failed (optional)
	Hint    string // Fastest command/action to fix it (optional)
	Code    string // Error code for programmatic handling (optional)
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	return e.Message
}

// NewCLIError creates a new CLI error with just a message.
func NewCLIError(msg string) *CLIError {
	return &CLIError{Message: msg}
}

// WithCause adds a cause to the error.
func (e *CLIError) WithCause(cause string) *CLIError {
	e.Cause = cause
	return e
}

// WithHint adds a remediation hint to the error.
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// WithCode adds an error code to the error.
func (e *CLIError) WithCode(code string) *CLIError {
	e.Code = code
	return e
}

func isStderrTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// FormatCLIError formats a CLIError for terminal output with colors.
// Returns plain text if stderr is not a terminal or NO_COLOR is set.
func FormatCLIError(e *CLIError) string {
	return formatCLIError(e, isStderrTerminal() && !theme.NoColorEnabled())
}

func formatCLIError(e *CLIError, useColor bool) string {
	label := func(s string, c lipgloss.Color, bold bool) string { return s }
	if useColor {
		label = func(s string, c lipgloss.Color, bold bool) string {
			return lipgloss.NewStyle().Foreground(c).Bold(bold).Render(s)
		}
	}
	t := theme.Current()

	var sb strings.Builder
	sb.WriteString(label("Error: ", t.Error, true))
	sb.WriteString(e.Message)
	if e.Code != "" {
		sb.WriteString(" ")
		sb.WriteString(label("["+e.Code+"]", t.Overlay, false))
	}
	sb.WriteString("\n")
	if e.Cause != "" {
		sb.WriteString(label("  Cause: ", t.Subtext, false))
		sb.WriteString(e.Cause)
		sb.WriteString("\n")
	}
	if e.Hint != "" {
		sb.WriteString(label("  Hint: ", t.Info, false))
		sb.WriteString(e.Hint)
		sb.WriteString("\n")
	}
	return sb.String()
}

// PrintCLIError writes err to w. A CLIError is shown in full; text output
// gets the formatted form, structured output an ErrorResponse.
func PrintCLIError(w io.Writer, err error, format Format) {
	cliErr, ok := err.(*CLIError)
	if !ok {
		cliErr = NewCLIError(err.Error())
	}
	switch format {
	case FormatJSON:
		_ = WriteJSON(w, cliErr.Response(), true)
	case FormatYAML:
		_ = WriteYAML(w, cliErr.Response())
	default:
		fmt.Fprint(w, FormatCLIError(cliErr))
	}
}

// Response converts e to its serialisable form.
func (e *CLIError) Response() ErrorResponse {
	return ErrorResponse{Error: e.Message, Code: e.Code, Details: e.Cause, Hint: e.Hint}
}

// Common error hints for frequent scenarios
var (
	HintBrokerUnreachable = "Check the broker URL (--broker or [broker] url) and that the management bridge is listening"
	HintQueueNotFound     = "Run 'qview queues' to see the queues on the broker"
	HintConfigNotFound    = "Run 'qview config init' to create a default configuration"
	HintConfigInvalid     = "Check config syntax with 'qview config show' or edit ~/.config/qview/config.toml"
	HintNotATerminal      = "The dashboard needs a terminal; use 'qview queues' for plain output"
)

// BrokerUnreachableError reports a failed connection.
func BrokerUnreachableError(url string, cause error) *CLIError {
	e := NewCLIError(fmt.Sprintf("cannot connect to broker at %s", url)).
		WithCode("BROKER_UNREACHABLE").
		WithHint(HintBrokerUnreachable)
	if cause != nil {
		e.WithCause(cause.Error())
	}
	return e
}

// QueueNotFoundError reports an unknown queue.
func QueueNotFoundError(queue string) *CLIError {
	return NewCLIError(fmt.Sprintf("queue '%s' not found", queue)).
		WithCode("QUEUE_NOT_FOUND").
		WithHint(HintQueueNotFound)
}

// ConfigInvalidError reports a config that failed to load.
func ConfigInvalidError(cause error) *CLIError {
	return NewCLIError("invalid configuration").
		WithCode("CONFIG_INVALID").
		WithCause(cause.Error()).
		WithHint(HintConfigInvalid)
}
