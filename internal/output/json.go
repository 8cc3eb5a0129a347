package output

import (
	"encoding/json"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// JSON outputs data as JSON to the formatter's writer
func (f *Formatter) JSON(v any) error {
	return WriteJSON(f.writer, v, f.pretty)
}

// YAML outputs data as YAML to the formatter's writer
func (f *Formatter) YAML(v any) error {
	return WriteYAML(f.writer, v)
}

// WriteJSON writes data as JSON to the given writer
func WriteJSON(w io.Writer, v any, pretty bool) error {
	encoder := json.NewEncoder(w)
	if pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(v)
}

// WriteYAML writes data as a YAML document to the given writer
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// Timestamp returns the current UTC time formatted for JSON output
func Timestamp() time.Time {
	return time.Now().UTC()
}
