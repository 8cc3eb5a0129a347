package output

import "io"

// Emit writes v as JSON or YAML, or calls textFn for text output.
func (f *Formatter) Emit(v any, textFn func(w io.Writer) error) error {
	switch f.format {
	case FormatJSON:
		return f.JSON(v)
	case FormatYAML:
		return f.YAML(v)
	default:
		return textFn(f.writer)
	}
}
