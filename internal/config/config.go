package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/theirongolddev/qview/internal/broker"
	"github.com/theirongolddev/qview/internal/headertree"
	"github.com/theirongolddev/qview/internal/logging"
	"github.com/theirongolddev/qview/internal/queuetable"
	"github.com/theirongolddev/qview/internal/util"
)

// Config represents the main configuration
type Config struct {
	Broker  BrokerConfig  `toml:"broker" json:"broker" yaml:"broker"`
	Refresh RefreshConfig `toml:"refresh" json:"refresh" yaml:"refresh"`
	Headers HeadersConfig `toml:"headers" json:"headers" yaml:"headers"`
	Queues  QueuesConfig  `toml:"queues" json:"queues" yaml:"queues"`
	Log     LogConfig     `toml:"log" json:"log" yaml:"log"`
	UI      UIConfig      `toml:"ui" json:"ui" yaml:"ui"`

	// Path the config was loaded from; empty for defaults.
	Path string `toml:"-" json:"path,omitempty" yaml:"path,omitempty"`
}

// BrokerConfig says where and how to connect.
type BrokerConfig struct {
	URL               string `toml:"url" json:"url" yaml:"url"`
	ConnectionOptions string `toml:"connection_options" json:"connection_options" yaml:"connection_options"` // "{key:value, ...}"
	SessionOptions    string `toml:"session_options" json:"session_options" yaml:"session_options"`
	ConnectOnStart    bool   `toml:"connect_on_start" json:"connect_on_start" yaml:"connect_on_start"`
}

// RefreshConfig controls the queue poll.
type RefreshConfig struct {
	Interval string `toml:"interval" json:"interval" yaml:"interval"` // Go duration, e.g. "1s"
	Paused   bool   `toml:"paused" json:"paused" yaml:"paused"`
}

// HeadersConfig controls how message headers are grouped in the tree.
type HeadersConfig struct {
	SummaryProperties []string `toml:"summary_properties" json:"summary_properties" yaml:"summary_properties"`
	BodyProperties    []string `toml:"body_properties" json:"body_properties" yaml:"body_properties"`
	Placeholder       string   `toml:"placeholder" json:"placeholder" yaml:"placeholder"`
	EmptyBodyLabel    string   `toml:"empty_body_label" json:"empty_body_label" yaml:"empty_body_label"`
}

// QueuesConfig controls the queue table.
type QueuesConfig struct {
	ShowSystem bool           `toml:"show_system" json:"show_system" yaml:"show_system"`
	Columns    []ColumnConfig `toml:"columns" json:"columns" yaml:"columns"`
}

// ColumnConfig is one [[queues.columns]] entry.
type ColumnConfig struct {
	Name   string `toml:"name" json:"name" yaml:"name"`
	Header string `toml:"header" json:"header" yaml:"header"`
	Format string `toml:"format" json:"format" yaml:"format"` // "", "N" or "B"
	Align  string `toml:"align" json:"align" yaml:"align"`  // "left" or "right"
}

// LogConfig controls the diagnostic log. The TUI owns the terminal, so logs
// go to a file or nowhere.
type LogConfig struct {
	File  string `toml:"file" json:"file" yaml:"file"`
	Level string `toml:"level" json:"level" yaml:"level"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	Theme string `toml:"theme" json:"theme" yaml:"theme"` // auto, mocha, macchiato, latte, nord, plain
	Icons string `toml:"icons" json:"icons" yaml:"icons"` // auto, unicode, ascii
}

// DefaultRefreshInterval matches the worker's poll timeout.
const DefaultRefreshInterval = time.Second

// Themes lists the accepted [ui] theme names.
var Themes = []string{"auto", "mocha", "macchiato", "latte", "light", "nord", "plain"}

// IconSets lists the accepted [ui] icons names.
var IconSets = []string{"auto", "unicode", "ascii"}

// DefaultPath returns the default config file path
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "qview", "config.toml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "qview", "config.toml")
}

// Default returns the built-in configuration.
func Default() *Config {
	class := headertree.DefaultClassification()
	return &Config{
		Broker: BrokerConfig{
			URL:            broker.DefaultURL,
			SessionOptions: broker.DefaultSessionOptions,
			ConnectOnStart: true,
		},
		Refresh: RefreshConfig{Interval: DefaultRefreshInterval.String()},
		Headers: HeadersConfig{
			SummaryProperties: class.Summary,
			BodyProperties:    class.Body,
			Placeholder:       headertree.DefaultPlaceholder,
			EmptyBodyLabel:    headertree.DefaultEmptyBody,
		},
		Queues: QueuesConfig{Columns: columnConfigs(queuetable.DefaultColumns())},
		Log:    LogConfig{Level: "info"},
		UI:     UIConfig{Theme: "auto", Icons: "auto"},
	}
}

// Load reads the config at path (DefaultPath when empty). A missing file
// yields the defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
		cfg.Path = path
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills values a file left empty.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Broker.URL == "" {
		c.Broker.URL = d.Broker.URL
	}
	if c.Refresh.Interval == "" {
		c.Refresh.Interval = d.Refresh.Interval
	}
	if c.Headers.Placeholder == "" {
		c.Headers.Placeholder = d.Headers.Placeholder
	}
	if c.Headers.EmptyBodyLabel == "" {
		c.Headers.EmptyBodyLabel = d.Headers.EmptyBodyLabel
	}
	if len(c.Queues.Columns) == 0 {
		c.Queues.Columns = d.Queues.Columns
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.Icons == "" {
		c.UI.Icons = d.UI.Icons
	}
}

// applyEnv applies QVIEW_* overrides.
func (c *Config) applyEnv() {
	if url := os.Getenv("QVIEW_BROKER_URL"); url != "" {
		c.Broker.URL = url
	}
	if interval := os.Getenv("QVIEW_REFRESH_INTERVAL"); interval != "" {
		c.Refresh.Interval = interval
	}
	if level := os.Getenv("QVIEW_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if theme := os.Getenv("QVIEW_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// Validate checks values that would otherwise fail later.
func (c *Config) Validate() error {
	if _, err := c.RefreshInterval(); err != nil {
		return err
	}
	if _, err := broker.ParseOptions(c.Broker.ConnectionOptions); err != nil {
		return fmt.Errorf("broker.connection_options: %w", err)
	}
	if _, err := broker.ParseOptions(c.Broker.SessionOptions); err != nil {
		return fmt.Errorf("broker.session_options: %w", err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if !oneOf(c.UI.Theme, Themes) {
		return fmt.Errorf("ui.theme: unknown theme %q (want one of %s)", c.UI.Theme, strings.Join(Themes, ", "))
	}
	if !oneOf(c.UI.Icons, IconSets) {
		return fmt.Errorf("ui.icons: unknown icon set %q (want one of %s)", c.UI.Icons, strings.Join(IconSets, ", "))
	}
	for i, col := range c.Queues.Columns {
		if col.Name == "" {
			return fmt.Errorf("queues.columns[%d]: name is required", i)
		}
		switch col.Format {
		case queuetable.FormatText, queuetable.FormatNumeric, queuetable.FormatBytes:
		default:
			return fmt.Errorf("queues.columns[%d]: unknown format %q", i, col.Format)
		}
		switch strings.ToLower(col.Align) {
		case "", "left", "right":
		default:
			return fmt.Errorf("queues.columns[%d]: unknown align %q", i, col.Align)
		}
	}
	return nil
}

func oneOf(name string, names []string) bool {
	for _, t := range names {
		if strings.EqualFold(name, t) {
			return true
		}
	}
	return false
}

// RefreshInterval parses refresh.interval.
func (c *Config) RefreshInterval() (time.Duration, error) {
	d, err := util.ParseDurationWithDefault(c.Refresh.Interval, time.Second)
	if err != nil {
		return 0, fmt.Errorf("refresh.interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("refresh.interval: must be positive, got %s", d)
	}
	return d, nil
}

// Classification returns the header grouping for the tree.
func (c *Config) Classification() headertree.Classification {
	class := headertree.DefaultClassification()
	if c.Headers.SummaryProperties != nil {
		class.Summary = c.Headers.SummaryProperties
	}
	if c.Headers.BodyProperties != nil {
		class.Body = c.Headers.BodyProperties
	}
	return class
}

// HeaderOptions returns the tree options the config sets.
func (c *Config) HeaderOptions() []headertree.Option {
	return []headertree.Option{
		headertree.WithPlaceholder(c.Headers.Placeholder),
		headertree.WithEmptyBodyLabel(c.Headers.EmptyBodyLabel),
	}
}

// Columns returns the queue table columns.
func (c *Config) Columns() []queuetable.Column {
	out := make([]queuetable.Column, 0, len(c.Queues.Columns))
	for _, col := range c.Queues.Columns {
		header := col.Header
		if header == "" {
			header = col.Name
		}
		align := queuetable.AlignLeft
		if strings.EqualFold(col.Align, "right") {
			align = queuetable.AlignRight
		}
		out = append(out, queuetable.Column{Name: col.Name, Header: header, Align: align, Format: col.Format})
	}
	return out
}

func columnConfigs(cols []queuetable.Column) []ColumnConfig {
	out := make([]ColumnConfig, len(cols))
	for i, col := range cols {
		align := "left"
		if col.Align == queuetable.AlignRight {
			align = "right"
		}
		out[i] = ColumnConfig{Name: col.Name, Header: col.Header, Format: col.Format, Align: align}
	}
	return out
}

// CreateDefault creates a default config file
func CreateDefault() (string, error) {
	path := DefaultPath()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config file already exists: %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := Print(Default(), f); err != nil {
		return "", err
	}
	return path, nil
}

// Print writes config to a writer in TOML format
func Print(cfg *Config, w io.Writer) error {
	var b strings.Builder

	fmt.Fprintln(&b, "# qview configuration")
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "[broker]")
	fmt.Fprintln(&b, "# Broker URL: host[:port], amqp://, amqps:// or ws(s):// for the management bridge")
	fmt.Fprintln(&b, "# Environment variable: QVIEW_BROKER_URL")
	fmt.Fprintf(&b, "url = %q\n", cfg.Broker.URL)
	fmt.Fprintln(&b, "# Option maps in {key:value, ...} form")
	fmt.Fprintf(&b, "connection_options = %q\n", cfg.Broker.ConnectionOptions)
	fmt.Fprintf(&b, "session_options = %q\n", cfg.Broker.SessionOptions)
	fmt.Fprintf(&b, "connect_on_start = %t\n", cfg.Broker.ConnectOnStart)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "[refresh]")
	fmt.Fprintln(&b, "# How often the queue list is polled (QVIEW_REFRESH_INTERVAL)")
	fmt.Fprintf(&b, "interval = %q\n", cfg.Refresh.Interval)
	fmt.Fprintf(&b, "paused = %t\n", cfg.Refresh.Paused)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "[headers]")
	fmt.Fprintln(&b, "# Header properties shown on a message's summary line")
	fmt.Fprintf(&b, "summary_properties = %s\n", tomlList(cfg.Headers.SummaryProperties))
	fmt.Fprintln(&b, "# Header properties grouped under the message body")
	fmt.Fprintf(&b, "body_properties = %s\n", tomlList(cfg.Headers.BodyProperties))
	fmt.Fprintf(&b, "placeholder = %q\n", cfg.Headers.Placeholder)
	fmt.Fprintf(&b, "empty_body_label = %q\n", cfg.Headers.EmptyBodyLabel)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "[queues]")
	fmt.Fprintln(&b, "# Show exclusive and management queues")
	fmt.Fprintf(&b, "show_system = %t\n", cfg.Queues.ShowSystem)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "# Table columns; format is \"\" (as is), \"N\" (number) or \"B\" (bytes)")
	for _, col := range cfg.Queues.Columns {
		fmt.Fprintln(&b, "[[queues.columns]]")
		fmt.Fprintf(&b, "name = %q\n", col.Name)
		fmt.Fprintf(&b, "header = %q\n", col.Header)
		fmt.Fprintf(&b, "format = %q\n", col.Format)
		fmt.Fprintf(&b, "align = %q\n", col.Align)
		fmt.Fprintln(&b)
	}

	fmt.Fprintln(&b, "[log]")
	fmt.Fprintln(&b, "# Empty file disables logging; level is debug, info, warn or error (QVIEW_LOG_LEVEL)")
	fmt.Fprintf(&b, "file = %q\n", cfg.Log.File)
	fmt.Fprintf(&b, "level = %q\n", cfg.Log.Level)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "[ui]")
	fmt.Fprintf(&b, "# One of: %s (QVIEW_THEME)\n", strings.Join(Themes, ", "))
	fmt.Fprintf(&b, "theme = %q\n", cfg.UI.Theme)
	fmt.Fprintf(&b, "# One of: %s (QVIEW_ICONS)\n", strings.Join(IconSets, ", "))
	fmt.Fprintf(&b, "icons = %q\n", cfg.UI.Icons)

	_, err := io.WriteString(w, b.String())
	return err
}

func tomlList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
