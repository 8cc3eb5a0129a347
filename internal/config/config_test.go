package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/theirongolddev/qview/internal/queuetable"
	"github.com/theirongolddev/qview/internal/watcher"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Broker.URL != "localhost" {
		t.Errorf("Broker.URL = %q, want localhost", cfg.Broker.URL)
	}
	if d, err := cfg.RefreshInterval(); err != nil || d != DefaultRefreshInterval {
		t.Errorf("RefreshInterval() = %v, %v, want %v", d, err, DefaultRefreshInterval)
	}
	if got := len(cfg.Columns()); got != len(queuetable.DefaultColumns()) {
		t.Errorf("len(Columns()) = %d, want %d", got, len(queuetable.DefaultColumns()))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Path != "" {
		t.Errorf("Path = %q, want empty", cfg.Path)
	}
	if cfg.UI.Theme != "auto" || cfg.UI.Icons != "auto" {
		t.Errorf("UI = %+v, want auto theme and icons", cfg.UI)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
[broker]
url = "amqp://broker.example:5672"
connection_options = "{username:guest, password:guest}"

[refresh]
interval = "250ms"
paused = true

[headers]
summary_properties = ["MessageId"]
body_properties = ["ContentType"]

[queues]
show_system = true

[[queues.columns]]
name = "name"
header = "Queue"

[[queues.columns]]
name = "byteDepth"
format = "B"
align = "right"

[ui]
theme = "nord"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Broker.URL != "amqp://broker.example:5672" {
		t.Errorf("Broker.URL = %q", cfg.Broker.URL)
	}
	if d, _ := cfg.RefreshInterval(); d != 250*time.Millisecond {
		t.Errorf("RefreshInterval() = %v, want 250ms", d)
	}
	if !cfg.Refresh.Paused || !cfg.Queues.ShowSystem {
		t.Errorf("Paused = %v, ShowSystem = %v, want true, true", cfg.Refresh.Paused, cfg.Queues.ShowSystem)
	}
	class := cfg.Classification()
	if len(class.Summary) != 1 || class.Summary[0] != "MessageId" {
		t.Errorf("Summary = %v, want [MessageId]", class.Summary)
	}

	cols := cfg.Columns()
	if len(cols) != 2 {
		t.Fatalf("len(Columns()) = %d, want 2", len(cols))
	}
	if cols[0].Header != "Queue" || cols[0].Align != queuetable.AlignLeft {
		t.Errorf("Columns()[0] = %+v", cols[0])
	}
	if cols[1].Header != "byteDepth" || cols[1].Format != queuetable.FormatBytes || cols[1].Align != queuetable.AlignRight {
		t.Errorf("Columns()[1] = %+v", cols[1])
	}

	// Sections left out keep their defaults.
	if cfg.Headers.Placeholder == "" || cfg.Log.Level != "info" {
		t.Errorf("Placeholder = %q, Log.Level = %q", cfg.Headers.Placeholder, cfg.Log.Level)
	}
	if cfg.Path != path {
		t.Errorf("Path = %q, want %q", cfg.Path, path)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", "[broker\n", "parsing config"},
		{"interval", "[refresh]\ninterval = \"soon\"\n", "refresh.interval"},
		{"negative interval", "[refresh]\ninterval = \"-1s\"\n", "refresh.interval"},
		{"options", "[broker]\nconnection_options = \"{a:\"\n", "broker.connection_options"},
		{"level", "[log]\nlevel = \"loud\"\n", "log.level"},
		{"theme", "[ui]\ntheme = \"neon\"\n", "ui.theme"},
		{"icons", "[ui]\nicons = \"emoji\"\n", "ui.icons"},
		{"format", "[[queues.columns]]\nname = \"x\"\nformat = \"Q\"\n", "unknown format"},
		{"align", "[[queues.columns]]\nname = \"x\"\nalign = \"middle\"\n", "unknown align"},
		{"column name", "[[queues.columns]]\nheader = \"x\"\n", "name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QVIEW_BROKER_URL", "ws://bridge:9000/qmf")
	t.Setenv("QVIEW_REFRESH_INTERVAL", "5s")
	t.Setenv("QVIEW_LOG_LEVEL", "debug")
	t.Setenv("QVIEW_THEME", "plain")

	cfg, err := Load(writeConfig(t, "[broker]\nurl = \"other\"\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Broker.URL != "ws://bridge:9000/qmf" {
		t.Errorf("Broker.URL = %q", cfg.Broker.URL)
	}
	if d, _ := cfg.RefreshInterval(); d != 5*time.Second {
		t.Errorf("RefreshInterval() = %v, want 5s", d)
	}
	if cfg.Log.Level != "debug" || cfg.UI.Theme != "plain" {
		t.Errorf("Log.Level = %q, UI.Theme = %q", cfg.Log.Level, cfg.UI.Theme)
	}
}

func TestDefaultPathWithXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got, want := DefaultPath(), filepath.Join("/tmp/xdg", "qview", "config.toml"); got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}
}

func TestPrintRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	if err := Print(Default(), &buf); err != nil {
		t.Fatalf("Print() error: %v", err)
	}

	var cfg Config
	if _, err := toml.Decode(buf.String(), &cfg); err != nil {
		t.Fatalf("printed config does not parse: %v\n%s", err, buf.String())
	}
	if cfg.Broker.URL != Default().Broker.URL {
		t.Errorf("Broker.URL = %q", cfg.Broker.URL)
	}
	if len(cfg.Queues.Columns) != len(Default().Queues.Columns) {
		t.Errorf("len(Queues.Columns) = %d", len(cfg.Queues.Columns))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestCreateDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path, err := CreateDefault()
	if err != nil {
		t.Fatalf("CreateDefault() error: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Errorf("Load(created) error: %v", err)
	}
	if _, err := CreateDefault(); err == nil {
		t.Error("second CreateDefault() succeeded")
	}
}

func TestWatchReloads(t *testing.T) {
	path := writeConfig(t, "[ui]\ntheme = \"nord\"\n")

	var mu sync.Mutex
	var got []*Config
	stop, err := Watch(path, func(cfg *Config) {
		mu.Lock()
		got = append(got, cfg)
		mu.Unlock()
	}, nil, watcher.WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("Watch() error: %v", err)
	}
	defer stop()

	// Invalid content is skipped.
	if err := os.WriteFile(path, []byte("[ui]\ntheme = \"neon\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(150 * time.Millisecond)
	if err := os.WriteFile(path, []byte("[ui]\ntheme = \"latte\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		var theme string
		if n > 0 {
			theme = got[n-1].UI.Theme
		}
		mu.Unlock()
		if theme == "latte" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("reloaded config with theme latte never delivered")
}

func TestRefreshIntervalBareSeconds(t *testing.T) {
	cfg := Default()
	cfg.Refresh.Interval = "2"
	got, err := cfg.RefreshInterval()
	if err != nil {
		t.Fatalf("RefreshInterval() error: %v", err)
	}
	if got != 2*time.Second {
		t.Errorf("RefreshInterval() = %v, want 2s", got)
	}
}
