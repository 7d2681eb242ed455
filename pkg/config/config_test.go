package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewUserConfigCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toolscan.ini")
	t.Setenv(UserConfigEnv, path)

	cfg, err := NewUserConfig(BaseDefaults())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file on disk: %v", err)
	}
	if cfg.IniPath != path {
		t.Fatalf("expected ini path %s, got %s", path, cfg.IniPath)
	}
	if cfg.GetAnchor() != DefaultAnchor {
		t.Fatalf("unexpected anchor: %s", cfg.GetAnchor())
	}
	if cfg.GetSwitchDelay() != 100*time.Millisecond {
		t.Fatalf("unexpected switch delay: %s", cfg.GetSwitchDelay())
	}
	if cfg.GetApiPort() != DefaultApiPort {
		t.Fatalf("unexpected port: %s", cfg.GetApiPort())
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toolscan.ini")
	t.Setenv(UserConfigEnv, path)

	data := `[toolscan]
reader = file:/tmp/scan.txt
reader = serial:/dev/ttyACM0
mode = Continuous
switch_delay = 250
accept = TOOL-*
accept = KIT-*

[api]
port = 8000
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewUserConfig(BaseDefaults())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	readers := cfg.GetReader()
	if len(readers) != 2 || readers[1] != "serial:/dev/ttyACM0" {
		t.Fatalf("unexpected readers: %v", readers)
	}
	if cfg.GetMode() != "continuous" {
		t.Fatalf("unexpected mode: %s", cfg.GetMode())
	}
	if cfg.GetSwitchDelay() != 250*time.Millisecond {
		t.Fatalf("unexpected switch delay: %s", cfg.GetSwitchDelay())
	}
	if len(cfg.GetAccept()) != 2 {
		t.Fatalf("unexpected accept list: %v", cfg.GetAccept())
	}
	if cfg.GetApiPort() != "8000" {
		t.Fatalf("unexpected port: %s", cfg.GetApiPort())
	}
	// untouched keys keep their defaults
	if cfg.GetFps() != 10 {
		t.Fatalf("unexpected fps: %d", cfg.GetFps())
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toolscan.ini")

	cfg := BaseDefaults()
	cfg.IniPath = path
	cfg.SetDevice("serial:/dev/ttyUSB0")
	cfg.SetReader([]string{"file:/tmp/a", "file:/tmp/b"})

	if err := cfg.SaveConfig(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded := BaseDefaults()
	loaded.IniPath = path
	if err := loaded.LoadConfig(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if loaded.GetDevice() != "serial:/dev/ttyUSB0" {
		t.Fatalf("unexpected device: %s", loaded.GetDevice())
	}
	if len(loaded.GetReader()) != 2 {
		t.Fatalf("unexpected readers: %v", loaded.GetReader())
	}
}
