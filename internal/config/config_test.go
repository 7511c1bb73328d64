package config

import (
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.BindHost != "localhost" {
		t.Errorf("expected default bind host localhost, got %q", cfg.BindHost)
	}
	if cfg.BindPort != 80 {
		t.Errorf("expected default port 80, got %d", cfg.BindPort)
	}
	if cfg.IndexFile != "index.html" {
		t.Errorf("expected default index file index.html, got %q", cfg.IndexFile)
	}
	if cfg.UIRefreshRate != 100*time.Millisecond {
		t.Errorf("expected default UI refresh 100ms, got %v", cfg.UIRefreshRate)
	}
	if cfg.Logger == nil {
		t.Error("expected a default logger")
	}
}

func TestParseFlags_HostAliasOverridesHost(t *testing.T) {
	cfg, err := ParseFlags([]string{"-h", "0.0.0.0", "-m", "127.0.0.1", "-d", "."})
	if err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	if cfg.BindHost != "127.0.0.1" {
		t.Errorf("expected -m to override -h, got %q", cfg.BindHost)
	}
}

func TestParseFlags_UploadAndDirFlags(t *testing.T) {
	cfg, err := ParseFlags([]string{"-u", "--nodirs", "-d", "."})
	if err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	if !cfg.UploadEnabled {
		t.Error("expected -u to enable uploads")
	}
	if !cfg.DisableDirs {
		t.Error("expected --nodirs to disable listings")
	}
}

func TestValidate_RejectsNonDirectoryRoot(t *testing.T) {
	cfg := Default()
	cfg.ServeRoot = "/does/not/exist/at/all"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate to reject a nonexistent serve root")
	}
}

func TestValidate_NormalizesZeroDurations(t *testing.T) {
	cfg := Default()
	cfg.ServeRoot = t.TempDir()
	cfg.UIRefreshRate = 0
	cfg.IdleTimeout = 0
	cfg.WireBufferSize = 0
	cfg.IndexFile = ""

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.UIRefreshRate != 100*time.Millisecond {
		t.Errorf("expected UIRefreshRate normalized to 100ms, got %v", cfg.UIRefreshRate)
	}
	if cfg.IdleTimeout != 30*time.Second {
		t.Errorf("expected IdleTimeout normalized to 30s, got %v", cfg.IdleTimeout)
	}
	if cfg.WireBufferSize != 64<<10 {
		t.Errorf("expected WireBufferSize normalized, got %d", cfg.WireBufferSize)
	}
	if cfg.IndexFile != "index.html" {
		t.Errorf("expected IndexFile normalized to index.html, got %q", cfg.IndexFile)
	}
}

func TestAddr(t *testing.T) {
	cfg := Config{BindHost: "0.0.0.0", BindPort: 8080}
	if got := cfg.Addr(); got != "0.0.0.0:8080" {
		t.Errorf("expected 0.0.0.0:8080, got %q", got)
	}
}
