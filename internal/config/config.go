// Package config holds the server's immutable runtime configuration and
// the CLI flag parsing that produces it.
package config

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Config holds the server configuration. Once parsed it does not change for
// the server's lifetime; operator control (pause, kill-all) flows through
// the registry's intent queue instead of mutating Config.
type Config struct {
	ServeRoot      string        // canonical absolute serve root
	BindHost       string        // bind address
	BindPort       int           // bind port
	UploadEnabled  bool          // -u
	Headless       bool          // --headless
	DisableDirs    bool          // --nodirs
	StartDisabled  bool          // --start-disabled
	UIRefreshRate  time.Duration // --ui-refresh-rate
	UploadSizeCap  int64         // --upload-size-limit, 0 = unbounded
	IndexFile      string        // --index-file
	NoIndexFile    bool          // --no-index-file
	NoAppendSlash  bool          // --no-slash
	IdleTimeout    time.Duration // connection idle timeout, enforced by internal/reactor's tick sweep
	WireBufferSize int           // per-direction ring buffer capacity
	Logger         *log.Logger
}

// Default returns a Config with the documented defaults, matching the
// original tool's flag defaults where spec.md is silent.
func Default() Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return Config{
		ServeRoot:      cwd,
		BindHost:       "localhost",
		BindPort:       80,
		UploadEnabled:  false,
		Headless:       false,
		DisableDirs:    false,
		StartDisabled:  false,
		UIRefreshRate:  100 * time.Millisecond,
		UploadSizeCap:  0,
		IndexFile:      "index.html",
		NoIndexFile:    false,
		NoAppendSlash:  false,
		IdleTimeout:    30 * time.Second,
		WireBufferSize: 64 << 10,
		Logger:         log.Default(),
	}
}

// ParseFlags parses CLI args into a Config, starting from Default().
// Exit code contract (spec.md §6): callers should exit(2) on error.
func ParseFlags(args []string) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("dropgate", flag.ContinueOnError)
	dir := fs.String("d", cfg.ServeRoot, "serve root directory")
	port := fs.Int("p", cfg.BindPort, "bind port")
	host := fs.String("h", cfg.BindHost, "bind address")
	hostAlias := fs.String("m", "", "bind address (alias of -h)")
	upload := fs.Bool("u", cfg.UploadEnabled, "enable upload handling")
	headless := fs.Bool("headless", cfg.Headless, "suppress the TUI; log connection events to stdout")
	nodirs := fs.Bool("nodirs", cfg.DisableDirs, "disable directory listings")
	startDisabled := fs.Bool("start-disabled", cfg.StartDisabled, "start the server paused")
	refresh := fs.Duration("ui-refresh-rate", cfg.UIRefreshRate, "dashboard refresh interval")
	sizeLimit := fs.Int64("upload-size-limit", cfg.UploadSizeCap, "uploaded request body size limit in bytes (0 = unlimited)")
	indexFile := fs.String("index-file", cfg.IndexFile, "index page filename rendered instead of a directory listing")
	noIndexFile := fs.Bool("no-index-file", cfg.NoIndexFile, "always render directory listings, ignoring any index file")
	noSlash := fs.Bool("no-slash", cfg.NoAppendSlash, "do not redirect directory requests to a trailing slash")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.ServeRoot = *dir
	cfg.BindPort = *port
	cfg.BindHost = *host
	if *hostAlias != "" {
		cfg.BindHost = *hostAlias
	}
	cfg.UploadEnabled = *upload
	cfg.Headless = *headless
	cfg.DisableDirs = *nodirs
	cfg.StartDisabled = *startDisabled
	cfg.UIRefreshRate = *refresh
	cfg.UploadSizeCap = *sizeLimit
	cfg.IndexFile = *indexFile
	cfg.NoIndexFile = *noIndexFile
	cfg.NoAppendSlash = *noSlash

	if cfg.Headless {
		cfg.Logger = log.New(os.Stdout, "", log.LstdFlags)
	} else {
		cfg.Logger = log.New(io.Discard, "", 0)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate normalizes and checks the configuration, resolving ServeRoot to
// a canonical absolute path.
func (c *Config) Validate() error {
	abs, err := filepath.Abs(c.ServeRoot)
	if err != nil {
		return fmt.Errorf("resolve serve root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return fmt.Errorf("resolve serve root: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return fmt.Errorf("stat serve root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("serve root %q is not a directory", resolved)
	}
	c.ServeRoot = resolved

	if c.BindPort < 0 || c.BindPort > 65535 {
		return fmt.Errorf("invalid port %d", c.BindPort)
	}
	if c.UIRefreshRate <= 0 {
		c.UIRefreshRate = 100 * time.Millisecond
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Second
	}
	if c.WireBufferSize <= 0 {
		c.WireBufferSize = 64 << 10
	}
	if c.IndexFile == "" {
		c.IndexFile = "index.html"
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	return nil
}

// Addr returns the host:port string to bind.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.BindHost, c.BindPort)
}
