package syncd

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("syncd", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.CachePath != "data/forcesync.db" {
		t.Fatalf("expected default cache path, got %q", cfg.CachePath)
	}
	if cfg.CatalogPath != "data/catalog.db" {
		t.Fatalf("expected default catalog path, got %q", cfg.CatalogPath)
	}
	if cfg.RemoteURL != "" {
		t.Fatalf("expected empty remote url, got %q", cfg.RemoteURL)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	fs := flag.NewFlagSet("syncd", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{
		"-cache-path", "/tmp/cache.db",
		"-remote-url", "https://forces.example.com",
		"-query", "instance=abc",
	})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.CachePath != "/tmp/cache.db" {
		t.Fatalf("expected cache path override, got %q", cfg.CachePath)
	}
	if cfg.RemoteURL != "https://forces.example.com" {
		t.Fatalf("expected remote url override, got %q", cfg.RemoteURL)
	}
	if cfg.InitialQuery != "instance=abc" {
		t.Fatalf("expected query override, got %q", cfg.InitialQuery)
	}
}
