package nations

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("nations", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "data/nations.db" {
		t.Fatalf("unexpected db path %q", cfg.DBPath)
	}
	if cfg.Identity != "console" {
		t.Fatalf("unexpected identity %q", cfg.Identity)
	}
	if cfg.DisplayName != "console" {
		t.Fatalf("expected display name to fall back to identity, got %q", cfg.DisplayName)
	}
}

func TestParseConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("DQCQ_NATIONS_DB_PATH", "/tmp/env.db")
	t.Setenv("DQCQ_NATIONS_IDENTITY", "env-user")

	fs := flag.NewFlagSet("nations", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-db", "/tmp/flag.db", "-name", "General"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "/tmp/flag.db" {
		t.Fatalf("expected flag to win, got %q", cfg.DBPath)
	}
	if cfg.Identity != "env-user" {
		t.Fatalf("expected env identity, got %q", cfg.Identity)
	}
	if cfg.DisplayName != "General" {
		t.Fatalf("unexpected display name %q", cfg.DisplayName)
	}
}
