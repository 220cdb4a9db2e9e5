package main

import (
	"testing"

	"github.com/RuneMirror/RuneMirror/internal/config"
)

func TestFlagsApply(t *testing.T) {
	tests := []struct {
		name  string
		flags flags
		cfg   config.Config
		check func(t *testing.T, cfg config.Config)
	}{
		{
			name: "disabled stays disabled",
			cfg:  config.Config{Leader: config.Leader{Targets: "127.0.0.1:46001"}},
			check: func(t *testing.T, cfg config.Config) {
				if cfg.Leader.Enabled || cfg.Follower.Enabled {
					t.Error("mirroring enabled without consent")
				}
				if cfg.Leader.Targets != "127.0.0.1:46001" {
					t.Errorf("targets = %q", cfg.Leader.Targets)
				}
			},
		},
		{
			name:  "enable flag",
			flags: flags{enable: true},
			check: func(t *testing.T, cfg config.Config) {
				if !cfg.Leader.Enabled || !cfg.Follower.Enabled {
					t.Errorf("enabled = %v/%v", cfg.Leader.Enabled, cfg.Follower.Enabled)
				}
			},
		},
		{
			name: "config enable is kept",
			cfg:  config.Config{Follower: config.Follower{Enabled: true}},
			check: func(t *testing.T, cfg config.Config) {
				if !cfg.Follower.Enabled || cfg.Leader.Enabled {
					t.Errorf("enabled = %v/%v", cfg.Leader.Enabled, cfg.Follower.Enabled)
				}
			},
		},
		{
			name:  "overrides",
			flags: flags{port: 47000, targets: "10.0.0.2:46001", targetsFile: "/tmp/targets", monitorAddr: ":8080", journalDir: "/tmp/j"},
			check: func(t *testing.T, cfg config.Config) {
				if cfg.Follower.Port != 47000 || cfg.Leader.Targets != "10.0.0.2:46001" || cfg.Leader.TargetsFile != "/tmp/targets" {
					t.Errorf("config = %+v", cfg)
				}
				if cfg.Monitor.Addr != ":8080" || cfg.Journal.Dir != "/tmp/j" {
					t.Errorf("config = %+v", cfg)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			tt.flags.apply(&cfg)
			tt.check(t, cfg)
		})
	}
}

// Перечитанный конфиг видит и свежее окружение, и флаги запуска.
func TestReloadConfig(t *testing.T) {
	t.Setenv("RUNEMIRROR_LEADER_ENABLED", "false")
	t.Setenv("RUNEMIRROR_LEADER_TARGETS", "127.0.0.1:46001")

	cfg, err := reloadConfig(flags{targetsFile: "/tmp/targets"})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.Leader.Enabled {
		t.Error("leader enabled")
	}
	if cfg.Leader.TargetsFile != "/tmp/targets" {
		t.Errorf("targets file = %q", cfg.Leader.TargetsFile)
	}

	t.Setenv("RUNEMIRROR_LEADER_ENABLED", "true")
	cfg, err = reloadConfig(flags{})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !cfg.Leader.Enabled {
		t.Error("env enable not picked up on reload")
	}

	t.Setenv("RUNEMIRROR_FOLLOWER_PORT", "bad")
	if _, err := reloadConfig(flags{}); err == nil {
		t.Error("expected error for bad env")
	}
}
