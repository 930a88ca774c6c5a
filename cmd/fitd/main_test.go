package main

import (
	"testing"

	"fitd/internal/config"
)

func TestApplyFlags_OnlyChanged(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--addr", ":9999", "--max-loaded", "3", "--preload", "a,b"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg := config.Default()
	cfg.MaxProcesses = 7
	applyFlags(cmd, &cfg)
	if cfg.Addr != ":9999" || cfg.MaxLoaded != 3 {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if cfg.MaxProcesses != 7 || cfg.ModelDir != "./models" {
		t.Fatalf("unset flags must not override: %+v", cfg)
	}
	if len(cfg.Preload) != 2 || cfg.Preload[0] != "a" || cfg.Preload[1] != "b" {
		t.Fatalf("preload=%q", cfg.Preload)
	}
}

func TestOpenJobs(t *testing.T) {
	js, err := openJobs("")
	if err != nil || js == nil {
		t.Fatalf("memory store: %v", err)
	}
	_ = js.Close()

	js, err = openJobs(t.TempDir() + "/jobs.db")
	if err != nil {
		t.Fatalf("bolt store: %v", err)
	}
	if err := js.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRootCmd_RejectsInvalidConfig(t *testing.T) {
	t.Setenv("FITD_MAX_PROCESSES", "0")
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--model-dir", t.TempDir()})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected validation error for max_processes=0")
	}
}
