package config

import (
	"log/slog"
	"slices"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 8080 || cfg.StoreDriver != "sqlite" {
		t.Errorf("Load() = port %d driver %q, want 8080 sqlite", cfg.Port, cfg.StoreDriver)
	}
	if cfg.FrameInterval != 16*time.Millisecond {
		t.Errorf("FrameInterval = %v, want 16ms", cfg.FrameInterval)
	}
	if cfg.OpLogLimit != 2048 {
		t.Errorf("OpLogLimit = %d, want 2048", cfg.OpLogLimit)
	}

	ic := cfg.Interaction()
	if ic.DragThreshold != 3 || ic.HandleSize != 8 || ic.MinSize != 20 {
		t.Errorf("Interaction() = %+v, want threshold 3, handles 8, min 20", ic)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DRAG_THRESHOLD", "5")
	t.Setenv("FRAME_INTERVAL", "33ms")
	t.Setenv("ALLOWED_ORIGINS", " example.com , ,localhost:3000")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StoreDriver != "postgres" {
		t.Errorf("StoreDriver = %q, want postgres", cfg.StoreDriver)
	}
	if cfg.Interaction().DragThreshold != 5 {
		t.Errorf("DragThreshold = %v, want 5", cfg.Interaction().DragThreshold)
	}
	if cfg.FrameInterval != 33*time.Millisecond {
		t.Errorf("FrameInterval = %v, want 33ms", cfg.FrameInterval)
	}
	if got := cfg.Origins(); !slices.Equal(got, []string{"example.com", "localhost:3000"}) {
		t.Errorf("Origins() = %v", got)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, want debug", cfg.SlogLevel())
	}
}

func TestLoadRejectsBadValue(t *testing.T) {
	t.Setenv("HANDLE_SIZE", "big")
	if _, err := Load(); err == nil {
		t.Error("Load() accepted a non-numeric HANDLE_SIZE")
	}
}
