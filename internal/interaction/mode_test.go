package interaction

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTransitionRules(t *testing.T) {
	var m machine

	if err := m.transition(Dragging, &BoxSession{}); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("transition(Dragging, box) error = %v, want ErrIllegalTransition", err)
	}
	if err := m.transition(Resizing, nil); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("transition(Resizing, nil) error = %v, want ErrIllegalTransition", err)
	}

	box := &BoxSession{}
	if err := m.transition(Selecting, box); err != nil {
		t.Fatalf("transition(Selecting) error = %v", err)
	}
	if err := m.transition(Resizing, &ResizeSession{}); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("transition(Selecting -> Resizing) error = %v, want ErrIllegalTransition", err)
	}
	if err := m.transition(Idle, &DragSession{}); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("arming a drag while selecting: error = %v, want ErrIllegalTransition", err)
	}
	if m.mode != Selecting || m.sess != box {
		t.Fatalf("rejected transition changed state to %v/%T", m.mode, m.sess)
	}

	if err := m.transition(Idle, nil); err != nil {
		t.Fatalf("transition(Idle) error = %v", err)
	}
	if m.sess != nil {
		t.Errorf("session = %T after idle, want nil", m.sess)
	}
}

func TestArmedDragPromotion(t *testing.T) {
	var m machine
	ds := &DragSession{}

	if err := m.transition(Idle, ds); err != nil {
		t.Fatalf("arm error = %v", err)
	}
	if !m.armed() || m.busy() {
		t.Errorf("armed() = %v, busy() = %v, want true, false", m.armed(), m.busy())
	}
	if err := m.transition(Resizing, &ResizeSession{}); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("resize over armed drag: error = %v, want ErrIllegalTransition", err)
	}
	if err := m.transition(Dragging, &DragSession{}); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("promoting a different drag: error = %v, want ErrIllegalTransition", err)
	}

	if err := m.transition(Dragging, ds); err != nil {
		t.Fatalf("promotion error = %v", err)
	}
	ds.Active = true
	if m.mode != Dragging || !m.busy() {
		t.Errorf("mode = %v busy = %v, want dragging and busy", m.mode, m.busy())
	}
	if err := m.transition(Idle, ds); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("idle holding an active drag: error = %v, want ErrIllegalTransition", err)
	}
}

func TestConfigJSON(t *testing.T) {
	cfg := DefaultConfig()
	if err := json.Unmarshal([]byte(`{"dragThreshold": 5, "cycleTimeoutMs": 1500}`), &cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	want := DefaultConfig()
	want.DragThreshold = 5
	want.CycleTimeout = 1500 * time.Millisecond
	if cfg != want {
		t.Errorf("decoded config = %+v, want %+v", cfg, want)
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"cycleTimeoutMs":1500`) {
		t.Errorf("Marshal() = %s, want cycleTimeoutMs 1500", data)
	}

	if err := json.Unmarshal([]byte(`{"minSize": "big"}`), &cfg); err == nil {
		t.Error("Unmarshal() accepted a string minSize")
	}
}
