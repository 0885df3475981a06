package gazelle

import (
	"encoding/json"
	"fmt"
)

// scriptStep represents a single action in an input script.
type scriptStep struct {
	Action    string  `json:"action"`
	RawID     int     `json:"rawId,omitempty"`
	Name      string  `json:"name,omitempty"`
	VendorID  int     `json:"vendorId,omitempty"`
	ProductID int     `json:"productId,omitempty"`
	Type      string  `json:"type,omitempty"`
	Code      int     `json:"code,omitempty"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	Z         float64 `json:"z,omitempty"`
	Updates   int     `json:"updates,omitempty"`
}

// inputScript is the top-level JSON structure for an input script.
type inputScript struct {
	Steps []scriptStep `json:"steps"`
}

// ScriptRunner replays a JSON-scripted sequence of device hot-plug and
// input events against a Registry, for automated testing of assignment
// and pick behavior without real hardware.
type ScriptRunner struct {
	registry *Registry
	steps    []scriptStep
	cursor   int
	wait     int
	done     bool
}

// LoadInputScript parses a JSON input script and returns a ScriptRunner
// driving the given registry.
func LoadInputScript(jsonData []byte, registry *Registry) (*ScriptRunner, error) {
	if registry == nil {
		return nil, fmt.Errorf("parse input script: nil registry")
	}
	var script inputScript
	if err := json.Unmarshal(jsonData, &script); err != nil {
		return nil, fmt.Errorf("parse input script: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("parse input script: no steps")
	}
	for i, st := range script.Steps {
		switch st.Action {
		case "add", "remove", "keydown", "keyup", "motion", "active", "inactive", "update", "wait":
		default:
			return nil, fmt.Errorf("parse input script: step %d: unknown action %q", i, st.Action)
		}
	}
	return &ScriptRunner{registry: registry, steps: script.Steps}, nil
}

// Done reports whether all steps in the script have been executed.
func (r *ScriptRunner) Done() bool {
	return r.done
}

// Step advances the script by one frame, executing the next step unless a
// wait is counting down.
func (r *ScriptRunner) Step() {
	if r.done {
		return
	}
	if r.wait > 0 {
		r.wait--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++

	switch st.Action {
	case "add":
		t := ParseDeviceType(st.Type)
		if t == DeviceUnknown {
			r.registry.AddDevice(st.RawID, st.Name, st.VendorID, st.ProductID, SourceGamepad)
		} else {
			r.registry.AddExternalDevice(st.RawID, st.Name, st.VendorID, st.ProductID, t)
		}
	case "remove":
		r.registry.RemoveDevice(st.RawID)
	case "keydown":
		r.registry.DispatchKey(KeyEvent{RawDeviceID: st.RawID, Code: st.Code, Action: KeyDown})
	case "keyup":
		r.registry.DispatchKey(KeyEvent{RawDeviceID: st.RawID, Code: st.Code, Action: KeyUp})
	case "motion":
		r.registry.DispatchMotion(MotionEvent{RawDeviceID: st.RawID, X: st.X, Y: st.Y, Z: st.Z})
	case "active", "inactive":
		if dev := r.registry.Device(st.RawID); dev != nil {
			dev.Controller().SetActive(st.Action == "active")
		}
	case "update":
		if dev := r.registry.Device(st.RawID); dev != nil {
			dev.Controller().Update()
		}
	case "wait":
		if st.Updates > 0 {
			r.wait = st.Updates - 1 // this frame counts as one
		}
	}

	if r.cursor >= len(r.steps) && r.wait == 0 {
		r.done = true
	}
}

// Run executes the remaining script to completion.
func (r *ScriptRunner) Run() {
	for !r.done {
		r.Step()
	}
}
