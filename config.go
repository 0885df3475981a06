package gazelle

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Theme is a resolved cursor visual style.
type Theme struct {
	ID    string
	Name  string
	Shape CursorShape
}

// GlobalSettings are the subsystem-wide options.
type GlobalSettings struct {
	SoundEnabled bool    `yaml:"soundEnabled"`
	CursorDepth  float64 `yaml:"cursorDepth"`
}

// ThemeConfig is one theme entry in the settings document.
type ThemeConfig struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Shape string `yaml:"shape"` // "laser" or "object"
}

// DeviceBinding identifies a remembered device in the settings document.
type DeviceBinding struct {
	VendorID  int    `yaml:"vendorId"`
	ProductID int    `yaml:"productId"`
	Type      string `yaml:"type"`
}

// CursorConfig is one cursor entry in the settings document. The
// compatibility list is ordered, most preferred device type first.
type CursorConfig struct {
	ID            string         `yaml:"id"`
	Theme         string         `yaml:"theme"`
	Enabled       *bool          `yaml:"enabled,omitempty"`
	DepthScale    float64        `yaml:"depthScale,omitempty"`
	Compatibility []string       `yaml:"compatibility"`
	SavedDevice   *DeviceBinding `yaml:"savedDevice,omitempty"`
}

// Settings is the root of the YAML settings document.
type Settings struct {
	Globals GlobalSettings `yaml:"globals"`
	Themes  []ThemeConfig  `yaml:"themes"`
	Cursors []CursorConfig `yaml:"cursors"`
}

// LoadSettings parses and validates a settings document.
func LoadSettings(data []byte) (*Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("settings: parse: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadSettingsFile reads and parses a settings file.
func LoadSettingsFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("settings: read %s: %w", path, err)
	}
	return LoadSettings(data)
}

// Validate checks theme references, shapes, and compatibility lists.
// Configuration errors are fatal at startup, never patched over.
func (s *Settings) Validate() error {
	themes := make(map[string]bool, len(s.Themes))
	for _, t := range s.Themes {
		if t.ID == "" {
			return fmt.Errorf("settings: theme with empty id")
		}
		if themes[t.ID] {
			return fmt.Errorf("settings: duplicate theme %q", t.ID)
		}
		if t.Shape != "laser" && t.Shape != "object" {
			return fmt.Errorf("settings: theme %q: unknown shape %q", t.ID, t.Shape)
		}
		themes[t.ID] = true
	}

	ids := make(map[string]bool, len(s.Cursors))
	for _, c := range s.Cursors {
		if c.ID == "" {
			return fmt.Errorf("settings: cursor with empty id")
		}
		if ids[c.ID] {
			return fmt.Errorf("settings: duplicate cursor %q", c.ID)
		}
		ids[c.ID] = true
		if !themes[c.Theme] {
			return fmt.Errorf("settings: cursor %q: unknown theme %q", c.ID, c.Theme)
		}
		if len(c.Compatibility) == 0 {
			return fmt.Errorf("settings: cursor %q: empty compatibility list", c.ID)
		}
		for _, name := range c.Compatibility {
			if ParseDeviceType(name) == DeviceUnknown {
				return fmt.Errorf("settings: cursor %q: unknown device type %q", c.ID, name)
			}
		}
		if c.SavedDevice != nil && ParseDeviceType(c.SavedDevice.Type) == DeviceUnknown {
			return fmt.Errorf("settings: cursor %q: saved device has unknown type %q", c.ID, c.SavedDevice.Type)
		}
	}
	return nil
}

// BuildThemes resolves the theme table.
func (s *Settings) BuildThemes() map[string]*Theme {
	out := make(map[string]*Theme, len(s.Themes))
	for _, t := range s.Themes {
		shape := ShapeLaser
		if t.Shape == "object" {
			shape = ShapeObject
		}
		out[t.ID] = &Theme{ID: t.ID, Name: t.Name, Shape: shape}
	}
	return out
}

// BuildCursors constructs the configured cursors. Settings must have been
// validated (LoadSettings does).
func (s *Settings) BuildCursors() ([]*Cursor, error) {
	themes := s.BuildThemes()
	out := make([]*Cursor, 0, len(s.Cursors))
	for _, cc := range s.Cursors {
		compat := make([]DeviceType, len(cc.Compatibility))
		for i, name := range cc.Compatibility {
			compat[i] = ParseDeviceType(name)
		}
		c, err := NewCursor(cc.ID, compat)
		if err != nil {
			return nil, fmt.Errorf("settings: %w", err)
		}
		theme := themes[cc.Theme]
		c.SetTheme(theme)
		c.SetShape(theme.Shape)
		if cc.DepthScale > 0 {
			c.SetDepthScale(cc.DepthScale)
		}
		if cc.Enabled != nil {
			c.enabled = *cc.Enabled
		}
		if sd := cc.SavedDevice; sd != nil {
			c.saved = deviceIdentity{
				vendorID:   sd.VendorID,
				productID:  sd.ProductID,
				deviceType: ParseDeviceType(sd.Type),
			}
			c.savedSet = true
		}
		out = append(out, c)
	}
	return out, nil
}

// Apply pushes reloadable settings onto a running manager: global sound
// and depth, per-cursor enabled flags and saved devices. Cursors are
// matched by id; unknown ids are skipped. Finishes with a rebalance so
// changed bindings take effect.
func (s *Settings) Apply(m *CursorManager) {
	m.SetSoundEnabled(s.Globals.SoundEnabled)
	if s.Globals.CursorDepth > 0 {
		m.SetGlobalCursorDepth(s.Globals.CursorDepth)
	}
	for _, cc := range s.Cursors {
		cursor := m.FindCursor(cc.ID)
		if cursor == nil {
			continue
		}
		if sd := cc.SavedDevice; sd != nil {
			m.SetSavedDevice(cursor, sd.VendorID, sd.ProductID, ParseDeviceType(sd.Type))
		}
		if cc.Enabled != nil {
			if *cc.Enabled {
				m.EnableCursor(cursor)
			} else {
				m.DisableCursor(cursor)
			}
		}
	}
	m.Rebalance()
}

// Snapshot captures the manager's persistable state back into a settings
// document: global options plus per-cursor theme, enabled flag and the
// current or saved device binding.
func Snapshot(m *CursorManager) *Settings {
	s := &Settings{
		Globals: GlobalSettings{
			SoundEnabled: m.SoundEnabled(),
			CursorDepth:  m.GlobalCursorDepth(),
		},
	}
	themes := make(map[string]bool)
	cursors := append(m.ActiveCursors(), m.InactiveCursors()...)
	for _, c := range cursors {
		cc := CursorConfig{
			ID:         c.ID(),
			DepthScale: c.DepthScale(),
		}
		enabled := c.Enabled()
		cc.Enabled = &enabled
		for _, t := range c.Compatibility() {
			cc.Compatibility = append(cc.Compatibility, t.String())
		}
		if t := c.Theme(); t != nil {
			cc.Theme = t.ID
			if !themes[t.ID] {
				themes[t.ID] = true
				shape := "laser"
				if t.Shape == ShapeObject {
					shape = "object"
				}
				s.Themes = append(s.Themes, ThemeConfig{ID: t.ID, Name: t.Name, Shape: shape})
			}
		}
		if d := c.Device(); d != nil {
			cc.SavedDevice = &DeviceBinding{
				VendorID:  d.VendorID,
				ProductID: d.ProductID,
				Type:      d.Type.String(),
			}
		} else if v, p, t, ok := c.SavedDevice(); ok {
			cc.SavedDevice = &DeviceBinding{VendorID: v, ProductID: p, Type: t.String()}
		}
		s.Cursors = append(s.Cursors, cc)
	}
	return s
}

// SaveSettingsFile writes the settings document to path.
func SaveSettingsFile(s *Settings, path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("settings: write %s: %w", path, err)
	}
	return nil
}
