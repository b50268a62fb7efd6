package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.AnimationSpeed != 1 || cfg.UnitSeconds != 1 {
		t.Fatalf("defaults: %+v", cfg)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Highlight.PivotColor != "#2196f3" {
		t.Fatalf("PivotColor = %q", cfg.Highlight.PivotColor)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
animation_speed = 2.5

[highlight]
dim_factor = 0.5
monophyletic = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AnimationSpeed != 2.5 {
		t.Fatalf("AnimationSpeed = %v", cfg.AnimationSpeed)
	}
	if cfg.Highlight.DimFactor != 0.5 || !cfg.Highlight.Monophyletic {
		t.Fatalf("highlight = %+v", cfg.Highlight)
	}
	// Untouched fields keep defaults.
	if cfg.Highlight.MarkedColor != "#e53935" {
		t.Fatalf("MarkedColor = %q", cfg.Highlight.MarkedColor)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("animation_speed = -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("negative speed accepted")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PHYLOMOVIE_SPEED", "3")
	t.Setenv("PHYLOMOVIE_MONOPHYLETIC", "true")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AnimationSpeed != 3 {
		t.Fatalf("AnimationSpeed = %v, want env override 3", cfg.AnimationSpeed)
	}
	if !cfg.Highlight.Monophyletic {
		t.Fatal("monophyletic env override ignored")
	}
}

func TestColorStoreRoundTrip(t *testing.T) {
	cs := NewColorStore(t.TempDir())

	loaded, err := cs.LoadColorCategories()
	if err != nil {
		t.Fatalf("load before save: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("missing blob yielded %v", loaded)
	}

	want := map[string]string{"Mammals": "#ff8800", "Birds": "#00ccff"}
	if err := cs.SaveColorCategories(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err = cs.LoadColorCategories()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for k, v := range want {
		if loaded[k] != v {
			t.Fatalf("loaded[%q] = %q, want %q", k, loaded[k], v)
		}
	}
}

func TestColorStoreBadJSON(t *testing.T) {
	dir := t.TempDir()
	cs := NewColorStore(dir)
	if err := os.WriteFile(cs.Path(), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := cs.LoadColorCategories(); err == nil {
		t.Fatal("corrupt blob accepted")
	}
}
