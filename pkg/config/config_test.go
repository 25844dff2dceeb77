package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string   `yaml:"name"`
	Port  int      `yaml:"port"`
	Globs []string `yaml:"globs"`
}

func (s *sample) Validate() error {
	if s.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("QUIRE_TEST_NAME", "docs")
	p := write(t, t.TempDir(), "c.yaml", "name: ${QUIRE_TEST_NAME}\nport: 80\n")

	var s sample
	if err := Load(p, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "docs" {
		t.Errorf("name = %q, want docs", s.Name)
	}
}

func TestLoad_KeepsDefaults(t *testing.T) {
	p := write(t, t.TempDir(), "c.yaml", "port: 80\n")
	s := sample{Name: "default"}
	if err := Load(p, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "default" {
		t.Errorf("name = %q, want default kept", s.Name)
	}
}

func TestLoad_Validates(t *testing.T) {
	p := write(t, t.TempDir(), "c.yaml", "name: x\n")
	var s sample
	err := Load(p, &s)
	if err == nil || !strings.Contains(err.Error(), "port is required") {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var s sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &s); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want ErrNotExist", err)
	}
}

func TestLoadLayered_Overrides(t *testing.T) {
	dir := t.TempDir()
	base := write(t, dir, "base.yaml", "name: base\nport: 80\nglobs: [a, b]\n")
	local := write(t, dir, "local.yaml", "port: 8080\nglobs: [c]\n")

	var s sample
	if err := LoadLayered(&s, base, local, filepath.Join(dir, "absent.yaml")); err != nil {
		t.Fatal(err)
	}
	if s.Name != "base" || s.Port != 8080 || len(s.Globs) != 1 || s.Globs[0] != "c" {
		t.Errorf("merged = %+v", s)
	}
}
