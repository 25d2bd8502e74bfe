package api

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"
)

func TestParseSchemas_Valid(t *testing.T) {
	s, err := ParseSchemas([]byte(`{
  "base:build": {"steps": ["onBuildMainServer", "onBuildNodeServers"]},
  "test_cmd": {"steps": ["onBuildMainServer"]}
}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != 2 {
		t.Fatalf("expected 2 schemas, got %d", len(s))
	}
	if got := s["base:build"].Steps; len(got) != 2 || got[1] != "onBuildNodeServers" {
		t.Errorf("unexpected base:build steps: %v", got)
	}
}

func TestParseSchemas_Invalid(t *testing.T) {
	_, err := ParseSchemas([]byte("{{invalid"))
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "parsing schema definitions") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseSchemas_Null(t *testing.T) {
	s, err := ParseSchemas([]byte("null"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s == nil || len(s) != 0 {
		t.Fatalf("expected empty non-nil set, got %v", s)
	}
}

func TestLoadSchemas_MergeOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"schemas/a_core.json":  {Data: []byte(`{"cmd": {"steps": ["one"]}, "other": {"steps": ["x"]}}`)},
		"schemas/b_extra.json": {Data: []byte(`{"cmd": {"steps": ["two", "three"]}}`)},
		"schemas/readme.txt":   {Data: []byte("ignored")},
	}

	s, err := LoadSchemas(fsys, "schemas/*.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cmd, err := s.Lookup("cmd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cmd.Steps) != 2 || cmd.Steps[0] != "two" {
		t.Errorf("expected later file to win, got %v", cmd.Steps)
	}
	if _, err := s.Lookup("other"); err != nil {
		t.Errorf("expected earlier entry to survive: %v", err)
	}
}

func TestLoadSchemas_DefaultPattern(t *testing.T) {
	fsys := fstest.MapFS{
		"deep/nested/s.json": {Data: []byte(`{"cmd": {"steps": ["one"]}}`)},
	}

	s, err := LoadSchemas(fsys)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s["cmd"]; !ok {
		t.Fatal("expected recursive default pattern to find nested file")
	}
}

func TestLoadSchemas_InvalidFile(t *testing.T) {
	fsys := fstest.MapFS{
		"bad.json": {Data: []byte("{")},
	}

	_, err := LoadSchemas(fsys, "*.json")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "bad.json") {
		t.Fatalf("error should name the file: %v", err)
	}
}

func TestLoadSchemas_ValidationFails(t *testing.T) {
	fsys := fstest.MapFS{
		"s.json": {Data: []byte(`{"cmd": {"steps": []}}`)},
	}

	_, err := LoadSchemas(fsys, "*.json")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "validating schemas") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLookup_Unknown(t *testing.T) {
	s := Schemas{"base:build": {Steps: []string{"a"}}}

	_, err := s.Lookup("base:explode")
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	if !strings.Contains(err.Error(), "base:build") {
		t.Errorf("error should list known commands: %v", err)
	}
}

func TestMerge(t *testing.T) {
	base := Schemas{"a": {Steps: []string{"1"}}, "b": {Steps: []string{"2"}}}
	merged := base.Merge(Schemas{"b": {Steps: []string{"3"}}})

	if merged["b"].Steps[0] != "3" {
		t.Errorf("override not applied: %v", merged["b"])
	}
	if base["b"].Steps[0] != "2" {
		t.Error("Merge must not modify the receiver")
	}
	if got := merged.Commands(); len(got) != 2 || got[0] != "a" {
		t.Errorf("Commands() = %v", got)
	}
}
