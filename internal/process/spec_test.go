package process

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultName(t *testing.T) {
	cases := []struct {
		command string
		want    string
	}{
		{"node server.js", "node"},
		{"/usr/bin/python3 -m http.server", "python3"},
		{"sleep 60", "sleep"},
		{"   ", "unknown"},
	}
	for _, c := range cases {
		if got := DefaultName(c.command); got != c.want {
			t.Fatalf("DefaultName(%q) = %q, want %q", c.command, got, c.want)
		}
	}
}

func TestValidateRequiresNameAndCommand(t *testing.T) {
	if err := (Spec{Command: "sleep 1"}).Validate(); err == nil {
		t.Fatal("expected error for missing name")
	}
	if err := (Spec{Name: "x"}).Validate(); err == nil {
		t.Fatal("expected error for missing command")
	}
	if err := (Spec{Name: "x", Command: "sleep 1"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateWorkDir(t *testing.T) {
	spec := Spec{Name: "x", Command: "sleep 1", WorkDir: t.TempDir()}
	if err := spec.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	spec.WorkDir = "/definitely/not/a/real/dir"
	err := spec.Validate()
	if !errors.Is(err, ErrBadWorkDir) {
		t.Fatalf("expected ErrBadWorkDir, got %v", err)
	}
}

func TestValidateEnvEntries(t *testing.T) {
	spec := Spec{Name: "x", Command: "sleep 1", Env: []string{"KEY=value"}}
	if err := spec.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	spec.Env = []string{"NOEQUALS"}
	if err := spec.Validate(); err == nil {
		t.Fatal("expected error for malformed env entry")
	}
}

func TestNumInstances(t *testing.T) {
	if n := (Spec{}).NumInstances(); n != 1 {
		t.Fatalf("zero instances should default to 1, got %d", n)
	}
	if n := (Spec{Instances: 4}).NumInstances(); n != 4 {
		t.Fatalf("expected 4, got %d", n)
	}
}

func TestMergedEnv(t *testing.T) {
	if env := (Spec{}).MergedEnv(); env != nil {
		t.Fatalf("no overrides should yield nil (inherit), got %d entries", len(env))
	}
	env := (Spec{Env: []string{"GPM_TEST=1"}}).MergedEnv()
	found := false
	for _, kv := range env {
		if kv == "GPM_TEST=1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("override missing from merged env: %v", env)
	}
	if len(env) < 2 && !strings.Contains(strings.Join(env, ";"), "=") {
		t.Fatal("merged env should include the parent environment")
	}
}
