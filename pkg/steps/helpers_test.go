package steps

import (
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"testing"
	"testing/fstest"

	"github.com/systemstart/nya/pkg/bus/bustest"
)

// writeTestFile writes content to a file in dir, failing the test on error.
func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

// writeStub creates an executable shell script standing in for ansible-playbook.
func writeStub(t *testing.T, body string) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not in PATH")
	}
	dir := t.TempDir()
	stub := filepath.Join(dir, "ansible-playbook")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\n"+body+"\n"), 0o700); err != nil {
		t.Fatal(err)
	}
	return stub
}

func testAssets() fstest.MapFS {
	return fstest.MapFS{
		"playbooks/build_control_plane.yml": {Data: []byte("- hosts: all\n  tasks: []\n")},
		"playbooks/build_nodes.yml":         {Data: []byte("- hosts: all\n  tasks: []\n")},
		"templates/base_build/a.j2":         {Data: []byte("a")},
		"templates/base_build/b.j2":         {Data: []byte("b")},
	}
}

func newTestExecutor(t *testing.T, stub string) *Executor {
	t.Helper()
	return NewExecutor(
		WithBinary(stub),
		WithAssets(testAssets()),
		WithTempDir(t.TempDir()),
		WithControlDir(t.TempDir()),
	)
}

// recordingRuntime records log lines triggered by the executor.
type recordingRuntime struct {
	*bustest.Runtime
}

func newRecordingRuntime(values map[string]any) *recordingRuntime {
	rt := bustest.NewRuntime(values)
	rt.ID = "0f8fad5b-d9cb-469f-a165-70867728950e"
	return &recordingRuntime{Runtime: rt}
}

func (r *recordingRuntime) lines() []string {
	return r.Logs()
}

func (r *recordingRuntime) logged(line string) bool {
	return slices.Contains(r.Logs(), line)
}
