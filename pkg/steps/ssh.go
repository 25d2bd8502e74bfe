package steps

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const sshArgsEnv = "ANSIBLE_SSH_ARGS"

// SocketDir returns the ControlPath directory used for runID. Sockets are
// shared by every playbook of one run and never across runs.
func (e *Executor) SocketDir(runID string) string {
	base := e.ControlDir
	if base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, "nya-ssh-"+shortID(runID))
}

// Cleanup removes the socket directory of runID.
func (e *Executor) Cleanup(runID string) error {
	return os.RemoveAll(e.SocketDir(runID))
}

// sshArgs keeps the ControlPath template short: unix socket paths are limited
// to a little over 100 bytes and %h can be a long host name.
func sshArgs(socketDir string) string {
	return fmt.Sprintf(
		"-o ControlMaster=auto -o ControlPersist=60s -o ControlPath=%s",
		filepath.Join(socketDir, "a%h-%p-%r"),
	)
}

// commandEnv returns parent with ANSIBLE_SSH_ARGS replaced. The rest of
// the parent environment is inherited as is, so SSH_AUTH_SOCK and HOME reach
// ssh and ansible exactly when the caller has them set.
func commandEnv(parent []string, socketDir string) []string {
	env := make([]string, 0, len(parent)+1)
	for _, kv := range parent {
		if strings.HasPrefix(kv, sshArgsEnv+"=") {
			continue
		}
		env = append(env, kv)
	}
	return append(env, sshArgsEnv+"="+sshArgs(socketDir))
}

// shortID keeps temp and socket names short while staying unique per run.
func shortID(runID string) string {
	id := strings.ReplaceAll(runID, "-", "")
	if len(id) > 12 {
		id = id[:12]
	}
	if id == "" {
		id = "run"
	}
	return id
}
