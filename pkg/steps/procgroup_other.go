//go:build !unix

package steps

import "os/exec"

// killProcessGroup keeps the default cancellation, which kills only the
// direct child. WaitDelay still bounds the output pumps.
func killProcessGroup(*exec.Cmd) {}
