//go:build windows

package process

import (
	"os"
	"syscall"
)

// sessionAttr returns an empty SysProcAttr on Windows where Setsid is not available.
func sessionAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{}
}

// killGroup kills the tool process; Windows has no process groups to signal.
func killGroup(p *os.Process) error {
	return p.Kill()
}
