//go:build !windows

package process

import (
	"errors"
	"os"
	"syscall"
)

// sessionAttr returns SysProcAttr that places the tool in its own session,
// detaching it from the parent's controlling terminal and making it the
// leader of a fresh process group.
func sessionAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

// killGroup sends SIGKILL to the process group led by p so helpers the tool
// spawned die with it.
func killGroup(p *os.Process) error {
	err := syscall.Kill(-p.Pid, syscall.SIGKILL)
	if err == nil || errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return p.Kill()
}
