//go:build !windows

package hook

import "syscall"

// detachAttr makes the spawned process its own session leader so it
// survives the parent exiting and does not receive the parent's
// terminal signals.
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
