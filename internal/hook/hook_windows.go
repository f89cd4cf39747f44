//go:build windows

package hook

import "syscall"

// detachAttr puts the spawned process in its own process group so it
// survives the parent exiting.
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}
