//go:build linux

package dispatch

import "syscall"

// currentThreadID returns the OS thread id of the calling goroutine. It is
// only meaningful immediately after runtime.LockOSThread, which the
// dispatcher's run loop calls for its entire lifetime (spec.md §9: "model
// the dispatcher as a message-passing actor ... sole consumer on its
// thread").
func currentThreadID() int {
	return syscall.Gettid()
}
