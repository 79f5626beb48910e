//go:build !unix

package ui

import "os"

// Terminals without SIGWINCH never report a resize; the size is still
// queried on every render after a Resize.
func notifyResize(chan<- os.Signal) {}
