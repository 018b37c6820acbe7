package utils

import "io"

// Close closes c and ignores any error.
// Use for best-effort cleanup in defer where error handling is not critical,
// such as draining a response body that was already read.
func Close(c io.Closer) {
	_ = c.Close()
}
