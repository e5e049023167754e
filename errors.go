package svmap

import (
	"errors"
)

var (
	// ErrClosed is returned when a handle is closed twice or a closed map is
	// asked to publish.
	ErrClosed = errors.New("svmap: closed")
)

const (
	panicWriteClosed    = "svmap: write on closed map"
	panicSnapshotClosed = "svmap: use of closed snapshot"
	panicReaderClosed   = "svmap: use of closed read handle"
)
