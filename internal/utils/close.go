package utils

import (
	"io"

	"github.com/MrSnakeDoc/stash/internal/logger"
)

// maxDrain bounds how much of an unread body is discarded before closing.
const maxDrain = 64 << 10

// MustClose closes c and logs any error.
// Use for defer statements where we want to track close errors.
func MustClose(c io.Closer, log logger.Logger, what string) {
	if err := c.Close(); err != nil {
		log.Warn("failed to close",
			logger.String("resource", what),
			logger.Error(err))
	}
}

// DrainAndClose discards what is left of an HTTP body so the connection
// can go back to the pool, then closes it.
func DrainAndClose(rc io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, maxDrain))
	_ = rc.Close()
}
