package feeds

import (
	"github.com/rs/zerolog"
	"io"
	"os"
	"time"
)

// NewReplayFeed replays a capture file, one observation per interval. A zero
// interval replays as fast as the consumer accepts.
func NewReplayFeed(path string, interval time.Duration, logger zerolog.Logger) *LineFeed {
	open := func() (io.ReadCloser, error) {
		return os.Open(path)
	}
	return NewLineFeed("replay:"+path, open, interval, logger)
}
