package feeds

import (
	"ble-linepos/internal/interfaces"
	"ble-linepos/internal/models"
	"bufio"
	"context"
	"errors"
	"fmt"
	"github.com/rs/zerolog"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Opener returns the stream a LineFeed reads from.
type Opener func() (io.ReadCloser, error)

// LineFeed reads newline separated observations from a serial port or a
// capture file.
type LineFeed struct {
	name     string
	open     Opener
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	rc      io.ReadCloser
	stopped bool
	done    chan struct{}

	malformed atomic.Int64
}

// MaxLineLength bounds a single line; longer lines are discarded as malformed.
const MaxLineLength = 4096

var errLineTooLong = errors.New("line too long")

func NewLineFeed(name string, open Opener, interval time.Duration, logger zerolog.Logger) *LineFeed {
	return &LineFeed{
		name:     name,
		open:     open,
		interval: interval,
		logger:   logger.With().Str("feed", name).Logger(),
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

func (f *LineFeed) Name() string {
	return f.name
}

// Start blocks until the stream ends, ctx is cancelled or Stop is called.
// End of stream and Stop both return nil.
func (f *LineFeed) Start(ctx context.Context, out chan<- models.Observation) error {
	if f.isStopped() {
		return nil
	}
	rc, err := f.open()
	if err != nil {
		return fmt.Errorf("opening %s feed: %w", f.name, err)
	}
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		rc.Close()
		return nil
	}
	f.rc = rc
	f.mu.Unlock()

	defer f.closeReader()

	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		reader := bufio.NewReaderSize(rc, MaxLineLength)
		for {
			line, err := readLine(reader)
			if errors.Is(err, errLineTooLong) {
				f.logger.Warn().Int("limit", MaxLineLength).Msg("Skipping overlong line")
				f.countMalformed()
				continue
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					scanErr <- err
				}
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			case <-f.done:
				return
			}
		}
	}()

	f.logger.Info().Msg("Feed started")

	var ticker *time.Ticker
	if f.interval > 0 {
		ticker = time.NewTicker(f.interval)
		defer ticker.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if f.isStopped() {
						return nil
					}
					return fmt.Errorf("reading %s feed: %w", f.name, err)
				default:
				}
				f.logger.Info().Int("malformed", f.Malformed()).Msg("Feed reached end of stream")
				return nil
			}

			observation, err := ParseLine(line, f.now())
			if err != nil {
				f.countMalformed()
				f.logger.Warn().Err(err).Msg("Skipping line")
				continue
			}
			if observation == nil {
				continue
			}

			if ticker != nil {
				select {
				case <-ticker.C:
				case <-ctx.Done():
					return ctx.Err()
				case <-f.done:
					return nil
				}
			}

			select {
			case out <- *observation:
			case <-ctx.Done():
				return ctx.Err()
			case <-f.done:
				return nil
			}
		}
	}
}

// Stop ends a running Start and closes the underlying stream. It is safe to
// call more than once and before Start.
func (f *LineFeed) Stop() error {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return nil
	}
	f.stopped = true
	close(f.done)
	f.mu.Unlock()

	return f.closeReader()
}

func (f *LineFeed) closeReader() error {
	f.mu.Lock()
	rc := f.rc
	f.rc = nil
	f.mu.Unlock()

	if rc == nil {
		return nil
	}
	if err := rc.Close(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		return fmt.Errorf("closing %s feed: %w", f.name, err)
	}
	return nil
}

// readLine returns the next line without its terminator. A line longer than
// the reader's buffer is consumed up to its newline and reported as
// errLineTooLong. A final line without a newline is still returned.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		for errors.Is(err, bufio.ErrBufferFull) {
			_, err = r.ReadSlice('\n')
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return "", errLineTooLong
	}
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return "", err
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}

// Malformed is the number of lines skipped because they could not be parsed.
func (f *LineFeed) Malformed() int {
	return int(f.malformed.Load())
}

func (f *LineFeed) countMalformed() {
	f.malformed.Add(1)
}

func (f *LineFeed) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

var _ interfaces.IFeed = (*LineFeed)(nil)
