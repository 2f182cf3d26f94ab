// Package filetail follows a growing file and reports each complete line.
package filetail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// DefaultInterval is how often an idle file is polled for new data.
const DefaultInterval = 250 * time.Millisecond

// Options controls where reading starts and how often the file is polled.
type Options struct {
	// FromStart reads existing content. Otherwise reading begins at the
	// current end of the file.
	FromStart bool
	Interval  time.Duration
}

// Follow calls fn for every line appended to path until ctx is cancelled.
// A truncated file is read again from the beginning. A trailing fragment
// without a newline is held until the line is completed.
func Follow(ctx context.Context, path string, opts Options, fn func(line string)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if !opts.FromStart {
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			return fmt.Errorf("seek %s: %w", path, err)
		}
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	reader := bufio.NewReader(f)
	var partial strings.Builder
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		chunk, err := reader.ReadString('\n')
		if chunk != "" {
			partial.WriteString(chunk)
		}
		if err == nil {
			fn(strings.TrimRight(partial.String(), "\r\n"))
			partial.Reset()
			continue
		}
		if !errors.Is(err, io.EOF) {
			return fmt.Errorf("read %s: %w", path, err)
		}

		// No new data, poll
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}

		info, serr := f.Stat()
		if serr != nil {
			continue
		}
		pos, _ := f.Seek(0, io.SeekCurrent)
		if info.Size() < pos {
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return fmt.Errorf("seek %s: %w", path, err)
			}
			reader.Reset(f)
			partial.Reset()
		}
	}
}
