// Package logs discovers log files under a root directory, follows them and
// feeds every line to a line processor.
package logs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/modoterra/tender/pkg/logs/filetail"
)

// Emitter receives raw lines with the name of the stream they came from.
// *lineproc.Processor implements it.
type Emitter interface {
	Emit(raw, source string) bool
}

// Config configures an Aggregator.
type Config struct {
	Root     string
	Patterns []string
	// Exclude lists paths relative to Root that are never followed, such
	// as the supervisor's own console sink.
	Exclude []string
	// PollInterval overrides filetail.DefaultInterval.
	PollInterval time.Duration
}

// Aggregator follows every matching file under a root. All readers belong to
// one errgroup and are stopped together.
type Aggregator struct {
	cfg     Config
	matcher *Matcher
	emitter Emitter
	logger  *slog.Logger

	mu     sync.Mutex
	tails  map[string]context.CancelFunc
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
}

// New builds an Aggregator. It fails only on invalid patterns.
func New(cfg Config, emitter Emitter, logger *slog.Logger) (*Aggregator, error) {
	m, err := NewMatcher(cfg.Patterns, cfg.Exclude...)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		cfg:     cfg,
		matcher: m,
		emitter: emitter,
		logger:  logger.With("component", "logs"),
		tails:   make(map[string]context.CancelFunc),
	}, nil
}

// Watch starts following the files already present and any matching file
// created later (from its beginning). Existing files are read from their
// current end unless they were modified at or after since, which lets
// output written between the child's start and Watch be shown. A zero since
// follows every existing file from its end. It returns once
// the readers are running. A missing root is logged and leaves nothing to
// follow.
func (a *Aggregator) Watch(ctx context.Context, since time.Time) error {
	a.mu.Lock()
	if a.group != nil {
		a.mu.Unlock()
		return errors.New("logs: already watching")
	}
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	a.ctx, a.cancel, a.group = gctx, cancel, g
	a.mu.Unlock()

	root := a.cfg.Root
	if root == "" {
		return nil
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		a.logger.Warn("log root not found, no files will be followed", "root", root)
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		a.logger.Warn("file discovery disabled", "error", err)
		w = nil
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if w != nil {
				if err := w.Add(path); err != nil {
					a.logger.Warn("cannot watch directory", "dir", path, "error", err)
				}
			}
			return nil
		}
		a.maybeFollow(path, modifiedSince(d, since))
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", root, err)
	}

	if w != nil {
		g.Go(func() error {
			defer w.Close()
			a.discover(gctx, w)
			return nil
		})
	}
	return nil
}

func modifiedSince(d fs.DirEntry, since time.Time) bool {
	if since.IsZero() {
		return false
	}
	info, err := d.Info()
	return err == nil && !info.ModTime().Before(since)
}

// discover follows files and directories created after Watch started.
func (a *Aggregator) discover(ctx context.Context, w *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			switch {
			case ev.Has(fsnotify.Create):
				info, err := os.Stat(ev.Name)
				if err != nil {
					continue
				}
				if info.IsDir() {
					if err := w.Add(ev.Name); err != nil {
						a.logger.Warn("cannot watch directory", "dir", ev.Name, "error", err)
					}
					continue
				}
				a.maybeFollow(ev.Name, true)
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				a.unfollow(ev.Name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			a.logger.Warn("file discovery error", "error", err)
		}
	}
}

func (a *Aggregator) maybeFollow(path string, fromStart bool) {
	rel, err := filepath.Rel(a.cfg.Root, path)
	if err != nil || !a.matcher.Match(rel) {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.tails[path]; ok || a.group == nil || a.ctx.Err() != nil {
		return
	}
	fctx, cancel := context.WithCancel(a.ctx)
	a.tails[path] = cancel

	source := filepath.Base(path)
	opts := filetail.Options{FromStart: fromStart, Interval: a.cfg.PollInterval}
	a.logger.Info("following log file", "path", path)
	a.group.Go(func() error {
		err := filetail.Follow(fctx, path, opts, func(line string) {
			a.emitter.Emit(line, source)
		})
		if err != nil {
			a.logger.Warn("stopped following log file", "path", path, "error", err)
		}
		return nil
	})
}

func (a *Aggregator) unfollow(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if cancel, ok := a.tails[path]; ok {
		cancel()
		delete(a.tails, path)
	}
}

// Following returns the paths currently followed.
func (a *Aggregator) Following() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.tails))
	for p := range a.tails {
		out = append(out, p)
	}
	return out
}

// Stop cancels every reader and waits for them to return. It is safe to call
// more than once and before Watch.
func (a *Aggregator) Stop() error {
	a.mu.Lock()
	cancel, g := a.cancel, a.group
	a.mu.Unlock()
	if g == nil {
		return nil
	}
	cancel()
	return g.Wait()
}

// Drain processes r line by line until EOF. It is used for pipes such as the
// child's output and hook scripts, where the source is a logical name.
func (a *Aggregator) Drain(r io.Reader, source string) error {
	return Drain(r, source, a.emitter)
}

// MaxLineBytes caps a drained line. The rest of a longer line is dropped
// and reading continues with the next line.
const MaxLineBytes = 1024 * 1024

// Drain feeds each line of r to e.
func Drain(r io.Reader, source string, e Emitter) error {
	br := bufio.NewReaderSize(r, 64*1024)
	line := make([]byte, 0, 4096)
	for {
		chunk, err := br.ReadSlice('\n')
		if room := MaxLineBytes - len(line); room > 0 {
			line = append(line, chunk[:min(len(chunk), room)]...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if len(line) > 0 {
			e.Emit(string(bytes.TrimSuffix(bytes.TrimSuffix(line, []byte("\n")), []byte("\r"))), source)
			line = line[:0]
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, os.ErrClosed):
			return nil
		default:
			return fmt.Errorf("drain %s: %w", source, err)
		}
	}
}
