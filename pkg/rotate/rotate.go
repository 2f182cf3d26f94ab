// Package rotate compresses aged log files and removes old archives.
package rotate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/modoterra/tender/pkg/logs"
)

// DefaultInterval is the time between rotation passes.
const DefaultInterval = time.Hour

const day = 24 * time.Hour

// Config selects the files and ages. A zero age disables that step.
type Config struct {
	Root            string
	Patterns        []string
	Exclude         []string
	GzipAfterDays   int
	DeleteAfterDays int
}

// Result lists what one pass changed.
type Result struct {
	Compressed []string
	Deleted    []string
}

// Run performs one pass at now. Failures on individual files are collected
// and do not stop the pass.
func Run(cfg Config, now time.Time) (Result, error) {
	var res Result
	if cfg.Root == "" || (cfg.GzipAfterDays <= 0 && cfg.DeleteAfterDays <= 0) {
		return res, nil
	}
	m, err := logs.NewMatcher(cfg.Patterns, cfg.Exclude...)
	if err != nil {
		return res, err
	}

	var errs []error
	gzipBefore := now.Add(-time.Duration(cfg.GzipAfterDays) * day)
	deleteBefore := now.Add(-time.Duration(cfg.DeleteAfterDays) * day)

	err = filepath.WalkDir(cfg.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == cfg.Root {
				return err
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(cfg.Root, path)

		switch {
		case strings.HasSuffix(path, ".gz"):
			if cfg.DeleteAfterDays > 0 && info.ModTime().Before(deleteBefore) {
				if err := os.Remove(path); err != nil {
					errs = append(errs, err)
					return nil
				}
				res.Deleted = append(res.Deleted, path)
			}
		case cfg.GzipAfterDays > 0 && m.Match(rel) && info.ModTime().Before(gzipBefore):
			if err := Compress(path); err != nil {
				errs = append(errs, err)
				return nil
			}
			res.Compressed = append(res.Compressed, path)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return res, nil
		}
		errs = append(errs, fmt.Errorf("walk %s: %w", cfg.Root, err))
	}
	return res, errors.Join(errs...)
}

// Compress writes path to path+".gz" with the same modification time and
// removes the original.
func Compress(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst := path + ".gz"
	tmp := dst + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	zw := gzip.NewWriter(out)
	zw.Name = filepath.Base(path)
	zw.ModTime = info.ModTime()
	_, err = io.Copy(zw, src)
	if cerr := zw.Close(); err == nil {
		err = cerr
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("compress %s: %w", path, err)
	}

	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("chtimes %s: %w", dst, err)
	}
	return os.Remove(path)
}

// Loop runs a pass immediately and then every interval until ctx is done.
func Loop(ctx context.Context, cfg Config, interval time.Duration, logger *slog.Logger) {
	if cfg.GzipAfterDays <= 0 && cfg.DeleteAfterDays <= 0 {
		return
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "rotate")

	pass := func() {
		res, err := Run(cfg, time.Now())
		for _, p := range res.Compressed {
			logger.Info("compressed log", "path", p)
		}
		for _, p := range res.Deleted {
			logger.Info("deleted archive", "path", p)
		}
		if err != nil {
			logger.Warn("rotation incomplete", "error", err)
		}
	}

	pass()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pass()
		}
	}
}
