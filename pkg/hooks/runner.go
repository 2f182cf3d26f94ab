// Package hooks discovers and runs hook units grouped by category.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Runner runs the units of a category in order. Categories are
// subdirectories of Root; units may also be registered in process.
type Runner struct {
	root    string
	hc      *Context
	output  Drainer
	logger  *slog.Logger
	baseEnv []string

	mu         sync.Mutex
	registered map[string][]Unit

	runMu sync.Mutex // serializes RunCategory
}

// NewRunner creates a Runner. output receives script output; it may be nil.
func NewRunner(root string, hc *Context, output Drainer, logger *slog.Logger) *Runner {
	if hc == nil {
		hc = NewContext(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		root:       root,
		hc:         hc,
		output:     output,
		logger:     logger.With("component", "hooks"),
		baseEnv:    os.Environ(),
		registered: make(map[string][]Unit),
	}
}

// Context returns the shared hook context.
func (r *Runner) Context() *Context { return r.hc }

// Register adds an in-process unit to category.
func (r *Runner) Register(category string, u Unit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered[category] = append(r.registered[category], u)
}

// Units returns the units of category in run order: by numeric name prefix,
// then by name. Names without a numeric prefix sort after numbered ones.
func (r *Runner) Units(category string) ([]Unit, error) {
	r.mu.Lock()
	units := append([]Unit(nil), r.registered[category]...)
	r.mu.Unlock()

	if r.root != "" {
		dir := filepath.Join(r.root, category)
		entries, err := os.ReadDir(dir)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read hook dir %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if !isExecutable(path) && !strings.HasSuffix(e.Name(), ".sh") {
				continue
			}
			units = append(units, ScriptUnit{
				Path:     path,
				Category: category,
				Output:   r.output,
				BaseEnv:  r.baseEnv,
			})
		}
	}

	sort.SliceStable(units, func(i, j int) bool {
		return lessUnitName(units[i].Name(), units[j].Name())
	})
	return units, nil
}

// RunCategory runs every unit of category. A failing unit is logged and the
// rest still run; the failures are returned joined. Calls are serialized.
func (r *Runner) RunCategory(ctx context.Context, category string) error {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	units, err := r.Units(category)
	if err != nil {
		r.logger.Error("hook discovery failed", "category", category, "error", err)
		return err
	}
	if len(units) == 0 {
		r.logger.Debug("no hooks", "category", category)
		return nil
	}

	r.logger.Info("running hooks", "category", category, "count", len(units))
	var errs []error
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := u.Run(ctx, r.hc); err != nil {
			r.logger.Error("hook failed", "unit", u.Name(), "category", category, "error", err)
			errs = append(errs, fmt.Errorf("%s/%s: %w", category, u.Name(), err))
			continue
		}
		r.logger.Debug("hook finished", "unit", u.Name(), "category", category)
	}
	return errors.Join(errs...)
}

func lessUnitName(a, b string) bool {
	na, oka := numericPrefix(a)
	nb, okb := numericPrefix(b)
	switch {
	case oka && okb && na != nb:
		return na < nb
	case oka != okb:
		return oka
	}
	return a < b
}

func numericPrefix(name string) (int, bool) {
	end := 0
	for end < len(name) && name[end] >= '0' && name[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(name[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
