// Package procfs reads process state from /proc.
package procfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrNoProcess is returned when the pid has no /proc entry.
var ErrNoProcess = errors.New("procfs: no such process")

// FS is a proc filesystem mounted at Root.
type FS struct {
	Root string
}

// Default is the host's /proc.
var Default = FS{Root: "/proc"}

// Stat is the subset of /proc/<pid>/stat the supervisor reads.
type Stat struct {
	PID   int
	Comm  string
	State byte
	PPID  int
	PGID  int
}

// Stat parses /proc/<pid>/stat.
func (fs FS) Stat(pid int) (Stat, error) {
	data, err := os.ReadFile(filepath.Join(fs.Root, strconv.Itoa(pid), "stat"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Stat{}, ErrNoProcess
		}
		return Stat{}, fmt.Errorf("read stat %d: %w", pid, err)
	}
	return parseStat(string(data))
}

// comm may contain spaces and parentheses, so fields after it are located
// from the last ')'.
func parseStat(s string) (Stat, error) {
	open := strings.IndexByte(s, '(')
	end := strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return Stat{}, fmt.Errorf("malformed stat %q", s)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(s[:open]))
	if err != nil {
		return Stat{}, fmt.Errorf("malformed stat pid: %w", err)
	}
	fields := strings.Fields(s[end+1:])
	if len(fields) < 4 || len(fields[0]) != 1 {
		return Stat{}, fmt.Errorf("malformed stat %q", s)
	}
	st := Stat{PID: pid, Comm: s[open+1 : end], State: fields[0][0]}
	st.PPID, _ = strconv.Atoi(fields[1])
	st.PGID, _ = strconv.Atoi(fields[2])
	return st, nil
}

// Cmdline returns the argv of pid.
func (fs FS) Cmdline(pid int) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(fs.Root, strconv.Itoa(pid), "cmdline"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoProcess
		}
		return nil, fmt.Errorf("read cmdline %d: %w", pid, err)
	}
	s := strings.TrimRight(string(data), "\x00")
	if s == "" {
		return nil, nil
	}
	return strings.Split(s, "\x00"), nil
}

// Alive reports whether pid exists and is neither a zombie nor dead. When
// the proc filesystem is not mounted it falls back to signal 0.
func (fs FS) Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	st, err := fs.Stat(pid)
	switch {
	case err == nil:
		return st.State != 'Z' && st.State != 'X' && st.State != 'x'
	case errors.Is(err, ErrNoProcess) && fs.mounted():
		return false
	}
	return syscall.Kill(pid, 0) == nil
}

func (fs FS) mounted() bool {
	info, err := os.Stat(fs.Root)
	return err == nil && info.IsDir()
}
