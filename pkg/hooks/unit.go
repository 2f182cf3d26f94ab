package hooks

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// OutputWait bounds how long a unit's output is still read after the unit
// exited. Background processes started by a hook keep the pipe open.
const OutputWait = time.Second

// Unit is one hook in a category.
type Unit interface {
	Name() string
	Run(ctx context.Context, hc *Context) error
}

// Func is an in-process unit.
type Func struct {
	UnitName string
	Fn       func(ctx context.Context, hc *Context) error
}

func (f Func) Name() string { return f.UnitName }

func (f Func) Run(ctx context.Context, hc *Context) error { return f.Fn(ctx, hc) }

// Drainer consumes a unit's output stream until EOF.
type Drainer interface {
	Drain(r io.Reader, source string) error
}

// ScriptUnit runs a file from a category directory. Executable files run
// directly; other files ending in .sh run through /bin/sh.
type ScriptUnit struct {
	Path     string
	Category string
	Output   Drainer
	// BaseEnv is the environment the context variables are layered on.
	BaseEnv []string
}

func (s ScriptUnit) Name() string { return filepath.Base(s.Path) }

// Run executes the script with the context variables in its environment and
// merges the KEY=VALUE lines it writes to $HOOK_ENV_FILE back into hc.
func (s ScriptUnit) Run(ctx context.Context, hc *Context) error {
	envFile, err := os.CreateTemp("", "tender-hook-*.env")
	if err != nil {
		return fmt.Errorf("create env file: %w", err)
	}
	envPath := envFile.Name()
	envFile.Close()
	defer os.Remove(envPath)

	var cmd *exec.Cmd
	if isExecutable(s.Path) {
		cmd = exec.CommandContext(ctx, s.Path)
	} else {
		cmd = exec.CommandContext(ctx, "/bin/sh", s.Path)
	}
	cmd.Dir = filepath.Dir(s.Path)
	cmd.Env = append(append(append([]string(nil), s.BaseEnv...), hc.Environ()...),
		VarCategory+"="+s.Category,
		VarEnvFile+"="+envPath,
	)

	pr, pw, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("pipe: %w", err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return fmt.Errorf("start: %w", err)
	}
	pw.Close()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		if s.Output != nil {
			s.Output.Drain(pr, s.Name())
		} else {
			io.Copy(io.Discard, pr)
		}
	}()

	runErr := cmd.Wait()
	select {
	case <-drained:
	case <-time.After(OutputWait):
	}
	pr.Close()
	<-drained

	vars, err := readEnvFile(envPath)
	if err != nil {
		return fmt.Errorf("read env file: %w", err)
	}
	hc.Merge(vars)
	return runErr
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}

// readEnvFile parses KEY=VALUE lines. Blank lines, comments and lines
// without '=' are ignored; an optional "export " prefix is accepted.
func readEnvFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	vars := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		k, v, ok := strings.Cut(line, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			continue
		}
		vars[k] = unquote(strings.TrimSpace(v))
	}
	return vars, scanner.Err()
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}
