// Package presets generates manifests for common workloads.
package presets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/modoterra/tender/pkg/lineproc"
	"github.com/modoterra/tender/pkg/manifest"
)

// GenerateJava creates a manifest for a directory holding a server jar.
// server.jar is preferred; otherwise the first jar by name is used.
func GenerateJava(root string) (*manifest.Manifest, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	jar, err := findJar(absRoot)
	if err != nil {
		return nil, err
	}

	m := manifest.Default()
	m.Root = absRoot
	m.Dir = absRoot
	m.Logs.Root = filepath.Join(absRoot, "logs")
	m.Hooks.Root = filepath.Join(absRoot, "hooks")

	cmd := []string{"java"}
	// Forge style installs keep JVM flags in an args file
	if _, err := os.Stat(filepath.Join(absRoot, "user_jvm_args.txt")); err == nil {
		cmd = append(cmd, "@user_jvm_args.txt")
	} else {
		cmd = append(cmd, "-Xms1G", "-Xmx2G")
	}
	m.Command = append(cmd, "-jar", jar, "nogui")

	m.Cleanup = []lineproc.CleanupRule{
		{Pattern: `\[[^\]]*/INFO\]:\s*`},
	}
	m.Colors.Line = []string{
		`WARN:yellow`,
		`ERROR|Exception:bold_red`,
	}
	m.Colors.Word = []string{
		`\w+ (joined|left) the game:green`,
		`Done \([0-9.]+s\)!:cyan`,
	}
	m.Rotation.GzipAfterDays = 7
	m.Rotation.DeleteAfterDays = 30

	return m, nil
}

func findJar(root string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", root, err)
	}
	var jars []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jar") {
			jars = append(jars, e.Name())
		}
	}
	if len(jars) == 0 {
		return "", fmt.Errorf("%s does not appear to hold a Java server (no .jar file)", root)
	}
	sort.Strings(jars)
	for _, j := range jars {
		if j == "server.jar" {
			return j, nil
		}
	}
	return jars[0], nil
}
