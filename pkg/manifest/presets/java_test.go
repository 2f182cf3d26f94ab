package presets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modoterra/tender/pkg/manifest"
)

func TestGenerateJava_PrefersServerJar(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a-lib.jar"), nil, 0o644)
	os.WriteFile(filepath.Join(dir, "server.jar"), nil, 0o644)

	m, err := GenerateJava(dir)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	got := strings.Join(m.Command, " ")
	if got != "java -Xms1G -Xmx2G -jar server.jar nogui" {
		t.Errorf("command: got %q", got)
	}
	if m.Logs.Root != filepath.Join(dir, "logs") {
		t.Errorf("logs root: got %q", m.Logs.Root)
	}

	errs := manifest.Validate(m)
	if len(errs) != 0 {
		t.Errorf("validation errors: %v", errs)
	}
}

func TestGenerateJava_ArgsFile(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "forge-1.20.jar"), nil, 0o644)
	os.WriteFile(filepath.Join(dir, "user_jvm_args.txt"), []byte("-Xmx4G\n"), 0o644)

	m, err := GenerateJava(dir)
	if err != nil {
		t.Fatal(err)
	}
	got := strings.Join(m.Command, " ")
	if got != "java @user_jvm_args.txt -jar forge-1.20.jar nogui" {
		t.Errorf("command: got %q", got)
	}
}

func TestGenerateJava_NoJar(t *testing.T) {
	_, err := GenerateJava(t.TempDir())
	if err == nil {
		t.Fatal("expected error for directory without a jar")
	}
}

func TestGenerateJava_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "server.jar"), nil, 0o644)
	m, err := GenerateJava(dir)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "tender.yaml")
	if err := manifest.Save(m, path); err != nil {
		t.Fatal(err)
	}
	loaded, err := manifest.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(loaded.Command, " ") != strings.Join(m.Command, " ") {
		t.Errorf("command: got %v, want %v", loaded.Command, m.Command)
	}
	if len(loaded.Colors.Word) != 2 {
		t.Errorf("word colors: got %v", loaded.Colors.Word)
	}
}
