package procfs

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func writeProc(t *testing.T, root string, pid int, stat, cmdline string) {
	t.Helper()
	dir := filepath.Join(root, strconv.Itoa(pid))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "stat"), []byte(stat), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "cmdline"), []byte(cmdline), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParseStat(t *testing.T) {
	st, err := parseStat("4242 (java (main)) S 1 4242 4242 0 -1 4194560\n")
	if err != nil {
		t.Fatal(err)
	}
	if st.PID != 4242 || st.Comm != "java (main)" || st.State != 'S' || st.PPID != 1 || st.PGID != 4242 {
		t.Errorf("got %+v", st)
	}

	for _, bad := range []string{"", "12 java S", "x (a) S 1 2 3"} {
		if _, err := parseStat(bad); err == nil {
			t.Errorf("parseStat(%q): expected error", bad)
		}
	}
}

func TestAlive(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root, 10, "10 (sleep) S 1 10 10 0", "sleep\x00600\x00")
	writeProc(t, root, 11, "11 (sleep) Z 1 11 11 0", "")
	writeProc(t, root, 12, "12 (sleep) X 1 12 12 0", "")
	fs := FS{Root: root}

	tests := []struct {
		pid  int
		want bool
	}{
		{10, true},
		{11, false},
		{12, false},
		{13, false},
		{0, false},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.pid), func(t *testing.T) {
			if got := fs.Alive(tt.pid); got != tt.want {
				t.Errorf("Alive(%d) = %v, want %v", tt.pid, got, tt.want)
			}
		})
	}
}

func TestAliveSelf(t *testing.T) {
	if _, err := os.Stat("/proc/self/stat"); err != nil {
		t.Skip("no /proc")
	}
	if !Default.Alive(os.Getpid()) {
		t.Error("own process reported dead")
	}
}

func TestCmdline(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root, 10, "10 (java) S 1 10 10 0", "java\x00-jar\x00server.jar\x00")
	got, err := FS{Root: root}.Cmdline(10)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"java", "-jar", "server.jar"}
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arg %d: got %q, want %q", i, got[i], want[i])
		}
	}
	if _, err := (FS{Root: root}).Cmdline(99); err != ErrNoProcess {
		t.Errorf("got %v, want ErrNoProcess", err)
	}
}
