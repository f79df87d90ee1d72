package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

const hash = "0123456789abcdef0123456789abcdef01234567"

func TestNewCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "line-data")

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Error("New() should create cache directory")
	}
	if c.Dir() != dir {
		t.Errorf("Dir() = %s, want %s", c.Dir(), dir)
	}
}

func TestLayout(t *testing.T) {
	c := &Cache{dir: "line-data"}

	if got, want := c.TablePath("core", hash), filepath.Join("line-data", "parts", "core", hash+".json"); got != want {
		t.Errorf("TablePath() = %s, want %s", got, want)
	}
	if got, want := c.BlamePath("lib/spack/main.py", hash), filepath.Join("line-data", "blame", "lib", "spack", "main.py", hash+".txt"); got != want {
		t.Errorf("BlamePath() = %s, want %s", got, want)
	}
}

func TestWriteAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", hash+".json")

	if err := WriteAtomic(path, []byte("{}\n"), TempTag()); err != nil {
		t.Fatalf("WriteAtomic() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "{}\n" {
		t.Fatalf("ReadFile() = %q, %v", data, err)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the final file, found %d entries", len(entries))
	}

	if err := WriteAtomic(path, []byte("{\"a\": 1}\n"), TempTag()); err != nil {
		t.Fatalf("overwrite error: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "{\"a\": 1}\n" {
		t.Errorf("last writer should win, got %q", data)
	}
}

func TestTempTag(t *testing.T) {
	tag := TempTag()
	if !strings.HasPrefix(tag, fmt.Sprintf("%d.", os.Getpid())) {
		t.Errorf("TempTag() = %s, want pid prefix", tag)
	}
	if TempTag() == TempTag() {
		t.Error("successive tags must differ")
	}
}

func TestWriteAtomic_ConcurrentSameKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), hash+".json")
	want := []byte("{\"Alice\": 1}\n")

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- WriteAtomic(path, want, TempTag())
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("WriteAtomic() error: %v", err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != string(want) {
		t.Fatalf("ReadFile() = %q, %v", data, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the final file, found %d entries", len(entries))
	}
}

func TestCommits(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	other := strings.Repeat("f", 40)
	for _, name := range []string{hash + ".json", other + ".json", hash + ".json.tmp.1.2", "notes.json", ".patterns"} {
		if err := WriteAtomic(filepath.Join(c.GroupDir("core"), name), []byte("{}"), "x"); err != nil {
			t.Fatal(err)
		}
	}

	got, err := c.Commits("core")
	if err != nil {
		t.Fatalf("Commits() error: %v", err)
	}
	if len(got) != 2 || got[0] != hash || got[1] != other {
		t.Errorf("Commits() = %v", got)
	}

	missing, err := c.Commits("nope")
	if err != nil || missing != nil {
		t.Errorf("Commits(missing) = %v, %v", missing, err)
	}

	groups, err := c.Groups()
	if err != nil || len(groups) != 1 || groups[0] != "core" {
		t.Errorf("Groups() = %v, %v", groups, err)
	}
}

func TestCleanStale(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "blame", "x.py", hash+".txt.tmp.99.1")
	fresh := filepath.Join(dir, "parts", "all", hash+".json.tmp.99.2")
	keep := filepath.Join(dir, "parts", "all", hash+".json")

	for _, p := range []string{old, fresh, keep} {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-2 * StaleAge)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}

	removed, err := CleanStale(dir, StaleAge)
	if err != nil {
		t.Fatalf("CleanStale() error: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("old temp file should be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh temp file should be kept")
	}

	removed, err = CleanStale(dir, 0)
	if err != nil || removed != 1 {
		t.Errorf("CleanStale(0) = %d, %v, want 1", removed, err)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Error("final entries must never be removed")
	}

	if n, err := CleanStale(filepath.Join(dir, "missing"), 0); err != nil || n != 0 {
		t.Errorf("CleanStale(missing) = %d, %v", n, err)
	}
}

func TestCheckFingerprint(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	ok, err := c.CheckFingerprint("core", []string{"^lib/"})
	if err != nil || !ok {
		t.Fatalf("first CheckFingerprint() = %v, %v", ok, err)
	}
	ok, err = c.CheckFingerprint("core", []string{"^lib/"})
	if err != nil || !ok {
		t.Errorf("same patterns = %v, %v", ok, err)
	}
	ok, err = c.CheckFingerprint("core", []string{"^lib/", "^bin/"})
	if err != nil || ok {
		t.Errorf("changed patterns = %v, %v, want false", ok, err)
	}
}

func TestHashBytes(t *testing.T) {
	if HashBytes([]byte("a")) == HashBytes([]byte("b")) {
		t.Error("different inputs should hash differently")
	}
	if len(HashBytes(nil)) != 64 {
		t.Errorf("hash length = %d, want 64", len(HashBytes(nil)))
	}
}

func TestGetStats(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(WriteAtomic(c.TablePath("core", hash), []byte(`{"a": 1}`), "x"))
	must(WriteAtomic(c.TablePath("docs", hash), []byte(`{"a": 1}`), "x"))
	must(WriteAtomic(c.BlamePath("a.py", hash), []byte("blame"), "x"))
	must(os.WriteFile(c.BlamePath("a.py", hash)+".tmp.1.1", []byte("partial"), 0644))

	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error: %v", err)
	}
	if stats.Groups["core"] != 1 || stats.Groups["docs"] != 1 {
		t.Errorf("Groups = %v", stats.Groups)
	}
	if stats.Blames != 1 {
		t.Errorf("Blames = %d, want 1", stats.Blames)
	}
	if stats.Stale != 1 {
		t.Errorf("Stale = %d, want 1", stats.Stale)
	}
	if stats.TotalSize == 0 {
		t.Error("TotalSize should be non-zero")
	}
}
