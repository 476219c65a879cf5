package etc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/ygrebnov/etc/streams"
)

const (
	testWork = "/home/dev/projects/app/src/pkg"
	testRoot = "/home/dev/projects/app"
	testHome = "/home/dev"
	testEtc  = "/etc"
)

// memResolver builds a Resolver over an in-memory filesystem seeded with files.
// The working directory is testWork and the project manifest lives in testRoot
// unless the files map says otherwise.
func memResolver(t *testing.T, files map[string]string, opts ...Option) (*Resolver, afero.Fs, *streams.BuffersStreams) {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll(testWork, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for p, content := range files {
		writeMem(t, fs, p, content)
	}
	bs := streams.Buffers()
	base := []Option{
		WithFs(fs),
		WithWorkDir(testWork),
		WithHomeDir(testHome),
		WithEtcDir(testEtc),
		WithStreams(bs),
		WithArgs(nil),
	}
	return New(append(base, opts...)...), fs, bs
}

func writeMem(t *testing.T, fs afero.Fs, p, content string) {
	t.Helper()
	if err := fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := afero.WriteFile(fs, p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readMem(t *testing.T, fs afero.Fs, p string) string {
	t.Helper()
	b, err := afero.ReadFile(fs, p)
	if err != nil {
		t.Fatalf("read %s: %v", p, err)
	}
	return string(b)
}

// unsetEnv clears keys for the duration of the test and restores them afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		if err := os.Unsetenv(k); err != nil {
			t.Fatalf("unsetenv %s: %v", k, err)
		}
	}
}
