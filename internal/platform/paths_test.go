package platform

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestQuoteArg(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix quoting")
	}
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"", `""`},
		{"My Org", "'My Org'"},
		{"it's", `'it'\''s'`},
		{"ApexClass:Foo", "ApexClass:Foo"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := QuoteArg(tt.in); got != tt.want {
				t.Errorf("QuoteArg(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCommandLine(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix quoting")
	}
	got := CommandLine("sf", []string{"org", "display", "--target-org", "Prod Org", "--json"})
	want := "sf org display --target-org 'Prod Org' --json"
	if got != want {
		t.Errorf("CommandLine() = %q, want %q", got, want)
	}
}

func TestNormalizePath(t *testing.T) {
	if got := NormalizePath("a/b/../c"); got != filepath.Clean("a/c") {
		t.Errorf("NormalizePath() = %q", got)
	}
	if got := NormalizePath("~/x"); strings.HasPrefix(got, "~") {
		t.Errorf("NormalizePath() did not expand home: %q", got)
	}
}

func TestValidatePath(t *testing.T) {
	if err := ValidatePath(""); err == nil {
		t.Error("expected error for empty path")
	}
	if err := ValidatePath("a\x00b"); err == nil {
		t.Error("expected error for NUL byte")
	}
	if err := ValidatePath(t.TempDir()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDirs(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	dir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir() error = %v", err)
	}
	if filepath.Base(dir) != appName {
		t.Errorf("DataDir() = %q", dir)
	}
	cfg, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	if filepath.Base(cfg) != appName {
		t.Errorf("ConfigDir() = %q", cfg)
	}
}
