package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/sdejongh/metadiff/pkg/models"
)

// diffContext is the number of unchanged lines around each hunk
const diffContext = 3

// UnifiedDiff returns the unified diff from side A to side B, or "" when
// the payloads are identical
func UnifiedDiff(r *models.ComparisonResult) (string, error) {
	if r == nil || r.ContentA == r.ContentB {
		return "", nil
	}
	name := SourceName(r.Category, r.Entry, r.FilePath)
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(r.ContentA),
		B:        difflib.SplitLines(r.ContentB),
		FromFile: r.EnvA + "/" + name,
		ToFile:   r.EnvB + "/" + name,
		Context:  diffContext,
	})
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// RunDiffTool writes both payloads of r to temporary files and runs tool,
// a command template whose {a} and {b} placeholders are replaced by the
// file paths. Exit status 1 is the conventional "files differ" status of
// diff tools and is not an error. The files are removed afterwards.
func RunDiffTool(ctx context.Context, tool string, r *models.ComparisonResult, stdout, stderr io.Writer) error {
	fields := strings.Fields(tool)
	if len(fields) == 0 {
		return fmt.Errorf("no diff tool configured")
	}

	dir, err := os.MkdirTemp("", "metadiff-diff-*")
	if err != nil {
		return fmt.Errorf("failed to create diff directory: %w", err)
	}
	defer os.RemoveAll(dir)

	name := SourceName(r.Category, r.Entry, r.FilePath)
	pathA, err := writeSide(dir, "A-"+r.EnvA, name, r.ContentA)
	if err != nil {
		return err
	}
	pathB, err := writeSide(dir, "B-"+r.EnvB, name, r.ContentB)
	if err != nil {
		return err
	}

	args := make([]string, len(fields)-1)
	for i, field := range fields[1:] {
		field = strings.ReplaceAll(field, "{a}", pathA)
		args[i] = strings.ReplaceAll(field, "{b}", pathB)
	}

	cmd := exec.CommandContext(ctx, fields[0], args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	err = cmd.Run()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return nil
	}
	if err != nil {
		return fmt.Errorf("diff tool %s failed: %w", fields[0], err)
	}
	return nil
}

func writeSide(root, label, name, content string) (string, error) {
	dir := filepath.Join(root, unsafeChars.ReplaceAllString(label, "_"))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create diff directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
