package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sdejongh/metadiff/pkg/gateway"
	"github.com/sdejongh/metadiff/pkg/models"
)

const devSnapshot = `{
	"environment": {"display_name": "Development", "username": "dev@example.com"},
	"categories": [{"name": "ApexClass"}, {"name": "Flow"}],
	"entries": {
		"ApexClass": [
			{"name": "Shared", "fingerprint": "10"},
			{"name": "Changed", "fingerprint": "20"},
			{"name": "NewFeature"},
		],
	},
	"contents": {
		"ApexClass:Shared": "same",
		"ApexClass:Changed": "v1",
		"ApexClass:NewFeature": "brand new",
	},
}`

const prodSnapshot = `{
	"environment": {"display_name": "Production", "username": "prod@example.com"},
	"categories": [{"name": "ApexClass"}],
	"entries": {
		"ApexClass": [
			{"name": "Shared", "fingerprint": "10"},
			{"name": "Changed", "fingerprint": "21"},
			{"name": "Legacy"},
		],
	},
	"contents": {
		"ApexClass:Shared": "same",
		"ApexClass:Changed": "v2",
	},
}`

type fixture struct {
	snapshots string
	config    string
	dir       string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		snapshots: filepath.Join(dir, "snapshots"),
		config:    filepath.Join(dir, "config.yaml"),
		dir:       dir,
	}
	if err := os.MkdirAll(f.snapshots, 0o755); err != nil {
		t.Fatal(err)
	}
	for alias, body := range map[string]string{"dev": devSnapshot, "prod": prodSnapshot} {
		if err := os.WriteFile(filepath.Join(f.snapshots, alias+gateway.SnapshotExt), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := "store:\n  path: " + filepath.Join(dir, "state.db") + "\noutput:\n  color: never\n  progress: false\n"
	if err := os.WriteFile(f.config, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return f
}

// run executes the command line against the fixture snapshots
func (f *fixture) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", f.config, "--snapshot", f.snapshots}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestEnvsCommand(t *testing.T) {
	f := newFixture(t)
	stdout, _, err := f.run(t, "envs", "-o", "json")
	if err != nil {
		t.Fatalf("envs error = %v", err)
	}
	var doc struct {
		Environments []models.Environment `json:"environments"`
	}
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if len(doc.Environments) != 2 || doc.Environments[0].Alias != "dev" || doc.Environments[1].Alias != "prod" {
		t.Errorf("unexpected environments: %+v", doc.Environments)
	}
}

func TestValidateRemembersPair(t *testing.T) {
	f := newFixture(t)
	stdout, _, err := f.run(t, "validate", "-A", "dev", "-B", "prod")
	if err != nil {
		t.Fatalf("validate error = %v", err)
	}
	if !strings.Contains(stdout, "Environment dev is reachable") || !strings.Contains(stdout, "prod@example.com") {
		t.Errorf("unexpected output:\n%s", stdout)
	}

	// entries falls back to the validated pair
	stdout, _, err = f.run(t, "entries", "ApexClass", "-o", "json")
	if err != nil {
		t.Fatalf("entries error = %v", err)
	}
	var view models.ReconciledView
	if err := json.Unmarshal([]byte(stdout), &view); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	want := map[string]struct {
		presence models.Presence
		hint     models.EqualityHint
	}{
		"Changed":    {models.PresenceBoth, models.HintLikelyDifferent},
		"Legacy":     {models.PresenceBOnly, models.HintUnknown},
		"NewFeature": {models.PresenceAOnly, models.HintUnknown},
		"Shared":     {models.PresenceBoth, models.HintLikelyEqual},
	}
	if len(view.Entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(view.Entries), len(want))
	}
	for _, e := range view.Entries {
		w := want[e.Name]
		if e.Presence != w.presence || e.Hint != w.hint {
			t.Errorf("%s = %s/%s, want %s/%s", e.Name, e.Presence, e.Hint, w.presence, w.hint)
		}
	}
}

func TestValidateUnknownEnvironment(t *testing.T) {
	f := newFixture(t)
	_, stderr, err := f.run(t, "validate", "-A", "dev", "-B", "staging")
	if err == nil || !IsReported(err) {
		t.Fatalf("expected reported error, got %v", err)
	}
	if !strings.Contains(stderr, "staging") {
		t.Errorf("stderr does not name the failing environment:\n%s", stderr)
	}
}

func TestMissingPair(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.run(t, "categories")
	var ve *models.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEntriesFilter(t *testing.T) {
	f := newFixture(t)
	stdout, _, err := f.run(t, "entries", "ApexClass", "-A", "dev", "-B", "prod", "--presence", "A_ONLY,B_ONLY")
	if err != nil {
		t.Fatalf("entries error = %v", err)
	}
	if !strings.Contains(stdout, "NewFeature") || !strings.Contains(stdout, "Legacy") || strings.Contains(stdout, "Shared") {
		t.Errorf("unexpected output:\n%s", stdout)
	}

	if _, _, err := f.run(t, "entries", "ApexClass", "-A", "dev", "-B", "prod", "--presence", "SOMEWHERE"); err == nil {
		t.Error("expected error for invalid presence")
	}
}

func TestCategoriesCommand(t *testing.T) {
	f := newFixture(t)
	stdout, _, err := f.run(t, "categories", "-A", "dev", "-B", "prod")
	if err != nil {
		t.Fatalf("categories error = %v", err)
	}
	if !strings.Contains(stdout, "2 categories (A: 2, B: 1)") || !strings.Contains(stdout, "Warning") {
		t.Errorf("unexpected output:\n%s", stdout)
	}
}

func TestCompareCommand(t *testing.T) {
	f := newFixture(t)
	stdout, _, err := f.run(t, "compare", "ApexClass:Changed", "-A", "dev", "-B", "prod")
	if err != nil {
		t.Fatalf("compare error = %v", err)
	}
	for _, want := range []string{"DIFFERENT", "-v1", "+v2"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}

	stdout, _, err = f.run(t, "compare", "ApexClass", "Shared", "-A", "dev", "-B", "prod", "-o", "json")
	if err != nil {
		t.Fatalf("compare error = %v", err)
	}
	var doc struct {
		Verdict models.Verdict `json:"verdict"`
	}
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil || doc.Verdict != models.VerdictEqual {
		t.Errorf("unexpected comparison %q (%v)", stdout, err)
	}
}

func TestCompareMissingEntry(t *testing.T) {
	f := newFixture(t)
	_, stderr, err := f.run(t, "compare", "ApexClass:NewFeature", "-A", "dev", "-B", "prod")
	if err == nil {
		t.Fatal("expected error for entry missing in B")
	}
	if !strings.Contains(stderr, "not found") {
		t.Errorf("unexpected stderr:\n%s", stderr)
	}
}

func TestShowCommand(t *testing.T) {
	f := newFixture(t)
	stdout, _, err := f.run(t, "show", "ApexClass:Changed", "-A", "dev", "-B", "prod", "--side", "B")
	if err != nil {
		t.Fatalf("show error = %v", err)
	}
	if stdout != "v2\n" {
		t.Errorf("show output = %q", stdout)
	}
	if _, _, err := f.run(t, "show", "ApexClass:Changed", "-A", "dev", "-B", "prod", "--side", "C"); err == nil {
		t.Error("expected error for invalid side")
	}
}

func TestReviewCommand(t *testing.T) {
	f := newFixture(t)
	report := filepath.Join(f.dir, "review.json")
	stdout, _, err := f.run(t, "review", "ApexClass", "-A", "dev", "-B", "prod",
		"--select-a-only", "--report", report, "--report-format", "json", "-o", "json")
	if err != nil {
		t.Fatalf("review error = %v", err)
	}

	dec := json.NewDecoder(strings.NewReader(stdout))
	var prefetch map[string]any
	if err := dec.Decode(&prefetch); err != nil {
		t.Fatalf("invalid prefetch document: %v", err)
	}
	var ledger struct {
		Entries []models.LedgerEntry `json:"entries"`
	}
	if err := dec.Decode(&ledger); err != nil {
		t.Fatalf("invalid ledger document: %v", err)
	}
	if len(ledger.Entries) != 2 {
		t.Fatalf("ledger = %+v", ledger.Entries)
	}
	changed, added := ledger.Entries[0], ledger.Entries[1]
	if changed.Entry != "Changed" || changed.Origin != models.OriginReview || changed.Verdict != models.VerdictDifferent {
		t.Errorf("unexpected review record: %+v", changed)
	}
	if added.Entry != "NewFeature" || added.Origin != models.OriginPromotion {
		t.Errorf("unexpected promotion record: %+v", added)
	}

	data, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !strings.Contains(string(data), `"total_count": 2`) {
		t.Errorf("unexpected report:\n%s", data)
	}
}

func TestReviewSelectRejectsSharedEntry(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.run(t, "review", "ApexClass", "-A", "dev", "-B", "prod", "--no-compare", "--select", "ApexClass:Shared")
	if err == nil {
		t.Fatal("expected error selecting an entry present in both environments")
	}
}

func TestSnapshotCommand(t *testing.T) {
	f := newFixture(t)
	out := filepath.Join(f.dir, "copy")
	_, stderr, err := f.run(t, "snapshot", "dev", "--dir", out)
	if err != nil {
		t.Fatalf("snapshot error = %v", err)
	}
	if !strings.Contains(stderr, "Snapshot of dev written") {
		t.Errorf("unexpected stderr:\n%s", stderr)
	}

	gw := gateway.NewSnapshot(out)
	entries, err := gw.ListEntries(context.Background(), "ApexClass", "dev")
	if err != nil || len(entries) != 3 {
		t.Fatalf("ListEntries() = %+v, %v", entries, err)
	}
	flows, err := gw.ListEntries(context.Background(), "Flow", "dev")
	if err != nil || len(flows) != 0 {
		t.Errorf("Flow entries = %+v, %v", flows, err)
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadiff", "config.yaml")
	run := func(args ...string) error {
		cmd := NewRootCommand()
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		cmd.SetArgs(append([]string{"--config", path}, args...))
		return cmd.Execute()
	}
	if err := run("config", "init"); err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if err := run("config", "init"); err == nil {
		t.Error("expected error when the file exists")
	}
	if err := run("config", "init", "--force"); err != nil {
		t.Errorf("config init --force error = %v", err)
	}
}

func TestParseComponentRef(t *testing.T) {
	tests := []struct {
		args            []string
		category, entry string
		wantErr         bool
	}{
		{[]string{"ApexClass:Foo"}, "ApexClass", "Foo", false},
		{[]string{"Report:Folder/Name:v2"}, "Report", "Folder/Name:v2", false},
		{[]string{"ApexClass", "Foo"}, "ApexClass", "Foo", false},
		{[]string{"ApexClass"}, "", "", true},
		{[]string{"ApexClass", " "}, "", "", true},
		{[]string{"a", "b", "c"}, "", "", true},
	}
	for _, tt := range tests {
		category, entry, err := parseComponentRef(tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseComponentRef(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if category != tt.category || entry != tt.entry {
			t.Errorf("parseComponentRef(%v) = %q, %q", tt.args, category, entry)
		}
	}
}

func TestReviewExcludesCategories(t *testing.T) {
	f := newFixture(t)
	stdout, _, err := f.run(t, "review", "-A", "dev", "-B", "prod", "--no-compare", "--exclude", "Apex*", "-o", "json")
	if err != nil {
		t.Fatalf("review error = %v", err)
	}
	var prefetch struct {
		Categories []struct {
			Category string `json:"category"`
		} `json:"categories"`
	}
	if err := json.NewDecoder(strings.NewReader(stdout)).Decode(&prefetch); err != nil {
		t.Fatal(err)
	}
	if len(prefetch.Categories) != 1 || prefetch.Categories[0].Category != "Flow" {
		t.Errorf("reviewed categories = %+v", prefetch.Categories)
	}
}
