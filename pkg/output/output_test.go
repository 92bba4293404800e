package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sdejongh/metadiff/pkg/models"
	"github.com/sdejongh/metadiff/pkg/session"
)

func sampleView() *models.ReconciledView {
	return &models.ReconciledView{
		Category: "ApexClass",
		CountA:   2,
		CountB:   2,
		Entries: []models.AnnotatedEntry{
			{Name: "AccountService", Presence: models.PresenceBoth, Hint: models.HintLikelyDifferent},
			{Name: "NewFeature", Presence: models.PresenceAOnly, Hint: models.HintUnknown},
			{Name: "OldFeature", Presence: models.PresenceBOnly, Hint: models.HintUnknown},
		},
	}
}

func sampleComparison() *models.ComparisonResult {
	return &models.ComparisonResult{
		Category: "ApexClass",
		Entry:    "AccountService",
		EnvA:     "dev",
		EnvB:     "prod",
		ContentA: "public class AccountService {\n  Integer v = 1;\n}\n",
		ContentB: "public class AccountService {\n  Integer v = 2;\n}\n",
		DigestA:  "aaaa",
		DigestB:  "bbbb",
		Verdict:  models.VerdictDifferent,
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	for _, format := range []string{"", "human", "json"} {
		f, err := New(format, &buf, Options{})
		if err != nil {
			t.Fatalf("New(%q) error = %v", format, err)
		}
		want := format
		if want == "" {
			want = "human"
		}
		if f.Name() != want {
			t.Errorf("New(%q).Name() = %q", format, f.Name())
		}
	}
	if _, err := New("xml", &buf, Options{}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestHumanEntries(t *testing.T) {
	var buf bytes.Buffer
	f := NewHumanFormatter(&buf, Options{})
	if err := f.Entries(sampleView()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"ApexClass", "AccountService", "likely different", "A only", "B only",
		"1 both (0 likely equal, 1 likely different), 1 A only, 1 B only"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("output contains ANSI sequences without color:\n%q", out)
	}
}

func TestHumanCategoriesWarning(t *testing.T) {
	tests := []struct {
		name   string
		countB int
		warn   bool
	}{
		{"close counts", 118, false},
		{"diverging counts", 100, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			u := &models.UnionedCategories{
				Categories: []models.Category{{Name: "ApexClass"}, {Name: "AuraDefinitionBundle", Composite: true}},
				CountA:     120,
				CountB:     tt.countB,
			}
			if err := NewHumanFormatter(&buf, Options{}).Categories(u, 0.10); err != nil {
				t.Fatal(err)
			}
			if got := strings.Contains(buf.String(), "Warning"); got != tt.warn {
				t.Errorf("warning = %v, want %v:\n%s", got, tt.warn, buf.String())
			}
			if !strings.Contains(buf.String(), "(bundle)") {
				t.Error("composite category not flagged")
			}
		})
	}
}

func TestHumanComparisonDiff(t *testing.T) {
	var buf bytes.Buffer
	if err := NewHumanFormatter(&buf, Options{}).Comparison(sampleComparison()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"ApexClass:AccountService", "DIFFERENT", "-  Integer v = 1;", "+  Integer v = 2;", "@@"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	equal := sampleComparison()
	equal.ContentB = equal.ContentA
	equal.Verdict = models.VerdictEqual
	if err := NewHumanFormatter(&buf, Options{}).Comparison(equal); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "@@") {
		t.Errorf("equal comparison printed a diff:\n%s", buf.String())
	}
}

func TestHumanErrorHint(t *testing.T) {
	var buf bytes.Buffer
	err := &session.Failure{Op: "list entries", Message: "not connected", Hint: "log in again"}
	_ = NewHumanFormatter(&buf, Options{}).Error(err)
	if !strings.Contains(buf.String(), "not connected") || !strings.Contains(buf.String(), "Hint: log in again") {
		t.Errorf("unexpected error output:\n%s", buf.String())
	}
}

func TestHumanLedger(t *testing.T) {
	var buf bytes.Buffer
	f := NewHumanFormatter(&buf, Options{})
	_ = f.Ledger(nil)
	if !strings.Contains(buf.String(), "empty") {
		t.Errorf("unexpected output: %s", buf.String())
	}

	buf.Reset()
	_ = f.Ledger([]models.LedgerEntry{
		{Category: "ApexClass", Entry: "NewFeature", Origin: models.OriginPromotion},
		{Category: "ApexClass", Entry: "AccountService", Origin: models.OriginReview, Verdict: models.VerdictEqual},
	})
	out := buf.String()
	if !strings.Contains(out, "Review list (2)") || !strings.Contains(out, "ApexClass:AccountService") || !strings.Contains(out, "EQUAL") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestJSONComparison(t *testing.T) {
	tests := []struct {
		name        string
		showContent bool
	}{
		{"without content", false},
		{"with content", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewJSONFormatter(&buf, Options{ShowContent: tt.showContent}).Comparison(sampleComparison()); err != nil {
				t.Fatal(err)
			}
			var doc map[string]any
			if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if doc["verdict"] != "DIFFERENT" {
				t.Errorf("verdict = %v", doc["verdict"])
			}
			if diff, _ := doc["diff"].(string); !strings.Contains(diff, "+  Integer v = 2;") {
				t.Errorf("diff = %q", diff)
			}
			if _, ok := doc["content_a"]; ok != tt.showContent {
				t.Errorf("content_a present = %v, want %v", ok, tt.showContent)
			}
		})
	}
}

func TestJSONEntriesAndErrors(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(&buf, Options{})
	if err := f.Entries(sampleView()); err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Category string            `json:"category"`
		Entries  []json.RawMessage `json:"entries"`
		Tally    models.ViewTally  `json:"tally"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Category != "ApexClass" || len(doc.Entries) != 3 || doc.Tally.AOnly != 1 {
		t.Errorf("unexpected document: %+v", doc)
	}

	buf.Reset()
	_ = f.Error(&session.Failure{Op: "compare", Message: "boom", Hint: "retry"})
	var errDoc JSONErrorData
	if err := json.Unmarshal(buf.Bytes(), &errDoc); err != nil {
		t.Fatal(err)
	}
	if errDoc.Op != "compare" || errDoc.Hint != "retry" {
		t.Errorf("unexpected error document: %+v", errDoc)
	}
}

func TestJSONPrefetch(t *testing.T) {
	var buf bytes.Buffer
	results := []session.PrefetchResult{
		{Category: "ApexClass", Tally: models.ViewTally{Both: 3}},
		{Category: "Flow", Err: errors.New("timeout")},
	}
	if err := NewJSONFormatter(&buf, Options{}).Prefetch(results); err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Categories []JSONPrefetchData `json:"categories"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Categories) != 2 || doc.Categories[0].Tally.Both != 3 || doc.Categories[1].Error != "timeout" {
		t.Errorf("unexpected document: %+v", doc)
	}
}

func TestSourceNameAndLexer(t *testing.T) {
	tests := []struct {
		category, entry, file string
		wantName, wantLexer   string
	}{
		{"ApexClass", "AccountService", "", "AccountService.cls", "java"},
		{"CustomObject", "Account", "", "Account.xml", "xml"},
		{"AuraDefinitionBundle", "cmp", "aura/cmp/cmpController.js", "cmpController.js", "JavaScript"},
		{"AuraDefinitionBundle", "cmp", "aura/cmp/cmp.cmp-meta.xml", "cmp.cmp-meta.xml", "xml"},
	}
	for _, tt := range tests {
		name := SourceName(tt.category, tt.entry, tt.file)
		if name != tt.wantName {
			t.Errorf("SourceName(%q, %q, %q) = %q, want %q", tt.category, tt.entry, tt.file, name, tt.wantName)
		}
		if got := lexerName(name, ""); !strings.EqualFold(got, tt.wantLexer) {
			t.Errorf("lexerName(%q) = %q, want %q", name, got, tt.wantLexer)
		}
	}
}

func TestHighlight(t *testing.T) {
	var plain bytes.Buffer
	if err := Highlight(&plain, "<a/>", "x.xml", "monokai", false); err != nil {
		t.Fatal(err)
	}
	if plain.String() != "<a/>\n" {
		t.Errorf("plain = %q", plain.String())
	}

	var colored bytes.Buffer
	if err := Highlight(&colored, "public class A {}", "A.cls", "monokai", true); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(colored.String(), "\x1b[") {
		t.Errorf("expected ANSI sequences, got %q", colored.String())
	}
}

func TestRunDiffTool(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	var stdout bytes.Buffer
	if err := RunDiffTool(context.Background(), "cat {a} {b}", sampleComparison(), &stdout, &stdout); err != nil {
		t.Fatalf("RunDiffTool() error = %v", err)
	}
	if !strings.Contains(stdout.String(), "v = 1") || !strings.Contains(stdout.String(), "v = 2") {
		t.Errorf("unexpected output: %q", stdout.String())
	}

	if err := RunDiffTool(context.Background(), "  ", sampleComparison(), &stdout, &stdout); err == nil {
		t.Error("expected error for empty tool")
	}
}

func TestRunDiffToolDiffersStatus(t *testing.T) {
	if _, err := exec.LookPath("diff"); err != nil {
		t.Skip("diff not available")
	}
	var stdout bytes.Buffer
	if err := RunDiffTool(context.Background(), "diff {a} {b}", sampleComparison(), &stdout, &stdout); err != nil {
		t.Errorf("exit status 1 should not be an error: %v", err)
	}
}

func TestWriteReviewReport(t *testing.T) {
	dir := t.TempDir()
	pair := models.EnvironmentPair{A: "dev", B: "prod"}

	empty := filepath.Join(dir, "empty.txt")
	if err := WriteReviewReport(pair, nil, empty, "human"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(empty); !os.IsNotExist(err) {
		t.Error("empty review list should not create a file")
	}

	entries := []models.LedgerEntry{
		{Category: "ApexClass", Entry: "NewFeature", Origin: models.OriginPromotion, Recorded: time.Now()},
		{Category: "ApexClass", Entry: "AccountService", Origin: models.OriginReview, Verdict: models.VerdictDifferent},
	}
	human := filepath.Join(dir, "report.txt")
	if err := WriteReviewReport(pair, entries, human, "human"); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(human)
	for _, want := range []string{"Selected for promotion (1)", "Reviewed (1)", "ApexClass:AccountService  DIFFERENT"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("report missing %q:\n%s", want, data)
		}
	}

	jsonPath := filepath.Join(dir, "report.json")
	if err := WriteReviewReport(pair, entries, jsonPath, "json"); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(jsonPath)
	var doc struct {
		TotalCount int `json:"total_count"`
	}
	if err := json.Unmarshal(data, &doc); err != nil || doc.TotalCount != 2 {
		t.Errorf("unexpected JSON report: %s (%v)", data, err)
	}
}

func TestColorEnabled(t *testing.T) {
	var buf bytes.Buffer
	if !ColorEnabled("always", &buf) {
		t.Error("always should enable color")
	}
	if ColorEnabled("never", &buf) || ColorEnabled("auto", &buf) {
		t.Error("buffers are not terminals")
	}
	if Width(&buf) != defaultWidth {
		t.Errorf("Width() = %d", Width(&buf))
	}
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Errorf("truncate() = %q", got)
	}
}

func TestProgressDisabled(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, "prefetch", 2, true)
	p.Advance("ApexClass", nil)
	p.Advance("Flow", errors.New("x"))
	p.Finish()
	if buf.Len() != 0 {
		t.Errorf("progress wrote to a non-terminal: %q", buf.String())
	}
	if p.Failed() != 1 {
		t.Errorf("Failed() = %d", p.Failed())
	}
}
