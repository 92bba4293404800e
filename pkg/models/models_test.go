package models

import (
	"errors"
	"testing"
)

// ============== Constant Tests ==============

func TestPresence(t *testing.T) {
	tests := []struct {
		presence Presence
		expected string
	}{
		{PresenceAOnly, "A_ONLY"},
		{PresenceBOnly, "B_ONLY"},
		{PresenceBoth, "BOTH"},
	}

	for _, tt := range tests {
		t.Run(string(tt.presence), func(t *testing.T) {
			if string(tt.presence) != tt.expected {
				t.Errorf("Presence = %s, want %s", string(tt.presence), tt.expected)
			}
		})
	}
}

func TestEqualityHint(t *testing.T) {
	tests := []struct {
		hint     EqualityHint
		expected string
	}{
		{HintLikelyEqual, "LIKELY_EQUAL"},
		{HintLikelyDifferent, "LIKELY_DIFFERENT"},
		{HintUnknown, "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(string(tt.hint), func(t *testing.T) {
			if string(tt.hint) != tt.expected {
				t.Errorf("EqualityHint = %s, want %s", string(tt.hint), tt.expected)
			}
		})
	}
}

// ============== Entry Tests ==============

func TestEntry_HasFingerprint(t *testing.T) {
	var nilEntry *Entry
	if nilEntry.HasFingerprint() {
		t.Error("nil entry should not have a fingerprint")
	}
	if (&Entry{Name: "Foo"}).HasFingerprint() {
		t.Error("entry without fingerprint reported one")
	}
	if !(&Entry{Name: "Foo", Fingerprint: "10"}).HasFingerprint() {
		t.Error("entry with fingerprint reported none")
	}
}

// ============== View Tests ==============

func TestReconciledView_FindAndTally(t *testing.T) {
	view := &ReconciledView{
		Category: "ApexClass",
		Entries: []AnnotatedEntry{
			{Name: "Bar", Presence: PresenceAOnly, Hint: HintUnknown},
			{Name: "Baz", Presence: PresenceBOnly, Hint: HintUnknown},
			{Name: "Foo", Presence: PresenceBoth, Hint: HintLikelyEqual},
			{Name: "Qux", Presence: PresenceBoth, Hint: HintLikelyDifferent},
		},
	}

	if e := view.Find("Foo"); e == nil || e.Presence != PresenceBoth {
		t.Errorf("Find(Foo) = %+v, want BOTH entry", e)
	}
	if e := view.Find("foo"); e != nil {
		t.Error("Find should be case-sensitive")
	}

	tally := view.Tally()
	want := ViewTally{AOnly: 1, BOnly: 1, Both: 2, LikelyEqual: 1, LikelyDifferent: 1}
	if tally != want {
		t.Errorf("Tally() = %+v, want %+v", tally, want)
	}

	var nilView *ReconciledView
	if nilView.Find("Foo") != nil {
		t.Error("Find on nil view should return nil")
	}
}

func TestUnionedCategories_Divergence(t *testing.T) {
	tests := []struct {
		name   string
		a, b   int
		expect float64
	}{
		{"equal", 100, 100, 0},
		{"a larger", 120, 105, 0.125},
		{"b larger", 105, 120, 0.125},
		{"both empty", 0, 0, 0},
		{"one empty", 0, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &UnionedCategories{CountA: tt.a, CountB: tt.b}
			if got := u.Divergence(); got != tt.expect {
				t.Errorf("Divergence() = %v, want %v", got, tt.expect)
			}
		})
	}
}

// ============== Key Tests ==============

func TestKeys(t *testing.T) {
	pair := EnvironmentPair{A: "org a", B: "org b"}

	k1 := NewViewKey(pair, " ApexClass ")
	k2 := NewViewKey(pair, "ApexClass")
	if k1 != k2 {
		t.Errorf("view keys should normalize whitespace: %v vs %v", k1, k2)
	}
	if NewViewKey(pair, "apexclass") == k2 {
		t.Error("view keys must stay case-sensitive")
	}

	f := NewFileListKey(pair, "LightningComponentBundle", " myCmp ")
	if f.Entry != "myCmp" {
		t.Errorf("Entry = %q, want myCmp", f.Entry)
	}
	if f.String() != "org a|org b|LightningComponentBundle|myCmp" {
		t.Errorf("String() = %q", f.String())
	}
}

func TestComponentRef(t *testing.T) {
	ref := ComponentRef("CustomMetadata", "My_Type.Record:One")
	if ref != "CustomMetadata:My_Type.Record:One" {
		t.Fatalf("ComponentRef = %q", ref)
	}

	cat, entry, ok := SplitComponentRef(ref)
	if !ok || cat != "CustomMetadata" || entry != "My_Type.Record:One" {
		t.Errorf("SplitComponentRef = %q, %q, %v", cat, entry, ok)
	}

	for _, bad := range []string{"", "NoColon", ":Foo", "ApexClass:"} {
		if _, _, ok := SplitComponentRef(bad); ok {
			t.Errorf("SplitComponentRef(%q) should fail", bad)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"lwc/cmp/cmp.js":    "lwc/cmp/cmp.js",
		"./cmp.html":        "cmp.html",
		"\\cmp\\cmp.css":    "cmp/cmp.css",
		" /cmp/__tests__/x": "cmp/__tests__/x",
	}
	for in, want := range tests {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

// ============== Validation Tests ==============

func TestEnvironmentPair_Validate(t *testing.T) {
	tests := []struct {
		name    string
		pair    EnvironmentPair
		wantErr bool
	}{
		{"valid", EnvironmentPair{A: "dev", B: "uat"}, false},
		{"aliases with spaces", EnvironmentPair{A: "my dev org", B: "my uat org"}, false},
		{"missing A", EnvironmentPair{B: "uat"}, true},
		{"missing B", EnvironmentPair{A: "dev", B: "  "}, true},
		{"identical", EnvironmentPair{A: "dev", B: "dev"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pair.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Errorf("error should be a *ValidationError, got %T", err)
				}
			}
		})
	}
}

func TestComparisonResult_Equal(t *testing.T) {
	var r *ComparisonResult
	if r.Equal() {
		t.Error("nil result should not be equal")
	}
	if !(&ComparisonResult{Verdict: VerdictEqual}).Equal() {
		t.Error("EQUAL verdict should report Equal()")
	}
	if (&ComparisonResult{Verdict: VerdictDifferent}).Equal() {
		t.Error("DIFFERENT verdict should not report Equal()")
	}
}
