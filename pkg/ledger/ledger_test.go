package ledger

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sdejongh/metadiff/pkg/models"
)

func TestMarkUnmarkIsReversible(t *testing.T) {
	l := New()
	l.Mark("ApexClass", "Foo")
	l.Mark("ApexClass", "Foo")
	if l.Len() != 1 {
		t.Fatalf("Len() = %d after double mark, want 1", l.Len())
	}
	l.Unmark("ApexClass", "Foo")
	for _, rec := range l.List() {
		if rec.Entry == "Foo" {
			t.Fatalf("Foo still listed after unmark: %+v", rec)
		}
	}
	l.Unmark("ApexClass", "Foo")
	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0", l.Len())
	}
}

func TestMarkKeepsOriginalRecord(t *testing.T) {
	l := New()
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return first }
	l.Mark("ApexClass", "Foo")
	l.now = func() time.Time { return first.Add(time.Hour) }
	l.Mark("ApexClass", " Foo ")

	recs := l.List()
	if len(recs) != 1 || !recs[0].Recorded.Equal(first) {
		t.Errorf("unexpected records: %+v", recs)
	}
}

func TestToggle(t *testing.T) {
	l := New()
	if !l.Toggle("ApexClass", "Foo") {
		t.Error("first toggle should mark")
	}
	if !l.IsMarked("ApexClass", "Foo") {
		t.Error("IsMarked() = false after toggle on")
	}
	if l.Toggle("ApexClass", "Foo") {
		t.Error("second toggle should unmark")
	}
	if l.IsMarked("ApexClass", "Foo") {
		t.Error("IsMarked() = true after toggle off")
	}
}

func TestRecordReviewedReplacesVerdict(t *testing.T) {
	l := New()
	l.RecordReviewed("ApexClass", "Foo", models.VerdictDifferent)
	id := l.List()[0].ID
	l.RecordReviewed("ApexClass", "Foo", models.VerdictEqual)

	recs := l.List()
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Verdict != models.VerdictEqual || recs[0].ID != id || recs[0].Origin != models.OriginReview {
		t.Errorf("unexpected record: %+v", recs[0])
	}
}

func TestPromotionAndReviewAreIndependent(t *testing.T) {
	l := New()
	l.Mark("ApexClass", "Foo")
	l.RecordReviewed("ApexClass", "Foo", models.VerdictEqual)
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}
	l.Unmark("ApexClass", "Foo")
	recs := l.List()
	if len(recs) != 1 || recs[0].Origin != models.OriginReview {
		t.Errorf("unmark removed the review record: %+v", recs)
	}
}

func TestListOrder(t *testing.T) {
	l := New()
	l.Mark("Flow", "b")
	l.Mark("ApexClass", "z")
	l.RecordReviewed("ApexClass", "a", models.VerdictEqual)
	l.Mark("ApexClass", "a")

	var got []string
	for _, r := range l.List() {
		got = append(got, fmt.Sprintf("%s/%s/%s", r.Category, r.Entry, r.Origin))
	}
	want := []string{"ApexClass/a/promotion", "ApexClass/a/review", "ApexClass/z/promotion", "Flow/b/promotion"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

func TestReset(t *testing.T) {
	l := New()
	l.Mark("ApexClass", "Foo")
	l.RecordReviewed("ApexClass", "Bar", models.VerdictDifferent)
	l.Reset()
	if l.Len() != 0 || len(l.List()) != 0 {
		t.Error("Reset() left records behind")
	}
}

func TestConcurrentUse(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("E%d", i%10)
			l.Mark("ApexClass", name)
			l.RecordReviewed("ApexClass", name, models.VerdictEqual)
			_ = l.List()
		}(i)
	}
	wg.Wait()
	if l.Len() != 20 {
		t.Errorf("Len() = %d, want 20", l.Len())
	}
}
