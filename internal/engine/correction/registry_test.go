package correction_test

import (
	"testing"

	"github.com/victor-ca/marksense/internal/assist"
	"github.com/victor-ca/marksense/internal/document"
	"github.com/victor-ca/marksense/internal/engine/correction"
)

func manualEntry(id string, from, to int, value string) *correction.Entry {
	return &correction.Entry{
		ID:            id,
		From:          from,
		To:            to,
		Type:          assist.CorrectionManual,
		OriginalValue: value,
		CurrentValue:  value,
	}
}

func TestRegistryAddGetRemove(t *testing.T) {
	t.Parallel()

	r := correction.NewRegistry()
	r.Add(manualEntry("a", 0, 3, "teh"))
	r.Add(manualEntry("b", 5, 8, "cat"))

	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
	if got := r.Get("b"); got == nil || got.From != 5 {
		t.Fatalf("Get(b) = %+v", got)
	}
	if r.Get("nope") != nil {
		t.Fatal("Get(nope) returned an entry")
	}

	if !r.Remove("a") {
		t.Fatal("Remove(a) = false")
	}
	if r.Remove("a") {
		t.Fatal("Remove(a) succeeded twice")
	}
	if r.Len() != 1 {
		t.Fatalf("Len() after remove = %d, want 1", r.Len())
	}
}

func TestRegistryActiveLifecycle(t *testing.T) {
	t.Parallel()

	r := correction.NewRegistry()
	r.Add(manualEntry("a", 0, 3, "teh"))

	if r.SetActive("ghost") {
		t.Fatal("SetActive accepted an unknown id")
	}
	if !r.SetActive("a") {
		t.Fatal("SetActive(a) = false")
	}
	if got := r.Active(); got == nil || got.ID != "a" {
		t.Fatalf("Active() = %+v", got)
	}

	// Removing the active entry clears the selection.
	r.Remove("a")
	if r.ActiveID() != "" {
		t.Fatalf("ActiveID() after remove = %q, want empty", r.ActiveID())
	}
	if r.Active() != nil {
		t.Fatal("Active() returned a removed entry")
	}

	r.Add(manualEntry("b", 5, 8, "cat"))
	r.SetActive("b")
	r.ClearActive()
	if r.ActiveID() != "" {
		t.Fatal("ClearActive did not clear")
	}
}

func TestRegistryOverlapsAny(t *testing.T) {
	t.Parallel()

	r := correction.NewRegistry()
	r.Add(manualEntry("a", 5, 10, "hello"))

	cases := []struct {
		name     string
		from, to int
		want     bool
	}{
		{"inside", 6, 8, true},
		{"exact", 5, 10, true},
		{"straddles start", 3, 6, true},
		{"straddles end", 9, 12, true},
		{"before", 0, 5, false},
		{"after", 10, 14, false},
	}
	for _, tc := range cases {
		if got := r.OverlapsAny(tc.from, tc.to); got != tc.want {
			t.Errorf("%s: OverlapsAny(%d, %d) = %v, want %v", tc.name, tc.from, tc.to, got, tc.want)
		}
	}
}

func TestRegistryRemapShifts(t *testing.T) {
	t.Parallel()

	r := correction.NewRegistry()
	r.Add(manualEntry("a", 10, 13, "teh"))

	// Insert 4 chars before the entry.
	if dropped := r.Remap(document.NewEdit(0, 0, "new ", true)); dropped != 0 {
		t.Fatalf("Remap dropped %d entries on a plain shift", dropped)
	}
	e := r.Get("a")
	if e.From != 14 || e.To != 17 {
		t.Fatalf("entry range after shift = [%d, %d), want [14, 17)", e.From, e.To)
	}
}

func TestRegistryRemapDropsCollapsed(t *testing.T) {
	t.Parallel()

	r := correction.NewRegistry()
	r.Add(manualEntry("a", 10, 13, "teh"))
	r.Add(manualEntry("b", 20, 23, "cat"))
	r.SetActive("a")

	// Delete the whole span of entry a.
	if dropped := r.Remap(document.NewEdit(9, 14, "", true)); dropped != 1 {
		t.Fatalf("Remap dropped %d entries, want 1", dropped)
	}
	if r.Get("a") != nil {
		t.Fatal("collapsed entry survived Remap")
	}
	if r.ActiveID() != "" {
		t.Fatal("active id not cleared when its entry was dropped")
	}
	if e := r.Get("b"); e == nil || e.From != 15 {
		t.Fatalf("surviving entry = %+v, want From 15", e)
	}
}

func TestRegistryRevalidate(t *testing.T) {
	t.Parallel()

	t.Run("keeps matching entry", func(t *testing.T) {
		t.Parallel()
		doc := document.NewMemDoc("I teh cat")
		r := correction.NewRegistry()
		r.Add(manualEntry("a", 2, 5, "teh"))
		if dropped := r.Revalidate(doc); dropped != 0 {
			t.Fatalf("Revalidate dropped %d valid entries", dropped)
		}
		if r.Len() != 1 {
			t.Fatal("entry missing after Revalidate")
		}
	})

	t.Run("drops on text mismatch", func(t *testing.T) {
		t.Parallel()
		doc := document.NewMemDoc("I thx cat")
		r := correction.NewRegistry()
		r.Add(manualEntry("a", 2, 5, "teh"))
		if dropped := r.Revalidate(doc); dropped != 1 {
			t.Fatalf("Revalidate dropped %d entries, want 1", dropped)
		}
		if r.Len() != 0 {
			t.Fatal("mismatched entry survived")
		}
	})

	t.Run("drops out of bounds", func(t *testing.T) {
		t.Parallel()
		doc := document.NewMemDoc("ab")
		r := correction.NewRegistry()
		r.Add(manualEntry("a", 2, 5, "teh"))
		if dropped := r.Revalidate(doc); dropped != 1 {
			t.Fatal("Revalidate kept an out-of-bounds entry")
		}
	})

	t.Run("drops when word grows into the range", func(t *testing.T) {
		t.Parallel()
		// "teh" is still verbatim at [3, 6) but glued to "abc".
		doc := document.NewMemDoc("abcteh cat")
		r := correction.NewRegistry()
		r.Add(manualEntry("a", 3, 6, "teh"))
		if dropped := r.Revalidate(doc); dropped != 1 {
			t.Fatal("Revalidate kept an entry with an adjacent word character")
		}
	})

	t.Run("punctuation neighbours are fine", func(t *testing.T) {
		t.Parallel()
		doc := document.NewMemDoc("(teh)")
		r := correction.NewRegistry()
		r.Add(manualEntry("a", 1, 4, "teh"))
		if dropped := r.Revalidate(doc); dropped != 0 {
			t.Fatal("Revalidate dropped an entry bounded by punctuation")
		}
	})
}

func TestRegistryReconcile(t *testing.T) {
	t.Parallel()

	doc := document.NewMemDoc("I teh cat")
	r := correction.NewRegistry()
	r.Add(manualEntry("a", 2, 5, "teh"))
	r.Add(manualEntry("b", 6, 9, "cat"))

	// Replace "cat" so entry b goes stale while a shifts-in-place.
	mut, err := doc.Replace(document.Range{From: 6, To: 9}, "dogs")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	if dropped := r.Reconcile(doc, mut); dropped != 1 {
		t.Fatalf("Reconcile dropped %d entries, want 1", dropped)
	}
	if r.Get("b") != nil {
		t.Fatal("stale entry survived Reconcile")
	}
	if e := r.Get("a"); e == nil || e.From != 2 || e.To != 5 {
		t.Fatalf("untouched entry = %+v", e)
	}

	// A second pass over the same state changes nothing.
	if dropped := r.Reconcile(doc, document.NewEdit(0, 0, "", false)); dropped != 0 {
		t.Fatalf("Reconcile on settled state dropped %d entries", dropped)
	}
}

func TestRegistryApplyByReplacement(t *testing.T) {
	t.Parallel()

	doc := document.NewMemDoc("I teh cat")
	doc.SetSelection(9, 9)

	r := correction.NewRegistry()
	r.Add(manualEntry("a", 2, 5, "teh"))

	mut, err := r.ApplyByReplacement(doc, "a", "the")
	if err != nil {
		t.Fatalf("ApplyByReplacement: %v", err)
	}
	if mut == nil {
		t.Fatal("ApplyByReplacement returned nil mutation for a known id")
	}
	if got := doc.String(); got != "I the cat" {
		t.Fatalf("document = %q, want %q", got, "I the cat")
	}
	if anchor, head := doc.Selection(); anchor != 9 || head != 9 {
		t.Fatalf("selection = (%d, %d), want (9, 9)", anchor, head)
	}
	if r.Get("a") != nil {
		t.Fatal("applied entry still present")
	}
}

func TestRegistryApplyByReplacementUnknownID(t *testing.T) {
	t.Parallel()

	doc := document.NewMemDoc("hello")
	r := correction.NewRegistry()
	mut, err := r.ApplyByReplacement(doc, "ghost", "x")
	if mut != nil || err != nil {
		t.Fatalf("ApplyByReplacement(unknown) = (%v, %v), want (nil, nil)", mut, err)
	}
	if got := doc.String(); got != "hello" {
		t.Fatalf("document changed: %q", got)
	}
}
