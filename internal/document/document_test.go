package document_test

import (
	"testing"

	"github.com/victor-ca/marksense/internal/document"
)

func TestEdit_MapAroundInsertion(t *testing.T) {
	t.Parallel()
	// Insert "abc" at position 5 in a longer text.
	edit := document.NewEdit(5, 5, "abc", true)

	cases := []struct {
		name string
		pos  int
		bias document.Bias
		want int
	}{
		{"before edit", 2, document.BiasLeft, 2},
		{"at boundary left", 5, document.BiasLeft, 5},
		{"at boundary right", 5, document.BiasRight, 8},
		{"after edit", 7, document.BiasLeft, 10},
	}
	for _, tc := range cases {
		if got := edit.Map(tc.pos, tc.bias); got != tc.want {
			t.Errorf("%s: Map(%d, %v) = %d, want %d", tc.name, tc.pos, tc.bias, got, tc.want)
		}
	}
}

func TestEdit_MapAroundDeletion(t *testing.T) {
	t.Parallel()
	// Delete [3,7).
	edit := document.NewEdit(3, 7, "", true)

	cases := []struct {
		pos  int
		bias document.Bias
		want int
	}{
		{1, document.BiasLeft, 1},
		{3, document.BiasLeft, 3},
		{5, document.BiasLeft, 3},  // inside deleted span
		{5, document.BiasRight, 3}, // inside deleted span
		{7, document.BiasLeft, 3},
		{10, document.BiasLeft, 6},
	}
	for _, tc := range cases {
		if got := edit.Map(tc.pos, tc.bias); got != tc.want {
			t.Errorf("Map(%d, %v) = %d, want %d", tc.pos, tc.bias, got, tc.want)
		}
	}
}

func TestMapRange_BoundaryInsertionsExtend(t *testing.T) {
	t.Parallel()
	r := document.Range{From: 4, To: 8}

	// Insertion exactly at the start: left edge stays put, range grows.
	ins := document.NewEdit(4, 4, "xy", true)
	mapped, ok := document.MapRange(r, ins)
	if !ok {
		t.Fatal("range unexpectedly dropped")
	}
	if mapped.From != 4 || mapped.To != 10 {
		t.Errorf("mapped = %+v, want [4,10)", mapped)
	}

	// Insertion exactly at the end: right edge follows the insertion.
	ins = document.NewEdit(8, 8, "xy", true)
	mapped, ok = document.MapRange(r, ins)
	if !ok {
		t.Fatal("range unexpectedly dropped")
	}
	if mapped.From != 4 || mapped.To != 10 {
		t.Errorf("mapped = %+v, want [4,10)", mapped)
	}
}

func TestMapRange_DropsCollapsed(t *testing.T) {
	t.Parallel()
	r := document.Range{From: 4, To: 8}

	// Deleting a superset of the range collapses it.
	del := document.NewEdit(2, 10, "", true)
	if _, ok := document.MapRange(r, del); ok {
		t.Error("range covering a deleted span should be dropped")
	}
}

func TestMapRange_ShiftsAfterEarlierEdit(t *testing.T) {
	t.Parallel()
	r := document.Range{From: 10, To: 14}

	edit := document.NewEdit(2, 4, "longer", true)
	mapped, ok := document.MapRange(r, edit)
	if !ok {
		t.Fatal("range unexpectedly dropped")
	}
	// 2 chars removed, 6 inserted: net +4.
	if mapped.From != 14 || mapped.To != 18 {
		t.Errorf("mapped = %+v, want [14,18)", mapped)
	}
}

func TestRange_Helpers(t *testing.T) {
	t.Parallel()
	r := document.Range{From: 3, To: 7}
	if r.Len() != 4 {
		t.Errorf("Len = %d, want 4", r.Len())
	}
	if !r.Contains(3) || !r.Contains(6) || r.Contains(7) {
		t.Error("Contains should be inclusive of From, exclusive of To")
	}
	if !r.Overlaps(document.Range{From: 6, To: 9}) {
		t.Error("ranges [3,7) and [6,9) should overlap")
	}
	if r.Overlaps(document.Range{From: 7, To: 9}) {
		t.Error("ranges [3,7) and [7,9) should not overlap")
	}
}

func TestDiff_SingleInsertion(t *testing.T) {
	t.Parallel()
	m := document.Diff("hello world", "hello brave world")
	if !m.Changed() {
		t.Fatal("Changed should be true")
	}
	if got := m.InsertedText(); got != "brave " {
		t.Errorf("InsertedText = %q, want %q", got, "brave ")
	}
	// "world" starts at 6 in the old text and at 12 in the new one; with
	// BiasLeft the position stays before the inserted text.
	if got := m.Map(6, document.BiasRight); got != 12 {
		t.Errorf("Map(6, right) = %d, want 12", got)
	}
	if got := m.Map(6, document.BiasLeft); got != 6 {
		t.Errorf("Map(6, left) = %d, want 6", got)
	}
	if got := m.Map(8, document.BiasLeft); got != 14 {
		t.Errorf("Map(8, left) = %d, want 14", got)
	}
	if got := m.Map(0, document.BiasLeft); got != 0 {
		t.Errorf("Map(0) = %d, want 0", got)
	}
}

func TestDiff_MapInsideReplacedSpan(t *testing.T) {
	t.Parallel()
	m := document.Diff("aaa BBB ccc", "aaa DD ccc")
	// Position 5 lands inside the replaced word. Left bias collapses to the
	// start of the replacement, right bias lands after it.
	if got := m.Map(5, document.BiasLeft); got != 4 {
		t.Errorf("Map(5, left) = %d, want 4", got)
	}
	if got := m.Map(5, document.BiasRight); got != 6 {
		t.Errorf("Map(5, right) = %d, want 6", got)
	}
}

func TestDiff_MapInsideDeletedSpan(t *testing.T) {
	t.Parallel()
	m := document.Diff("abXYcd", "abcd")
	// Nothing replaced the span, so both biases collapse to the same spot.
	if got := m.Map(3, document.BiasLeft); got != 2 {
		t.Errorf("Map(3, left) = %d, want 2", got)
	}
	if got := m.Map(3, document.BiasRight); got != 2 {
		t.Errorf("Map(3, right) = %d, want 2", got)
	}
}

func TestDiff_MultipleEditsHaveNoInsertedText(t *testing.T) {
	t.Parallel()
	m := document.Diff("aaa bbb ccc", "axa bbb cxc")
	if m.InsertedText() != "" {
		t.Errorf("InsertedText = %q, want empty for scattered edits", m.InsertedText())
	}
	if !m.Changed() {
		t.Error("Changed should be true")
	}
}

func TestDiff_NoChange(t *testing.T) {
	t.Parallel()
	m := document.Diff("same", "same")
	if m.Changed() {
		t.Error("Changed should be false for identical text")
	}
	if got := m.Map(2, document.BiasLeft); got != 2 {
		t.Errorf("Map(2) = %d, want 2", got)
	}
}

func TestMemDoc_ReplaceAndText(t *testing.T) {
	t.Parallel()
	doc := document.NewMemDoc("hello world")

	mut, err := doc.Replace(document.Range{From: 6, To: 11}, "there")
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if !mut.Changed() {
		t.Error("mutation should report a change")
	}
	if got := doc.String(); got != "hello there" {
		t.Errorf("text = %q, want %q", got, "hello there")
	}
	if anchor, head := doc.Selection(); anchor != 11 || head != 11 {
		t.Errorf("selection = (%d,%d), want collapsed at 11", anchor, head)
	}
}

func TestMemDoc_ReplaceOutOfBounds(t *testing.T) {
	t.Parallel()
	doc := document.NewMemDoc("short")
	if _, err := doc.Replace(document.Range{From: 2, To: 99}, "x"); err == nil {
		t.Error("expected error for out-of-bounds range")
	}
	if _, err := doc.Replace(document.Range{From: -1, To: 2}, "x"); err == nil {
		t.Error("expected error for negative From")
	}
}

func TestMemDoc_MutationListener(t *testing.T) {
	t.Parallel()
	doc := document.NewMemDoc("")

	var got []string
	sub := doc.OnMutation(func(m document.Mutation) {
		got = append(got, m.InsertedText())
	})

	if _, err := doc.Insert(0, "a"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	sub.Cancel()
	if _, err := doc.Insert(1, "b"); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if len(got) != 1 || got[0] != "a" {
		t.Errorf("listener calls = %v, want just [a]", got)
	}
}

func TestMemDoc_SelectionListener(t *testing.T) {
	t.Parallel()
	doc := document.NewMemDoc("abcdef")

	var heads []int
	doc.OnSelectionChange(func(_, head int) {
		heads = append(heads, head)
	})

	doc.SetSelection(2, 2)
	doc.SetSelection(2, 2) // no-op, must not notify
	doc.SetSelection(0, 4)

	if len(heads) != 2 || heads[0] != 2 || heads[1] != 4 {
		t.Errorf("selection notifications = %v, want [2 4]", heads)
	}
}

func TestMemDoc_Close(t *testing.T) {
	t.Parallel()
	doc := document.NewMemDoc("text")

	fired := false
	doc.OnMutation(func(document.Mutation) { fired = true })

	doc.Close()
	if doc.Alive() {
		t.Error("Alive should be false after Close")
	}
	if _, err := doc.Insert(0, "x"); err == nil {
		t.Error("Insert on closed document should fail")
	}
	if fired {
		t.Error("listener must not fire after Close")
	}
}

func TestEdit_ExcludedFromUndo(t *testing.T) {
	t.Parallel()
	doc := document.NewMemDoc("ab")

	mut, err := doc.Replace(document.Range{From: 1, To: 2}, "x", document.WithoutUndo())
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	edit, ok := mut.(*document.Edit)
	if !ok {
		t.Fatalf("mutation is %T, want *Edit", mut)
	}
	if !edit.ExcludedFromUndo() {
		t.Error("edit should be excluded from undo")
	}
}
