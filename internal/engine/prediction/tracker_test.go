package prediction_test

import (
	"testing"

	"github.com/victor-ca/marksense/internal/document"
	"github.com/victor-ca/marksense/internal/engine/prediction"
)

func TestTrackerSetAndState(t *testing.T) {
	t.Parallel()

	tr := prediction.NewTracker()
	if tr.Active() {
		t.Fatal("new tracker reports active")
	}
	if tr.State() != nil {
		t.Fatal("new tracker has state")
	}

	tr.Set("The weather is ", "lovely today.", 15)
	if !tr.Active() {
		t.Fatal("tracker not active after Set")
	}
	s := tr.State()
	if s == nil || s.GhostText != "lovely today." || s.CursorPos != 15 {
		t.Fatalf("State() = %+v", s)
	}

	// State returns a copy; mutating it must not touch the tracker.
	s.GhostText = "mangled"
	if got := tr.State().GhostText; got != "lovely today." {
		t.Fatalf("tracker state leaked: %q", got)
	}
}

func TestTrackerSetEmptyGhostIsNoop(t *testing.T) {
	t.Parallel()

	tr := prediction.NewTracker()
	tr.Set("text", "", 4)
	if tr.Active() {
		t.Fatal("empty ghost text created a prediction")
	}
}

func TestTrackerAdvanceOrClear(t *testing.T) {
	t.Parallel()

	t.Run("none without prediction", func(t *testing.T) {
		t.Parallel()
		tr := prediction.NewTracker()
		if got := tr.AdvanceOrClear("a"); got != prediction.OutcomeNone {
			t.Fatalf("outcome = %v, want OutcomeNone", got)
		}
	})

	t.Run("prefix advances", func(t *testing.T) {
		t.Parallel()
		tr := prediction.NewTracker()
		tr.Set("The ", "lovely today.", 4)
		if got := tr.AdvanceOrClear("love"); got != prediction.OutcomeAdvanced {
			t.Fatalf("outcome = %v, want OutcomeAdvanced", got)
		}
		if got := tr.State().GhostText; got != "ly today." {
			t.Fatalf("remaining ghost = %q", got)
		}
	})

	t.Run("full typeout consumes", func(t *testing.T) {
		t.Parallel()
		tr := prediction.NewTracker()
		tr.Set("The ", "ok", 4)
		if got := tr.AdvanceOrClear("ok"); got != prediction.OutcomeConsumed {
			t.Fatalf("outcome = %v, want OutcomeConsumed", got)
		}
		if tr.Active() {
			t.Fatal("tracker still active after full consumption")
		}
	})

	t.Run("mismatch clears", func(t *testing.T) {
		t.Parallel()
		tr := prediction.NewTracker()
		tr.Set("The ", "lovely", 4)
		if got := tr.AdvanceOrClear("x"); got != prediction.OutcomeCleared {
			t.Fatalf("outcome = %v, want OutcomeCleared", got)
		}
		if tr.Active() {
			t.Fatal("tracker still active after mismatch")
		}
	})

	t.Run("empty insertion clears", func(t *testing.T) {
		t.Parallel()
		tr := prediction.NewTracker()
		tr.Set("The ", "lovely", 4)
		if got := tr.AdvanceOrClear(""); got != prediction.OutcomeCleared {
			t.Fatalf("outcome = %v, want OutcomeCleared", got)
		}
	})
}

func TestTrackerRemap(t *testing.T) {
	t.Parallel()

	tr := prediction.NewTracker()
	tr.Set("The weather", "lovely", 11)

	// Insert 4 chars before the render position.
	tr.Remap(document.NewEdit(0, 0, "Oh! ", true))
	if got := tr.State().CursorPos; got != 15 {
		t.Fatalf("CursorPos after remap = %d, want 15", got)
	}

	// Typing at the cursor keeps the ghost after the insertion.
	tr.Remap(document.NewEdit(15, 15, "l", true))
	if got := tr.State().CursorPos; got != 16 {
		t.Fatalf("CursorPos after cursor insert = %d, want 16", got)
	}
}

func TestTrackerAccept(t *testing.T) {
	t.Parallel()

	tr := prediction.NewTracker()
	if _, _, ok := tr.Accept(); ok {
		t.Fatal("Accept succeeded without a prediction")
	}

	tr.Set("The ", "lovely today.", 4)
	ghost, pos, ok := tr.Accept()
	if !ok || ghost != "lovely today." || pos != 4 {
		t.Fatalf("Accept() = (%q, %d, %v)", ghost, pos, ok)
	}
	if tr.Active() {
		t.Fatal("tracker still active after Accept")
	}
}

func TestTrackerDismiss(t *testing.T) {
	t.Parallel()

	tr := prediction.NewTracker()
	if tr.Dismiss() {
		t.Fatal("Dismiss reported an existing prediction on an empty tracker")
	}
	tr.Set("The ", "lovely", 4)
	if !tr.Dismiss() {
		t.Fatal("Dismiss = false with a live prediction")
	}
	if tr.Active() {
		t.Fatal("tracker still active after Dismiss")
	}
}
