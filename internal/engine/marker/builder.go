// Package marker derives the renderable marker set from the current
// corrections and prediction.
//
// Building is a pure function of its inputs with one deliberate exception:
// the prediction marker keeps a stable identity across rebuilds. Destroying
// and recreating the host's ghost-text element on every keystroke causes
// visible flicker and can disturb focus, so the builder mutates the cached
// marker's payload in place and hands back the same pointer.
package marker

import (
	"github.com/victor-ca/marksense/internal/assist"
	"github.com/victor-ca/marksense/internal/engine/correction"
	"github.com/victor-ca/marksense/internal/engine/prediction"
)

// Class names the host maps to visual styles.
const (
	ClassAuto       = "correction-auto"
	ClassManual     = "correction-manual"
	ClassPrediction = "prediction"
)

// PredictionKey is the stable logical key of the single prediction marker.
const PredictionKey = "prediction-marker"

// Marker is one renderable decoration. Correction markers span [From, To)
// and carry the correction id; the prediction marker is zero-width at From
// and carries the ghost text.
type Marker struct {
	Key          string
	From         int
	To           int
	Class        string
	CorrectionID string
	GhostText    string
}

// Set is the full decoration output for one engine state.
type Set struct {
	Corrections []*Marker
	Prediction  *Marker
}

// Builder caches the prediction marker between rebuilds. One builder per
// document session; release it on teardown.
type Builder struct {
	prediction *Marker
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build derives the marker set. Correction markers are keyed by correction
// id; the prediction marker, when the prediction exists and its position is
// within [0, docLen], reuses the cached instance with its payload updated.
func (b *Builder) Build(entries []*correction.Entry, pred *prediction.State, docLen int) Set {
	set := Set{Corrections: make([]*Marker, 0, len(entries))}

	for _, e := range entries {
		class := ClassManual
		if e.Type == assist.CorrectionAuto {
			class = ClassAuto
		}
		set.Corrections = append(set.Corrections, &Marker{
			Key:          e.ID,
			From:         e.From,
			To:           e.To,
			Class:        class,
			CorrectionID: e.ID,
		})
	}

	if pred == nil || pred.CursorPos < 0 || pred.CursorPos > docLen {
		b.prediction = nil
		return set
	}

	if b.prediction == nil {
		b.prediction = &Marker{Key: PredictionKey, Class: ClassPrediction}
	}
	b.prediction.From = pred.CursorPos
	b.prediction.To = pred.CursorPos
	b.prediction.GhostText = pred.GhostText
	set.Prediction = b.prediction
	return set
}

// Release drops the cached prediction marker. Call on document teardown.
func (b *Builder) Release() {
	b.prediction = nil
}
