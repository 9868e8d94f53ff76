package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/victor-ca/marksense/internal/assist"
	"github.com/victor-ca/marksense/internal/document"
	"github.com/victor-ca/marksense/internal/engine/correction"
	"github.com/victor-ca/marksense/internal/engine/trigger"
	"github.com/victor-ca/marksense/internal/observe"
)

// selfReplace performs an engine-initiated document edit. The caller holds
// the lock; the re-entrant mutation callback is routed through
// reduceMutation with selfEdit set so it remaps state without scheduling
// new assistant work.
func (e *Engine) selfReplace(r document.Range, text string, opts ...document.ReplaceOption) (document.Mutation, error) {
	defer e.beginSelf()()
	return e.doc.Replace(r, text, opts...)
}

// selfSetSelection moves the selection without re-entering the engine's
// selection listener. Caller holds the lock.
func (e *Engine) selfSetSelection(anchor, head int) {
	defer e.beginSelf()()
	e.doc.SetSelection(anchor, head)
}

// fireWordCorrection runs on a trigger goroutine after the word debounce
// elapses: it snapshots the text up to the cursor, asks the assistant for a
// final-word correction, and applies the result if the document still
// matches what was sent.
func (e *Engine) fireWordCorrection(ctx context.Context, seq uint64) {
	defer e.coord.Finish(trigger.KindWord, seq)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	sentEnd := e.selectionHead()
	blockRange, blockText, ok := e.blockAt(sentEnd)
	if ok && sentEnd == blockRange.From && sentEnd > 0 {
		// The cursor sits at the start of a line, so the word was finished
		// by a line break; grade the line above instead.
		blockRange, blockText, ok = e.blockAt(sentEnd - 1)
		if ok {
			sentEnd = blockRange.To
		}
	}
	e.mu.Unlock()
	if !ok || sentEnd <= blockRange.From {
		return
	}
	sent := blockText[:sentEnd-blockRange.From]
	if strings.TrimSpace(sent) == "" {
		return
	}

	start := time.Now()
	resp, err := e.assist.CorrectFinalWord(ctx, sent)
	elapsed := time.Since(start).Seconds()
	bg := context.Background()
	if err != nil {
		if errors.Is(err, assist.ErrAborted) {
			e.metrics.RecordRequest(bg, string(trigger.KindWord), "aborted", elapsed)
			return
		}
		e.metrics.RecordRequest(bg, string(trigger.KindWord), "error", elapsed)
		e.metrics.RecordDrop(bg, string(trigger.KindWord), observe.DropTransport)
		e.log.Warn("word correction request failed", "error", err)
		return
	}
	e.metrics.RecordRequest(bg, string(trigger.KindWord), "ok", elapsed)
	if resp == nil || resp.CorrectedText == "" || resp.CorrectedText == resp.OriginalWord {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if seq != e.coord.Latest(trigger.KindWord) {
		e.metrics.RecordDrop(bg, string(trigger.KindWord), observe.DropSuperseded)
		return
	}
	if !e.doc.Alive() {
		e.metrics.RecordDrop(bg, string(trigger.KindWord), observe.DropDocClosed)
		return
	}
	if resp.IsInDictionary || e.dict.Contains(strings.ToLower(resp.OriginalWord)) {
		e.metrics.RecordDrop(bg, string(trigger.KindWord), observe.DropDictionary)
		return
	}

	from, to, ok := e.locateWord(resp, sentEnd)
	if !ok {
		e.metrics.RecordDrop(bg, string(trigger.KindWord), observe.DropMismatch)
		e.log.Debug("word correction dropped, original not found",
			"word", resp.OriginalWord)
		return
	}
	if e.reg.OverlapsAny(from, to) {
		e.metrics.RecordDrop(bg, string(trigger.KindWord), observe.DropOverlap)
		return
	}

	entry := &correction.Entry{
		ID:            e.newEntryID(),
		Type:          resp.CorrectionType,
		OriginalValue: resp.OriginalWord,
		Suggestions:   withLeadingSuggestion(resp.Suggestions, resp.CorrectedText),
	}
	switch resp.CorrectionType {
	case assist.CorrectionAuto:
		anchor, selHead := e.doc.Selection()
		mut, err := e.selfReplace(document.Range{From: from, To: to}, resp.CorrectedText)
		if err != nil {
			e.log.Warn("auto correction apply failed", "error", err)
			return
		}
		e.selfSetSelection(mut.Map(anchor, document.BiasRight), mut.Map(selHead, document.BiasRight))
		entry.From = from
		entry.To = from + len(resp.CorrectedText)
		entry.CurrentValue = resp.CorrectedText
	default:
		entry.From = from
		entry.To = to
		entry.CurrentValue = resp.OriginalWord
	}
	e.reg.Add(entry)
	e.metrics.PendingCorrections.Add(bg, 1)
	e.rebuildMarkers()
}

// locateWord resolves a word correction's document range. The offset is
// relative to the end of the text that was sent; when it does not land on
// the original word verbatim (the document moved underneath the request),
// the last occurrence of the word before the cursor in the current line is
// used instead. Caller holds the lock.
func (e *Engine) locateWord(resp *assist.WordCorrection, sentEnd int) (int, int, bool) {
	off := resp.StartIndexRelativeToEnd
	if off < 0 {
		off = -off
	}
	if off == 0 {
		off = resp.CharsToReplace
	}

	from := sentEnd - off
	to := from + len(resp.OriginalWord)
	if from >= 0 && to <= e.doc.Len() {
		if got, err := e.doc.Text(document.Range{From: from, To: to}); err == nil && got == resp.OriginalWord {
			return from, to, true
		}
	}

	blockRange, blockText, ok := e.blockAt(sentEnd)
	if !ok {
		return 0, 0, false
	}
	limit := sentEnd - blockRange.From
	if limit < 0 || limit > len(blockText) {
		limit = len(blockText)
	}
	idx := strings.LastIndex(blockText[:limit], resp.OriginalWord)
	if idx < 0 {
		return 0, 0, false
	}
	from = blockRange.From + idx
	return from, from + len(resp.OriginalWord), true
}

// fireGrammarCheck runs after the grammar debounce elapses: it sends the
// cursor's line plus the whole document for context and records each
// returned match as a manual correction the user can act on.
func (e *Engine) fireGrammarCheck(ctx context.Context, seq uint64) {
	defer e.coord.Finish(trigger.KindGrammar, seq)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	blockRange, blockText, ok := e.currentBlock()
	var fullText string
	if ok {
		fullText, _ = e.doc.Text(document.Range{From: 0, To: e.doc.Len()})
	}
	e.mu.Unlock()
	if !ok || strings.TrimSpace(blockText) == "" {
		return
	}

	start := time.Now()
	matches, err := e.assist.CheckGrammar(ctx, blockText, fullText)
	elapsed := time.Since(start).Seconds()
	bg := context.Background()
	if err != nil {
		if errors.Is(err, assist.ErrAborted) {
			e.metrics.RecordRequest(bg, string(trigger.KindGrammar), "aborted", elapsed)
			return
		}
		e.metrics.RecordRequest(bg, string(trigger.KindGrammar), "error", elapsed)
		e.metrics.RecordDrop(bg, string(trigger.KindGrammar), observe.DropTransport)
		e.log.Warn("grammar check request failed", "error", err)
		return
	}
	e.metrics.RecordRequest(bg, string(trigger.KindGrammar), "ok", elapsed)
	if len(matches) == 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if seq != e.coord.Latest(trigger.KindGrammar) {
		e.metrics.RecordDrop(bg, string(trigger.KindGrammar), observe.DropSuperseded)
		return
	}
	if !e.doc.Alive() {
		e.metrics.RecordDrop(bg, string(trigger.KindGrammar), observe.DropDocClosed)
		return
	}
	if live, err := e.doc.Text(blockRange); err != nil || live != blockText {
		e.metrics.RecordDrop(bg, string(trigger.KindGrammar), observe.DropStale)
		return
	}

	added := 0
	for _, m := range matches {
		if len(m.Replacements) == 0 || m.Length <= 0 {
			continue
		}
		from := blockRange.From + m.Offset
		to := from + m.Length
		if m.Offset < 0 || to > blockRange.To {
			e.metrics.RecordDrop(bg, string(trigger.KindGrammar), observe.DropOutOfBounds)
			continue
		}
		flagged := blockText[m.Offset : m.Offset+m.Length]
		if isWordLike(flagged) && e.dict.Contains(strings.ToLower(flagged)) {
			e.metrics.RecordDrop(bg, string(trigger.KindGrammar), observe.DropDictionary)
			continue
		}
		if e.reg.OverlapsAny(from, to) {
			e.metrics.RecordDrop(bg, string(trigger.KindGrammar), observe.DropOverlap)
			continue
		}
		// Grammar findings are always presented for the user to resolve,
		// even when the backend tags them auto-confident.
		e.reg.Add(&correction.Entry{
			ID:            e.newEntryID(),
			From:          from,
			To:            to,
			Type:          assist.CorrectionManual,
			OriginalValue: flagged,
			CurrentValue:  flagged,
			Suggestions:   m.Replacements,
		})
		added++
	}
	if added > 0 {
		e.metrics.PendingCorrections.Add(bg, int64(added))
		e.rebuildMarkers()
	}
}

// firePrediction runs after the prediction debounce elapses: it asks the
// assistant to complete the sentence at the cursor and tracks the unseen
// tail as ghost text.
func (e *Engine) firePrediction(ctx context.Context, seq uint64) {
	defer e.coord.Finish(trigger.KindPrediction, seq)

	e.mu.Lock()
	if e.closed || e.pred.Active() {
		e.mu.Unlock()
		return
	}
	fullText, err := e.doc.Text(document.Range{From: 0, To: e.doc.Len()})
	head := e.selectionHead()
	e.mu.Unlock()
	if err != nil || strings.TrimSpace(fullText) == "" {
		return
	}

	start := time.Now()
	resp, reqErr := e.assist.CompleteSentence(ctx, fullText)
	elapsed := time.Since(start).Seconds()
	bg := context.Background()
	if reqErr != nil {
		if errors.Is(reqErr, assist.ErrAborted) {
			e.metrics.RecordRequest(bg, string(trigger.KindPrediction), "aborted", elapsed)
			return
		}
		e.metrics.RecordRequest(bg, string(trigger.KindPrediction), "error", elapsed)
		e.metrics.RecordDrop(bg, string(trigger.KindPrediction), observe.DropTransport)
		e.log.Warn("prediction request failed", "error", reqErr)
		return
	}
	e.metrics.RecordRequest(bg, string(trigger.KindPrediction), "ok", elapsed)
	if resp == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if seq != e.coord.Latest(trigger.KindPrediction) {
		e.metrics.RecordDrop(bg, string(trigger.KindPrediction), observe.DropSuperseded)
		return
	}
	if !e.doc.Alive() {
		e.metrics.RecordDrop(bg, string(trigger.KindPrediction), observe.DropDocClosed)
		return
	}
	live, err := e.doc.Text(document.Range{From: 0, To: e.doc.Len()})
	if err != nil || live != fullText || e.selectionHead() != head {
		e.metrics.RecordDrop(bg, string(trigger.KindPrediction), observe.DropStale)
		return
	}

	ghost := selectGhost(resp, fullText[:head])
	if ghost == "" {
		e.metrics.RecordDrop(bg, string(trigger.KindPrediction), observe.DropMismatch)
		return
	}
	e.pred.Set(fullText, ghost, head)
	e.rebuildMarkers()
}

// selectGhost picks the first prediction whose already-written prefix still
// matches the text before the cursor and returns its unseen tail. When the
// backend sends no per-prediction indices, the completion text itself is
// the tail.
func selectGhost(resp *assist.Completion, beforeCursor string) string {
	for _, p := range resp.Predictions {
		idx := p.CompletionStartingIndex
		if idx < 0 || idx >= len(p.Text) {
			continue
		}
		if !strings.HasSuffix(beforeCursor, p.Text[:idx]) {
			continue
		}
		return p.Text[idx:]
	}
	if len(resp.Predictions) == 0 {
		return resp.Text
	}
	return ""
}

// withLeadingSuggestion ensures text heads the suggestion list.
func withLeadingSuggestion(suggestions []assist.Suggestion, text string) []assist.Suggestion {
	for i, s := range suggestions {
		if s.Text == text {
			if i == 0 {
				return suggestions
			}
			out := make([]assist.Suggestion, 0, len(suggestions))
			out = append(out, s)
			out = append(out, suggestions[:i]...)
			out = append(out, suggestions[i+1:]...)
			return out
		}
	}
	out := make([]assist.Suggestion, 0, len(suggestions)+1)
	out = append(out, assist.Suggestion{Text: text, Score: 1})
	return append(out, suggestions...)
}

func isWordLike(s string) bool {
	if s == "" {
		return false
	}
	return !strings.ContainsAny(s, " \t\n")
}
