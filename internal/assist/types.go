package assist

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/antzucaro/matchr"
)

// CorrectionType distinguishes corrections that are applied to the document
// immediately from ones that are only proposed.
type CorrectionType string

const (
	// CorrectionAuto marks a correction the engine applies right away,
	// offered with a one-click revert.
	CorrectionAuto CorrectionType = "auto"

	// CorrectionManual marks a proposal; the document keeps the original
	// text until the user picks a suggestion.
	CorrectionManual CorrectionType = "manual"
)

// Suggestion is a single replacement candidate with its service-reported
// score (higher is better).
type Suggestion struct {
	Text  string
	Score float64
}

// rawSuggestion accepts the service's {correction, score} object shape as
// well as the {value}/{text} variants and bare strings seen from older
// service versions.
type rawSuggestion struct {
	Text  string
	Score float64
}

func (s *rawSuggestion) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		s.Text = str
		return nil
	}
	var obj struct {
		Correction string  `json:"correction"`
		Value      string  `json:"value"`
		Text       string  `json:"text"`
		Score      float64 `json:"score"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("assist: decode suggestion: %w", err)
	}
	switch {
	case obj.Correction != "":
		s.Text = obj.Correction
	case obj.Value != "":
		s.Text = obj.Value
	default:
		s.Text = obj.Text
	}
	s.Score = obj.Score
	return nil
}

// WordCorrection is the response of POST /correction/final_word.
type WordCorrection struct {
	CorrectionType          CorrectionType
	OriginalWord            string
	CorrectedText           string
	OriginalText            string
	CharsToReplace          int
	StartIndexRelativeToEnd int // negative: offset of the word from the sentence end
	Suggestions             []Suggestion
	IsInDictionary          bool
}

func (w *WordCorrection) UnmarshalJSON(b []byte) error {
	var raw struct {
		CorrectionType          string          `json:"correctionType"`
		OriginalWord            string          `json:"original_word"`
		CorrectedText           string          `json:"corrected_text"`
		OriginalText            string          `json:"original_text"`
		CharsToReplace          int             `json:"chars_to_replace"`
		StartIndexRelativeToEnd int             `json:"start_index_relative_to_end"`
		Suggestions             []rawSuggestion `json:"suggestions"`
		IsInDictionary          bool            `json:"is_in_dictionary"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("assist: decode word correction: %w", err)
	}
	w.CorrectionType = normalizeType(raw.CorrectionType)
	w.OriginalWord = raw.OriginalWord
	w.CorrectedText = raw.CorrectedText
	w.OriginalText = raw.OriginalText
	w.CharsToReplace = raw.CharsToReplace
	w.StartIndexRelativeToEnd = raw.StartIndexRelativeToEnd
	w.IsInDictionary = raw.IsInDictionary
	w.Suggestions = normalizeSuggestions(raw.OriginalWord, raw.Suggestions)
	return nil
}

// GrammarMatch is one element of the whole-text grammar check response.
// The service has shipped two generations of field names; both are accepted.
type GrammarMatch struct {
	Offset         int
	Length         int
	CorrectionType CorrectionType
	Replacements   []Suggestion
}

func (m *GrammarMatch) UnmarshalJSON(b []byte) error {
	var raw struct {
		StartIndex      *int            `json:"startIndex"`
		Offset          *int            `json:"offset"`
		CharsToReplace  *int            `json:"charsToReplace"`
		Length          *int            `json:"length"`
		CorrectionType  *string         `json:"correctionType"`
		UnderlineChoice *string         `json:"underline_choice"`
		Suggestions     []rawSuggestion `json:"suggestions"`
		Replacements    []rawSuggestion `json:"replacements"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("assist: decode grammar match: %w", err)
	}

	switch {
	case raw.StartIndex != nil:
		m.Offset = *raw.StartIndex
	case raw.Offset != nil:
		m.Offset = *raw.Offset
	}
	switch {
	case raw.CharsToReplace != nil:
		m.Length = *raw.CharsToReplace
	case raw.Length != nil:
		m.Length = *raw.Length
	}
	switch {
	case raw.CorrectionType != nil:
		m.CorrectionType = normalizeType(*raw.CorrectionType)
	case raw.UnderlineChoice != nil:
		m.CorrectionType = normalizeType(*raw.UnderlineChoice)
	default:
		m.CorrectionType = CorrectionManual
	}

	suggestions := raw.Suggestions
	if len(suggestions) == 0 {
		suggestions = raw.Replacements
	}
	m.Replacements = normalizeSuggestions("", suggestions)
	return nil
}

// Prediction is one sentence-completion candidate.
type Prediction struct {
	Text                    string `json:"text"`
	CompletionStartingIndex int    `json:"completionStartingIndex"`
}

// Completion is the response of POST /completion/sentence_complete.
type Completion struct {
	Text        string       `json:"text"`
	Predictions []Prediction `json:"predictions"`
}

// normalizeType maps arbitrary service spellings onto the two correction
// types the engine knows. Anything unrecognised is treated as manual, the
// non-destructive choice.
func normalizeType(s string) CorrectionType {
	if s == string(CorrectionAuto) {
		return CorrectionAuto
	}
	return CorrectionManual
}

// normalizeSuggestions converts raw suggestions, backfilling missing scores
// with Jaro-Winkler similarity against the original word so that ordering
// stays meaningful when the service omits them, and sorts best-first.
func normalizeSuggestions(original string, raw []rawSuggestion) []Suggestion {
	if len(raw) == 0 {
		return nil
	}
	out := make([]Suggestion, 0, len(raw))
	for _, r := range raw {
		if r.Text == "" {
			continue
		}
		score := r.Score
		if score == 0 && original != "" {
			score = matchr.JaroWinkler(original, r.Text, false)
		}
		out = append(out, Suggestion{Text: r.Text, Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
