package assist_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/victor-ca/marksense/internal/assist"
)

func TestNew_EmptyBaseURL(t *testing.T) {
	t.Parallel()
	if _, err := assist.New(""); err == nil {
		t.Fatal("expected error for empty baseURL, got nil")
	}
}

func TestClient_CorrectFinalWord(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/correction/final_word" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		var body struct {
			Text      string   `json:"text"`
			Languages []string `json:"languages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Text != "Teh quick" {
			t.Errorf("text = %q", body.Text)
		}
		if len(body.Languages) != 1 || body.Languages[0] != "de" {
			t.Errorf("languages = %v", body.Languages)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"correctionType": "auto",
			"original_word":  "Teh",
			"corrected_text": "The",
		})
	}))
	defer srv.Close()

	client, err := assist.New(srv.URL,
		assist.WithAPIKey("sk-test"),
		assist.WithLanguages([]string{"de"}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	wc, err := client.CorrectFinalWord(context.Background(), "Teh quick")
	if err != nil {
		t.Fatalf("CorrectFinalWord: %v", err)
	}
	if wc.CorrectedText != "The" || wc.CorrectionType != assist.CorrectionAuto {
		t.Errorf("response = %+v", wc)
	}
}

func TestClient_CheckGrammar(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/grammar_correction/whole_text_grammar_correction" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body struct {
			Text     string `json:"text"`
			FullText string `json:"full_text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Text != "He go home." || body.FullText != "Intro. He go home." {
			t.Errorf("request = %+v", body)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"matches": []map[string]any{
				{"startIndex": 3, "charsToReplace": 2, "suggestions": []string{"goes"}},
			},
		})
	}))
	defer srv.Close()

	client, err := assist.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	matches, err := client.CheckGrammar(context.Background(), "He go home.", "Intro. He go home.")
	if err != nil {
		t.Fatalf("CheckGrammar: %v", err)
	}
	if len(matches) != 1 || matches[0].Offset != 3 || matches[0].Length != 2 {
		t.Errorf("matches = %+v", matches)
	}
}

func TestClient_CompleteSentence(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/completion/sentence_complete" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"predictions": []map[string]any{
				{"text": "The sky is blue.", "completionStartingIndex": 11},
			},
		})
	}))
	defer srv.Close()

	client, err := assist.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c, err := client.CompleteSentence(context.Background(), "The sky is ")
	if err != nil {
		t.Fatalf("CompleteSentence: %v", err)
	}
	if len(c.Predictions) != 1 || c.Predictions[0].Text != "The sky is blue." {
		t.Errorf("completion = %+v", c)
	}
}

func TestClient_NonOKStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "over capacity", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := assist.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := client.CorrectFinalWord(context.Background(), "text"); err == nil {
		t.Fatal("expected error for 503 response, got nil")
	}
}

func TestClient_CancelledContextIsAborted(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := assist.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.CorrectFinalWord(ctx, "text")
	if !errors.Is(err, assist.ErrAborted) {
		t.Errorf("err = %v, want ErrAborted", err)
	}
}

func TestClient_Ping(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client, err := assist.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// 404 still proves the host is reachable.
	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}

	down, err := assist.New("http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := down.Ping(context.Background()); err == nil {
		t.Error("Ping against a closed port should fail")
	}
}
