package ai

import (
	"encoding/json"
	"net/http"
	"testing"
)

// verifyOllamaChatRequest validates an Ollama chat request.
// It decodes the request body and verifies the structure is well-formed.
func verifyOllamaChatRequest(t *testing.T, r *http.Request, w http.ResponseWriter) *ollamaChatRequest {
	t.Helper()

	var req ollamaChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.Errorf("failed to decode request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return nil
	}

	if req.Model == "" {
		t.Error("model is empty")
	}
	if len(req.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != "system" {
		t.Errorf("first message should be system, got %s", req.Messages[0].Role)
	}
	if req.Messages[1].Role != "user" {
		t.Errorf("second message should be user, got %s", req.Messages[1].Role)
	}

	return &req
}

// verifyNarrationResult checks that a narration has the expected values
// for a standard "Close" verdict response with 1 note and 1 next step.
func verifyNarrationResult(t *testing.T, narration *Narration) {
	t.Helper()

	if narration.Verdict != "Close" {
		t.Errorf("Verdict = %v, want Close", narration.Verdict)
	}
	if len(narration.Notes) != 1 {
		t.Errorf("len(Notes) = %v, want 1", len(narration.Notes))
	}
	if len(narration.NextSteps) != 1 {
		t.Errorf("len(NextSteps) = %v, want 1", len(narration.NextSteps))
	}
}

// verifyLocalProviderStats checks stats from local LLM providers.
// Local providers have zero cost and expected token counts.
func verifyLocalProviderStats(t *testing.T, stats *Stats, provider string) {
	t.Helper()

	if stats.InputTokens != 1500 {
		t.Errorf("InputTokens = %v, want 1500", stats.InputTokens)
	}
	if stats.OutputTokens != 250 {
		t.Errorf("OutputTokens = %v, want 250", stats.OutputTokens)
	}
	if stats.CostUSD != 0 {
		t.Errorf("CostUSD = %v, want 0 (local inference)", stats.CostUSD)
	}
	if provider != "" && stats.Provider != provider {
		t.Errorf("Provider = %v, want %s", stats.Provider, provider)
	}
}
