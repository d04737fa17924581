package payloadschema

import (
	"encoding/json"
	"strings"
	"testing"
)

func validPayload() string {
	return `{
		"articles": [
			{"title": "Central bank raises rates", "content": "The central bank announced a rate increase of 50 basis points on Tuesday, citing persistent inflation pressure across the economy.", "source": "reuters"},
			{"title": "Markets react to rate decision", "content": "Equity markets fell sharply after the announcement, with banking stocks leading the decline through the afternoon session.", "source": "bbc"}
		],
		"num_clusters": 2,
		"store": true
	}`
}

func TestValidateProcessRequestAcceptsValidPayload(t *testing.T) {
	t.Parallel()

	request, err := ValidateProcessRequest(json.RawMessage(validPayload()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(request.Articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(request.Articles))
	}
	if request.NumClusters != 2 {
		t.Fatalf("expected num_clusters=2, got %d", request.NumClusters)
	}
	if !request.Store {
		t.Fatalf("expected store=true")
	}
}

func TestValidateProcessRequestRejectsSingleArticle(t *testing.T) {
	t.Parallel()

	payload := `{"articles": [{"title": "Only one", "content": "A lone article cannot form a batch no matter how long its content runs on.", "source": "ap"}]}`
	if _, err := ValidateProcessRequest(json.RawMessage(payload)); err == nil {
		t.Fatalf("expected minItems violation")
	}
}

func TestValidateProcessRequestRejectsMissingTitle(t *testing.T) {
	t.Parallel()

	payload := strings.Replace(validPayload(), `"title": "Central bank raises rates", `, "", 1)
	if _, err := ValidateProcessRequest(json.RawMessage(payload)); err == nil {
		t.Fatalf("expected required-title violation")
	}
}

func TestValidateProcessRequestRejectsUnknownField(t *testing.T) {
	t.Parallel()

	payload := strings.Replace(validPayload(), `"store": true`, `"store": true, "mystery": 1`, 1)
	if _, err := ValidateProcessRequest(json.RawMessage(payload)); err == nil {
		t.Fatalf("expected additionalProperties violation")
	}
}

func TestValidateProcessRequestRejectsTrailingContent(t *testing.T) {
	t.Parallel()

	if _, err := ValidateProcessRequest(json.RawMessage(validPayload() + "{}")); err == nil {
		t.Fatalf("expected trailing content rejection")
	}
}
