package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"testing"
)

func TestPointIDIsStableAndUUIDShaped(t *testing.T) {
	first := PointID("doc1:1:0-120")
	second := PointID("doc1:1:0-120")
	if first != second {
		t.Fatalf("expected stable point id, got %s and %s", first, second)
	}
	if !regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`).MatchString(first) {
		t.Fatalf("unexpected point id format: %s", first)
	}
	if PointID("doc1:1:0-121") == first {
		t.Fatalf("expected different chunk ids to map to different points")
	}
}

func TestChunkIDFormat(t *testing.T) {
	if got := ChunkID("abc", 3, 10, 250); got != "abc:3:10-250" {
		t.Fatalf("unexpected chunk id %q", got)
	}
}

func TestResolveSpeakerParty(t *testing.T) {
	cases := map[string]Party{
		"Party A": PartyA,
		"party b": PartyB,
		"A":       PartyA,
	}
	for speaker, want := range cases {
		got, ok := ResolveSpeakerParty(speaker)
		if !ok || got != want {
			t.Fatalf("ResolveSpeakerParty(%q) = %q, %v; want %q", speaker, got, ok, want)
		}
	}
	if _, ok := ResolveSpeakerParty("Mediator"); ok {
		t.Fatalf("expected mediator to resolve to no party")
	}
}

func TestParsePartyRejectsUnknown(t *testing.T) {
	if _, err := ParseParty("C"); !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestNoEvidenceResponseKeepsFullSchema(t *testing.T) {
	raw, err := json.Marshal(NoEvidenceResponse(TreatmentSideBySide, "Mediator: hello"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"treatment", "query_used", "no_evidence", "summary", "citations", "party_a_evidence", "party_a_citations", "party_b_evidence", "party_b_citations"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("expected key %q in response, got %s", key, raw)
		}
	}
	if citations, ok := decoded["party_b_citations"].([]any); !ok || len(citations) != 0 {
		t.Fatalf("expected empty citation list, got %v", decoded["party_b_citations"])
	}
	if decoded["no_evidence"] != true {
		t.Fatalf("expected no_evidence true")
	}
}

func TestKindOfPrefersOutermostKind(t *testing.T) {
	inner := NewError(ErrUpstream, "cohere rerank", "502")
	outer := WrapError(ErrTemporary, "challenge", inner)

	if got := KindOf(outer); got != ErrTemporary {
		t.Fatalf("KindOf(outer) = %v, want temporary", got)
	}
	if got := KindOf(inner); got != ErrUpstream {
		t.Fatalf("KindOf(inner) = %v, want upstream", got)
	}
	if got := KindOf(fmt.Errorf("handler: %w", outer)); got != ErrTemporary {
		t.Fatalf("KindOf through plain wrap = %v", got)
	}
	if KindOf(errors.New("plain")) != nil || KindOf(nil) != nil {
		t.Fatalf("untyped errors carry no kind")
	}
}
