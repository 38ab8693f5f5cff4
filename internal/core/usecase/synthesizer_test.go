package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

func TestSynthesizerMergedBuildsCitations(t *testing.T) {
	gen := &generatorFake{reply: "The deadline was missed [contract.pdf, p.2]."}
	r := partyResult("doc1:2:0-10", domain.PartyA)
	r.Filename = "contract.pdf"
	r.Page = 2
	r.Text = strings.Repeat("x", 400)
	r.ParentText = "parent context"

	resp, err := NewSynthesizer(gen).Synthesize(context.Background(), domain.TreatmentMerged, "q", "Mediator: q", []domain.RetrievalResult{r})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if resp.Merged == nil || resp.SideBySide != nil {
		t.Fatalf("expected merged variant, got %+v", resp)
	}
	if resp.Merged.Summary != gen.reply {
		t.Fatalf("unexpected summary %q", resp.Merged.Summary)
	}
	if len(resp.Merged.Citations) != 1 {
		t.Fatalf("expected one citation, got %d", len(resp.Merged.Citations))
	}
	c := resp.Merged.Citations[0]
	if c.ChunkID != r.ID || c.DocName != "contract.pdf" || c.Page != 2 {
		t.Fatalf("unexpected citation %+v", c)
	}
	if len([]rune(c.Snippet)) != 300 {
		t.Fatalf("expected snippet bounded to 300 runes, got %d", len([]rune(c.Snippet)))
	}
	if gen.callCount() != 1 {
		t.Fatalf("expected one generation call, got %d", gen.callCount())
	}
	if !strings.Contains(gen.prompts[0], "[contract.pdf, p.2]\nparent context") {
		t.Fatalf("expected tagged parent text in evidence block, got %q", gen.prompts[0])
	}
	if gen.systems[0] != mergedSystemPrompt {
		t.Fatalf("expected merged system prompt")
	}
}

func TestSynthesizerSideBySideIsolatesParties(t *testing.T) {
	gen := &generatorFake{reply: "Party A documents state X."}
	results := []domain.RetrievalResult{
		partyResult("a1", domain.PartyA),
		partyResult("a2", domain.PartyA),
	}

	resp, err := NewSynthesizer(gen).SideBySide(context.Background(), "q", "ctx", results)
	if err != nil {
		t.Fatalf("SideBySide() error = %v", err)
	}
	if resp.SideBySide == nil || resp.Merged != nil {
		t.Fatalf("expected side-by-side variant, got %+v", resp)
	}
	if got := resp.SideBySide.PartyB.Summary; got != noPartyEvidence("B") {
		t.Fatalf("expected fixed party B message, got %q", got)
	}
	if len(resp.SideBySide.PartyB.Citations) != 0 {
		t.Fatalf("expected no party B citations, got %d", len(resp.SideBySide.PartyB.Citations))
	}
	if len(resp.SideBySide.PartyA.Citations) != 2 {
		t.Fatalf("expected two party A citations, got %d", len(resp.SideBySide.PartyA.Citations))
	}
	if gen.callCount() != 1 {
		t.Fatalf("expected only party A generation, got %d calls", gen.callCount())
	}
	if gen.systems[0] != sideBySideSystemPrompt {
		t.Fatalf("expected side-by-side system prompt")
	}
}

func TestSynthesizerSideBySideBothParties(t *testing.T) {
	gen := &generatorFake{}
	results := []domain.RetrievalResult{
		partyResult("a1", domain.PartyA),
		partyResult("b1", domain.PartyB),
	}

	resp, err := NewSynthesizer(gen).Synthesize(context.Background(), domain.TreatmentSideBySide, "q", "ctx", results)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if gen.callCount() != 2 {
		t.Fatalf("expected two generation calls, got %d", gen.callCount())
	}
	if resp.SideBySide.PartyA.Citations[0].ChunkID != "a1" || resp.SideBySide.PartyB.Citations[0].ChunkID != "b1" {
		t.Fatalf("expected citations partitioned by party, got %+v", resp.SideBySide)
	}
}

func TestSynthesizerPropagatesGenerationFailure(t *testing.T) {
	gen := &generatorFake{err: domain.NewError(domain.ErrUpstream, "complete", "empty completion")}
	_, err := NewSynthesizer(gen).Merged(context.Background(), "q", "ctx", []domain.RetrievalResult{result("a")})
	if !domain.IsKind(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestBuildCitationsDefaultsDocName(t *testing.T) {
	citations := buildCitations([]domain.RetrievalResult{result("a")})
	if citations[0].DocName != "Unknown" {
		t.Fatalf("expected Unknown doc name, got %q", citations[0].DocName)
	}
	if !strings.HasPrefix(formatEvidence([]domain.RetrievalResult{result("a")}), "[Doc, p.0]") {
		t.Fatalf("expected Doc placeholder tag")
	}
}
