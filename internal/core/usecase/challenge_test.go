package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
	"github.com/kirillkom/evidence-assistant/internal/core/lexical"
	"github.com/kirillkom/evidence-assistant/internal/core/transcript"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/chunking"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/vector/memory"
)

type challengeHarness struct {
	repo       *caseRepoFake
	docs       *documentRepoFake
	ingest     *IngestDocumentUseCase
	cases      *CaseUseCase
	transcript *TranscriptUseCase
	challenge  *ChallengeUseCase
	generator  *generatorFake
	observer   *challengeObserverFake
}

func newChallengeHarness() *challengeHarness {
	repo := newCaseRepoFake()
	docs := newDocumentRepoFake()
	index := memory.New()
	encoder := lexical.NewEncoder()
	embedder := &keywordEmbedder{vocabulary: []string{"deadline", "missed", "contractor", "payment", "invoice"}}
	reranker := &overlapReranker{keywords: []string{"deadline", "missed", "payment", "invoice"}}
	generator := &generatorFake{reply: "The contractor missed the deadline on March 3 [contract.pdf, p.1]."}
	observer := &challengeObserverFake{}

	ingest := NewIngestDocumentUseCase(
		repo, docs, newStorageFake(), &extractorFake{},
		chunking.NewSectionChunker(300, 4, 0.15), embedder,
		NewIndexer(index, encoder, 0), &ingestObserverFake{}, IngestOptions{},
	)
	store := transcript.NewStore(transcript.Options{Window: 10, QueryWindow: 4})
	funnel := NewFunnel(index, encoder, reranker, FunnelConfig{TopK: 20, RerankTopK: 5, RRFK: 60, Gate: ThresholdGate{Rerank: 0.4}})

	return &challengeHarness{
		repo:       repo,
		docs:       docs,
		ingest:     ingest,
		cases:      NewCaseUseCase(repo, repo),
		transcript: NewTranscriptUseCase(repo, store),
		challenge:  NewChallengeUseCase(repo, store, embedder, funnel, NewSynthesizer(generator), observer),
		generator:  generator,
		observer:   observer,
	}
}

func (h *challengeHarness) setup(t *testing.T, treatment string) (*domain.Case, *domain.Session) {
	t.Helper()
	ctx := context.Background()
	c, err := h.cases.CreateCase(ctx, "Kitchen remodel", "")
	if err != nil {
		t.Fatalf("CreateCase() error = %v", err)
	}
	if _, err := h.ingest.Upload(ctx, c.ID, "A", "contract.pdf", strings.NewReader("The contractor missed the deadline on March 3.")); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	s, err := h.cases.CreateSession(ctx, c.ID, treatment)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	return c, s
}

func TestChallengeEndToEndMergedCitesDocument(t *testing.T) {
	h := newChallengeHarness()
	ctx := context.Background()
	_, session := h.setup(t, "")

	if _, err := h.transcript.AddTurn(ctx, session.ID, "Mediator", "when was the deadline missed?"); err != nil {
		t.Fatalf("AddTurn() error = %v", err)
	}

	resp, err := h.challenge.Run(ctx, session.ID)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.NoEvidence {
		t.Fatalf("expected evidence, got no-evidence response")
	}
	if resp.QueryUsed != "Mediator: when was the deadline missed?" {
		t.Fatalf("unexpected query %q", resp.QueryUsed)
	}
	if resp.Merged == nil || len(resp.Merged.Citations) != 1 {
		t.Fatalf("expected one merged citation, got %+v", resp.Merged)
	}
	c := resp.Merged.Citations[0]
	if c.DocName != "contract.pdf" || c.Page != 1 {
		t.Fatalf("expected citation to contract.pdf p.1, got %+v", c)
	}
	if c.Snippet != "The contractor missed the deadline on March 3." {
		t.Fatalf("unexpected snippet %q", c.Snippet)
	}
	if len(h.observer.outcomes) != 1 || h.observer.outcomes[0] != "evidence" {
		t.Fatalf("expected evidence outcome, got %v", h.observer.outcomes)
	}
}

func TestChallengeWithoutTranscriptIsNoEvidence(t *testing.T) {
	h := newChallengeHarness()
	_, session := h.setup(t, "")

	resp, err := h.challenge.Run(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !resp.NoEvidence || resp.QueryUsed != "" {
		t.Fatalf("expected no-evidence with empty query, got %+v", resp)
	}
	if h.generator.callCount() != 0 {
		t.Fatalf("generator must not run without transcript")
	}
	if h.observer.outcomes[0] != domain.NoEvidenceNoTranscript {
		t.Fatalf("expected no_transcript outcome, got %v", h.observer.outcomes)
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	if !strings.Contains(string(raw), `"citations":[]`) || !strings.Contains(string(raw), `"party_b_citations":[]`) {
		t.Fatalf("expected stable schema with empty lists, got %s", raw)
	}
}

func TestChallengeUnrelatedDiscussionIsBelowThreshold(t *testing.T) {
	h := newChallengeHarness()
	ctx := context.Background()
	_, session := h.setup(t, "")

	if _, err := h.transcript.AddTurn(ctx, session.ID, "Party B", "the weather was lovely that spring"); err != nil {
		t.Fatalf("AddTurn() error = %v", err)
	}

	resp, err := h.challenge.Run(ctx, session.ID)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !resp.NoEvidence {
		t.Fatalf("expected no-evidence for unrelated discussion, got %+v", resp)
	}
	if resp.QueryUsed == "" {
		t.Fatalf("expected query to be reported when retrieval ran")
	}
	if h.observer.outcomes[0] != domain.NoEvidenceBelowThreshold {
		t.Fatalf("expected below_threshold outcome, got %v", h.observer.outcomes)
	}
}

func TestChallengeSideBySideOnlyPartyAEvidence(t *testing.T) {
	h := newChallengeHarness()
	ctx := context.Background()
	_, session := h.setup(t, "side_by_side")

	if _, err := h.transcript.AddTurn(ctx, session.ID, "Party B", "the deadline was never missed"); err != nil {
		t.Fatalf("AddTurn() error = %v", err)
	}

	resp, err := h.challenge.Run(ctx, session.ID)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.SideBySide == nil {
		t.Fatalf("expected side-by-side response, got %+v", resp)
	}
	if resp.SideBySide.PartyB.Summary != noPartyEvidence("B") || len(resp.SideBySide.PartyB.Citations) != 0 {
		t.Fatalf("expected empty party B evidence, got %+v", resp.SideBySide.PartyB)
	}
	if len(resp.SideBySide.PartyA.Citations) != 1 {
		t.Fatalf("expected party A citation, got %+v", resp.SideBySide.PartyA)
	}
}

func TestChallengeDoesNotCrossCases(t *testing.T) {
	h := newChallengeHarness()
	ctx := context.Background()
	h.setup(t, "")

	other, err := h.cases.CreateCase(ctx, "Unrelated", "")
	if err != nil {
		t.Fatalf("CreateCase() error = %v", err)
	}
	session, err := h.cases.CreateSession(ctx, other.ID, "")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if _, err := h.transcript.AddTurn(ctx, session.ID, "Mediator", "when was the deadline missed?"); err != nil {
		t.Fatalf("AddTurn() error = %v", err)
	}

	resp, err := h.challenge.Run(ctx, session.ID)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !resp.NoEvidence {
		t.Fatalf("expected no evidence in a case without documents, got %+v", resp)
	}
	if h.observer.outcomes[0] != domain.NoEvidenceNoCandidates {
		t.Fatalf("expected no_candidates outcome, got %v", h.observer.outcomes)
	}
}

func TestChallengeUnknownSession(t *testing.T) {
	h := newChallengeHarness()
	_, err := h.challenge.Run(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestChallengeEmbedFailurePropagates(t *testing.T) {
	repo := newCaseRepoFake()
	repo.sessions["s1"] = domain.Session{ID: "s1", CaseID: "c1", Treatment: domain.TreatmentMerged}
	store := transcript.NewStore(transcript.Options{})
	if _, err := store.Append(context.Background(), "s1", "Mediator", "hello"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	funnel := NewFunnel(&indexFake{}, lexical.NewEncoder(), &overlapReranker{}, FunnelConfig{})
	uc := NewChallengeUseCase(repo, store, &keywordEmbedder{err: errBoom}, funnel, NewSynthesizer(&generatorFake{}), nil)

	if _, err := uc.Run(context.Background(), "s1"); err == nil {
		t.Fatalf("expected embed error")
	}
}
