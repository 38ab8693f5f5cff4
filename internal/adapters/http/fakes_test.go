package httpadapter

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

type casesFake struct {
	created []string
	err     error
}

func (f *casesFake) CreateCase(_ context.Context, name, description string) (*domain.Case, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, name)
	return &domain.Case{ID: "case-1", Name: name, Description: description}, nil
}

func (f *casesFake) GetCase(_ context.Context, id string) (*domain.Case, error) {
	if id != "case-1" {
		return nil, domain.NewError(domain.ErrNotFound, "get case", id)
	}
	return &domain.Case{ID: id, Name: "Lease"}, nil
}

func (f *casesFake) ListCases(context.Context) ([]domain.Case, error) {
	return []domain.Case{{ID: "case-1", Name: "Lease"}}, nil
}

func (f *casesFake) CreateSession(_ context.Context, caseID, treatment string) (*domain.Session, error) {
	t, err := domain.ParseTreatment(treatment)
	if err != nil {
		return nil, err
	}
	return &domain.Session{ID: "sess-1", CaseID: caseID, Treatment: t}, nil
}

func (f *casesFake) GetSession(_ context.Context, id string) (*domain.Session, error) {
	return &domain.Session{ID: id, CaseID: "case-1", Treatment: domain.TreatmentMerged}, nil
}

func (f *casesFake) ListSessions(context.Context, string) ([]domain.Session, error) {
	return nil, nil
}

type uploadCall struct {
	caseID, party, filename, body string
}

type ingestFake struct {
	calls []uploadCall
	err   error
}

func (f *ingestFake) Upload(_ context.Context, caseID, party, filename string, body io.Reader) (*domain.Document, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.calls = append(f.calls, uploadCall{caseID: caseID, party: party, filename: filename, body: string(raw)})
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Document{ID: "doc-1", CaseID: caseID, Party: domain.Party(party), Filename: filename, PageCount: 1}, nil
}

func (f *ingestFake) ListDocuments(context.Context, string) ([]domain.Document, error) {
	return []domain.Document{}, nil
}

type challengeFake struct {
	resp domain.ChallengeResponse
	err  error
}

func (f challengeFake) Run(context.Context, string) (domain.ChallengeResponse, error) {
	return f.resp, f.err
}

// transcriptFake keeps one window per session; sessions named "missing"
// do not exist.
type transcriptFake struct {
	turns map[string][]domain.Turn
}

func newTranscriptFake() *transcriptFake {
	return &transcriptFake{turns: make(map[string][]domain.Turn)}
}

func (f *transcriptFake) AddTurn(_ context.Context, sessionID, speaker, text string) ([]domain.Turn, error) {
	if sessionID == "missing" {
		return nil, domain.NewError(domain.ErrNotFound, "get session", sessionID)
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewError(domain.ErrInvalidInput, "append turn", "text is required")
	}
	f.turns[sessionID] = append(f.turns[sessionID], domain.Turn{Speaker: speaker, Text: text, Timestamp: time.Unix(0, 0).UTC()})
	return f.turns[sessionID], nil
}

func (f *transcriptFake) Turns(_ context.Context, sessionID string) ([]domain.Turn, error) {
	if sessionID == "missing" {
		return nil, domain.NewError(domain.ErrNotFound, "get session", sessionID)
	}
	return f.turns[sessionID], nil
}

func (f *transcriptFake) Clear(_ context.Context, sessionID string) error {
	delete(f.turns, sessionID)
	return nil
}

type evidenceFake struct{}

func (evidenceFake) DocumentFile(_ context.Context, docID string) (*domain.Document, io.ReadCloser, error) {
	if docID != "doc-1" {
		return nil, nil, domain.NewError(domain.ErrNotFound, "get document", docID)
	}
	doc := &domain.Document{ID: docID, Filename: "contract.pdf", ContentType: "application/pdf", PageCount: 3}
	return doc, io.NopCloser(strings.NewReader("%PDF-1.7 body")), nil
}

func (evidenceFake) ChunkContext(_ context.Context, docID, chunkID string) (*domain.Chunk, error) {
	if chunkID != "doc-1:2:0-10" {
		return nil, domain.NewError(domain.ErrNotFound, "get chunk", chunkID)
	}
	return &domain.Chunk{ID: chunkID, DocumentID: docID, Filename: "contract.pdf", Page: 2, Text: "pay by May", ParentText: "Terms\n\npay by May", SectionTitle: "Terms"}, nil
}

var errBoom = errors.New("boom")
