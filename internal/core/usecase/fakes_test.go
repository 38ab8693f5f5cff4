package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
	"github.com/kirillkom/evidence-assistant/internal/core/ports"
)

type caseRepoFake struct {
	mu       sync.Mutex
	cases    map[string]domain.Case
	sessions map[string]domain.Session
	err      error
}

func newCaseRepoFake() *caseRepoFake {
	return &caseRepoFake{cases: map[string]domain.Case{}, sessions: map[string]domain.Session{}}
}

func (f *caseRepoFake) CreateCase(_ context.Context, c *domain.Case) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cases[c.ID] = *c
	return nil
}

func (f *caseRepoFake) GetCase(_ context.Context, id string) (*domain.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cases[id]
	if !ok {
		return nil, domain.NewError(domain.ErrNotFound, "get case", "case "+id+" not found")
	}
	return &c, nil
}

func (f *caseRepoFake) ListCases(context.Context) ([]domain.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Case, 0, len(f.cases))
	for _, c := range f.cases {
		out = append(out, c)
	}
	return out, nil
}

func (f *caseRepoFake) CreateSession(_ context.Context, s *domain.Session) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = *s
	return nil
}

func (f *caseRepoFake) GetSession(_ context.Context, id string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, domain.NewError(domain.ErrNotFound, "get session", "session "+id+" not found")
	}
	return &s, nil
}

func (f *caseRepoFake) ListSessions(_ context.Context, caseID string) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Session
	for _, s := range f.sessions {
		if s.CaseID == caseID {
			out = append(out, s)
		}
	}
	return out, nil
}

type documentRepoFake struct {
	docs      map[string]domain.Document
	chunks    map[string]domain.Chunk
	createErr error
}

func newDocumentRepoFake() *documentRepoFake {
	return &documentRepoFake{docs: map[string]domain.Document{}, chunks: map[string]domain.Chunk{}}
}

func (f *documentRepoFake) CreateDocument(_ context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.docs[doc.ID] = *doc
	for _, c := range chunks {
		f.chunks[c.ID] = c
	}
	return nil
}

func (f *documentRepoFake) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	d, ok := f.docs[id]
	if !ok {
		return nil, domain.NewError(domain.ErrNotFound, "get document", "document "+id+" not found")
	}
	return &d, nil
}

func (f *documentRepoFake) ListDocuments(_ context.Context, caseID string) ([]domain.Document, error) {
	var out []domain.Document
	for _, d := range f.docs {
		if d.CaseID == caseID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *documentRepoFake) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	c, ok := f.chunks[id]
	if !ok {
		return nil, domain.NewError(domain.ErrNotFound, "get chunk", "chunk "+id+" not found")
	}
	return &c, nil
}

type storageFake struct {
	objects map[string][]byte
	err     error
}

func newStorageFake() *storageFake { return &storageFake{objects: map[string][]byte{}} }

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.objects[key] = b
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	b, ok := f.objects[key]
	if !ok {
		return nil, domain.NewError(domain.ErrNotFound, "open object", key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

// extractorFake treats content as plain text split into pages on form feed.
type extractorFake struct {
	detectErr  error
	extractErr error
}

func (f *extractorFake) Detect(string, []byte) (string, error) {
	if f.detectErr != nil {
		return "", f.detectErr
	}
	return "text/plain", nil
}

func (f *extractorFake) Extract(_ context.Context, _ string, content []byte) (domain.Extraction, error) {
	if f.extractErr != nil {
		return domain.Extraction{}, f.extractErr
	}
	raw := strings.Split(string(content), "\f")
	var pages []domain.Page
	for i, text := range raw {
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: i + 1, Text: text})
	}
	return domain.Extraction{Pages: pages, PageCount: len(raw)}, nil
}

// paragraphChunker emits one chunk per page.
type paragraphChunker struct{}

func (paragraphChunker) Chunk(doc *domain.Document, pages []domain.Page) []domain.Chunk {
	out := make([]domain.Chunk, 0, len(pages))
	for _, p := range pages {
		end := len([]rune(p.Text))
		out = append(out, domain.Chunk{
			ID:         domain.ChunkID(doc.ID, p.Number, 0, end),
			DocumentID: doc.ID,
			CaseID:     doc.CaseID,
			Party:      doc.Party,
			Filename:   doc.Filename,
			Page:       p.Number,
			EndChar:    end,
			Text:       p.Text,
			ParentText: p.Text,
		})
	}
	return out
}

// keywordEmbedder projects text onto a fixed vocabulary, one dimension per
// keyword, so dense similarity follows shared vocabulary.
type keywordEmbedder struct {
	vocabulary []string
	err        error
	calls      int
}

func (f *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vector(text)
	}
	return out, nil
}

func (f *keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector(text), nil
}

func (f *keywordEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(f.vocabulary)+1)
	for i, word := range f.vocabulary {
		v[i] = float32(strings.Count(lower, word))
	}
	v[len(f.vocabulary)] = 0.01
	return v
}

// overlapReranker scores a document by the share of query keywords it
// contains.
type overlapReranker struct {
	keywords  []string
	err       error
	hits      []ports.RerankHit
	documents []string
}

func (f *overlapReranker) Rerank(_ context.Context, query string, documents []string, topN int) ([]ports.RerankHit, error) {
	f.documents = append([]string(nil), documents...)
	if f.err != nil {
		return nil, f.err
	}
	if f.hits != nil {
		return f.hits, nil
	}
	lowerQuery := strings.ToLower(query)
	var active []string
	for _, k := range f.keywords {
		if strings.Contains(lowerQuery, k) {
			active = append(active, k)
		}
	}
	hits := make([]ports.RerankHit, 0, len(documents))
	for i, doc := range documents {
		score := 0.0
		if len(active) > 0 {
			lowerDoc := strings.ToLower(doc)
			matched := 0
			for _, k := range active {
				if strings.Contains(lowerDoc, k) {
					matched++
				}
			}
			score = float64(matched) / float64(len(active))
		}
		hits = append(hits, ports.RerankHit{Index: i, Score: score})
	}
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Score > hits[j-1].Score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	if topN < len(hits) {
		hits = hits[:topN]
	}
	return hits, nil
}

type generatorFake struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	systems []string
}

func (f *generatorFake) Complete(_ context.Context, system, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.systems = append(f.systems, system)
	f.prompts = append(f.prompts, user)
	if f.err != nil {
		return "", f.err
	}
	if f.reply != "" {
		return f.reply, nil
	}
	return "summary of evidence", nil
}

func (f *generatorFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type indexFake struct {
	dense, sparse []domain.RetrievalResult
	denseErr      error
	ensureErr     error
	upserts       [][]domain.IndexPoint
	ensuredDim    int
	caseIDs       []string
	mu            sync.Mutex
}

func (f *indexFake) EnsureCollection(_ context.Context, dim int) error {
	f.ensuredDim = dim
	return f.ensureErr
}

func (f *indexFake) Upsert(_ context.Context, points []domain.IndexPoint) error {
	f.upserts = append(f.upserts, points)
	return nil
}

func (f *indexFake) SearchDense(_ context.Context, caseID string, _ []float32, _ int) ([]domain.RetrievalResult, error) {
	f.mu.Lock()
	f.caseIDs = append(f.caseIDs, caseID)
	f.mu.Unlock()
	if f.denseErr != nil {
		return nil, f.denseErr
	}
	return f.dense, nil
}

func (f *indexFake) SearchSparse(_ context.Context, caseID string, _ domain.SparseVector, _ int) ([]domain.RetrievalResult, error) {
	f.mu.Lock()
	f.caseIDs = append(f.caseIDs, caseID)
	f.mu.Unlock()
	return f.sparse, nil
}

type challengeObserverFake struct {
	outcomes []string
}

func (f *challengeObserverFake) ObserveChallenge(_ domain.Treatment, outcome string, _, _ int, _ map[string]float64) {
	f.outcomes = append(f.outcomes, outcome)
}

type ingestObserverFake struct {
	started  int
	statuses []string
}

func (f *ingestObserverFake) StartIngest() { f.started++ }

func (f *ingestObserverFake) FinishIngest(status string, _ int, _ float64) {
	f.statuses = append(f.statuses, status)
}

var errBoom = errors.New("boom")
