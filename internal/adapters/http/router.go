package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/kirillkom/evidence-assistant/internal/core/ports"
)

// ServerMetrics is the slice of the Prometheus recorder the router uses.
type ServerMetrics interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
	RecordRejected(reason string)
	RecordTranscriptSegment(source string)
	WebSocketOpened()
	WebSocketClosed()
}

// HealthStatus reports which credentialed providers are configured.
type HealthStatus struct {
	OpenAIConfigured bool `json:"openai_configured"`
	CohereConfigured bool `json:"cohere_configured"`
}

type Options struct {
	CORSOrigins    []string
	AuthToken      string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	QueueWait      time.Duration
	MaxUploadBytes int64

	Health HealthStatus
	// Checks are probed by /api/health; any failure reports "degraded".
	Checks map[string]func(ctx context.Context) error
}

type Router struct {
	cases      ports.CaseService
	ingestor   ports.DocumentIngestor
	challenge  ports.ChallengeRunner
	transcript ports.TranscriptService
	evidence   ports.EvidenceService
	metrics    ServerMetrics
	opts       Options
}

func NewRouter(
	cases ports.CaseService,
	ingestor ports.DocumentIngestor,
	challenge ports.ChallengeRunner,
	transcript ports.TranscriptService,
	evidence ports.EvidenceService,
	metrics ServerMetrics,
	opts Options,
) *Router {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 50 << 20
	}
	if opts.QueueWait <= 0 {
		opts.QueueWait = 250 * time.Millisecond
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"http://localhost:3000"}
	}
	return &Router{
		cases:      cases,
		ingestor:   ingestor,
		challenge:  challenge,
		transcript: transcript,
		evidence:   evidence,
		metrics:    metrics,
		opts:       opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", rt.health)

	mux.HandleFunc("POST /api/cases", rt.createCase)
	mux.HandleFunc("GET /api/cases", rt.listCases)
	mux.HandleFunc("GET /api/cases/{case_id}", rt.getCase)
	mux.HandleFunc("POST /api/cases/{case_id}/sessions", rt.createSession)
	mux.HandleFunc("GET /api/cases/{case_id}/sessions", rt.listSessions)
	mux.HandleFunc("GET /api/sessions/{session_id}", rt.getSession)

	mux.HandleFunc("POST /api/sessions/{session_id}/transcript", rt.addTurn)
	mux.HandleFunc("GET /api/sessions/{session_id}/transcript", rt.getTranscript)
	mux.HandleFunc("DELETE /api/sessions/{session_id}/transcript", rt.clearTranscript)
	mux.Handle("GET "+websocketPrefix+"{session_id}", rt.transcriptSocket())

	mux.HandleFunc("POST /api/intake/upload", rt.uploadDocument)
	mux.HandleFunc("GET /api/intake/{case_id}/documents", rt.listDocuments)

	mux.HandleFunc("POST /api/challenge/{session_id}", rt.runChallenge)

	mux.HandleFunc("GET /api/evidence/{doc_id}/pdf", rt.documentFile)
	mux.HandleFunc("GET /api/evidence/{doc_id}/chunk/{chunk_id}", rt.chunkContext)

	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = openAPIValidationMiddleware(handler, mustLoadRequestValidator())
	handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, rt.opts.QueueWait, rt.onReject)
	handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst, rt.onReject)
	handler = authMiddleware(handler, rt.opts.AuthToken)
	handler = cors.New(cors.Options{
		AllowedOrigins:   rt.opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
	}).Handler(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	return requestMiddleware(handler)
}

func (rt *Router) onReject(reason string) {
	if rt.metrics != nil {
		rt.metrics.RecordRejected(reason)
	}
}

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	checks := make(map[string]string, len(rt.opts.Checks))
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	for name, check := range rt.opts.Checks {
		if err := check(ctx); err != nil {
			logFor(r).Warn("health_check_failed", "check", name, "error", err)
			checks[name] = err.Error()
			status = "degraded"
			continue
		}
		checks[name] = "ok"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            status,
		"openai_configured": rt.opts.Health.OpenAIConfigured,
		"cohere_configured": rt.opts.Health.CohereConfigured,
		"checks":            checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst)
}
