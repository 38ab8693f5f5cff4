package httpadapter

import (
	"io"
	"mime"
	"net/http"
	"strconv"
)

func (rt *Router) runChallenge(w http.ResponseWriter, r *http.Request) {
	resp, err := rt.challenge.Run(r.Context(), r.PathValue("session_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// documentFile streams the stored original whatever its type; the route
// name is kept for the viewer that opens PDFs inline.
func (rt *Router) documentFile(w http.ResponseWriter, r *http.Request) {
	doc, rc, err := rt.evidence.DocumentFile(r.Context(), r.PathValue("doc_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": doc.Filename}))
	w.Header().Set("X-Page-Count", strconv.Itoa(doc.PageCount))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		logFor(r).Warn("document_stream_failed", "doc_id", doc.ID, "error", err)
	}
}

func (rt *Router) chunkContext(w http.ResponseWriter, r *http.Request) {
	chunk, err := rt.evidence.ChunkContext(r.Context(), r.PathValue("doc_id"), r.PathValue("chunk_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chunk_id":      chunk.ID,
		"doc_id":        chunk.DocumentID,
		"filename":      chunk.Filename,
		"page":          chunk.Page,
		"text":          chunk.Text,
		"parent_text":   chunk.ParentText,
		"section_title": chunk.SectionTitle,
	})
}
