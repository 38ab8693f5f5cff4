package httpadapter

import (
	"errors"
	"net/http"
)

const multipartMemory = 32 << 20

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form is required"})
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingestor.Upload(
		r.Context(),
		r.FormValue("case_id"),
		r.FormValue("party"),
		fileHeader.Filename,
		file,
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := rt.ingestor.ListDocuments(r.Context(), r.PathValue("case_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}
