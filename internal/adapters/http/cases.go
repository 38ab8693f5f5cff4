package httpadapter

import (
	"net/http"
)

type createCaseRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type createSessionRequest struct {
	Treatment string `json:"treatment"`
}

func (rt *Router) createCase(w http.ResponseWriter, r *http.Request) {
	var req createCaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	c, err := rt.cases.CreateCase(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (rt *Router) listCases(w http.ResponseWriter, r *http.Request) {
	cases, err := rt.cases.ListCases(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cases": cases})
}

func (rt *Router) getCase(w http.ResponseWriter, r *http.Request) {
	c, err := rt.cases.GetCase(r.Context(), r.PathValue("case_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (rt *Router) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
	}
	session, err := rt.cases.CreateSession(r.Context(), r.PathValue("case_id"), req.Treatment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (rt *Router) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := rt.cases.ListSessions(r.Context(), r.PathValue("case_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (rt *Router) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := rt.cases.GetSession(r.Context(), r.PathValue("session_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}
