package httpadapter

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

const websocketPrefix = "/api/zoom/ws/transcript/"

type turnRequest struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

type turnsResponse struct {
	OK         bool          `json:"ok"`
	BufferSize int           `json:"buffer_size"`
	Turns      []domain.Turn `json:"turns"`
}

type socketError struct {
	Error string `json:"error"`
}

func (rt *Router) addTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	turns, err := rt.transcript.AddTurn(r.Context(), r.PathValue("session_id"), req.Speaker, req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt.recordSegment("http")
	writeJSON(w, http.StatusOK, newTurnsResponse(turns))
}

func (rt *Router) getTranscript(w http.ResponseWriter, r *http.Request) {
	turns, err := rt.transcript.Turns(r.Context(), r.PathValue("session_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTurnsResponse(turns))
}

func (rt *Router) clearTranscript(w http.ResponseWriter, r *http.Request) {
	if err := rt.transcript.Clear(r.Context(), r.PathValue("session_id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// transcriptSocket receives {"speaker","text"} frames from a meeting
// bridge and answers each with the current window. A bad frame gets an
// error reply and the socket stays open.
func (rt *Router) transcriptSocket() http.Handler {
	return websocket.Server{
		// Origin policy is enforced by the CORS and auth layers.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler: func(ws *websocket.Conn) {
			defer ws.Close()
			req := ws.Request()
			sessionID := req.PathValue("session_id")
			ctx := req.Context()
			logger := logFor(req).With("session_id", sessionID)

			if _, err := rt.transcript.Turns(ctx, sessionID); err != nil {
				_ = websocket.JSON.Send(ws, socketError{Error: err.Error()})
				return
			}
			if rt.metrics != nil {
				rt.metrics.WebSocketOpened()
				defer rt.metrics.WebSocketClosed()
			}
			logger.Info("transcript_socket_opened")

			for {
				var msg turnRequest
				if err := websocket.JSON.Receive(ws, &msg); err != nil {
					if !errors.Is(err, io.EOF) {
						logger.Warn("transcript_socket_receive_failed", "error", err)
					}
					break
				}
				if strings.TrimSpace(msg.Text) == "" {
					if err := websocket.JSON.Send(ws, socketError{Error: "empty text"}); err != nil {
						break
					}
					continue
				}
				turns, err := rt.transcript.AddTurn(ctx, sessionID, msg.Speaker, msg.Text)
				if err != nil {
					if err := websocket.JSON.Send(ws, socketError{Error: err.Error()}); err != nil {
						break
					}
					continue
				}
				rt.recordSegment("websocket")
				if err := websocket.JSON.Send(ws, newTurnsResponse(turns)); err != nil {
					break
				}
			}
			logger.Info("transcript_socket_closed")
		},
	}
}

func (rt *Router) recordSegment(source string) {
	if rt.metrics != nil {
		rt.metrics.RecordTranscriptSegment(source)
	}
}

func newTurnsResponse(turns []domain.Turn) turnsResponse {
	if turns == nil {
		turns = []domain.Turn{}
	}
	return turnsResponse{OK: true, BufferSize: len(turns), Turns: turns}
}
