// Package httputil writes the JSON bodies served on the debug listener:
// run history under /runs, the live activity summary under /activity.json
// and table sizes under /debug/db-stats.
package httputil

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorBody is the payload of every non-2xx debug response.
type ErrorBody struct {
	Error string `json:"error"`
}

// WriteJSON sends data with the given status. Bodies describe a run that
// may still be in progress, so they are marked uncacheable. An encoding
// failure after the header is out can only be logged.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("debug response (status %d) not encoded: %v", status, err)
	}
}

// WriteJSONOK is WriteJSON with 200.
func WriteJSONOK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}

// WriteJSONError sends msg wrapped in ErrorBody.
func WriteJSONError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorBody{Error: msg})
}

func MethodNotAllowed(w http.ResponseWriter) {
	WriteJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func InternalServerError(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusInternalServerError, msg)
}

// NotFound is used while a run has not classified any frame yet.
func NotFound(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusNotFound, msg)
}

// GetOnly rejects everything but GET and HEAD. The debug routes are
// read-only views of run state.
func GetOnly(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			MethodNotAllowed(w)
			return
		}
		h(w, r)
	})
}
