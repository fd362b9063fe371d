package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

const maxRequestBytes = 1 << 20

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes the {"message": ...} error body the portal clients expect.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

// decodeJSON reads the request body into out. An empty body leaves out
// untouched when allowEmpty is set. On failure it writes a 400 and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, out any, allowEmpty bool) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := dec.Decode(out); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return false
	}
	return true
}
