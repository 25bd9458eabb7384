package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	regAuth "github.com/MrEthical07/regAuth"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSON reads a single JSON object into dst. Unknown fields and trailing data are
// rejected. An empty body is accepted only when optional is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, optional bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		return fmt.Errorf("%w: %v", regAuth.ErrInvalidInput, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", regAuth.ErrInvalidInput)
	}
	return nil
}
