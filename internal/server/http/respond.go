package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/counter-orion/internal/errs"
)

const (
	maxBodyBytes = 1 << 20

	msgInternal = "internal server error"
	msgBadBody  = "invalid request body"
	msgNoEntry  = "entry not found"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// fail maps domain errors to status codes. Storage faults never reach the body.
func fail(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		writeError(w, http.StatusBadRequest, errs.Message(err, errs.ErrValidation))
	case errors.Is(err, errs.ErrAlreadyExists):
		writeError(w, http.StatusConflict, errs.Message(err, errs.ErrAlreadyExists))
	case errors.Is(err, errs.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, errs.Message(err, errs.ErrUnauthorized))
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, errs.Message(err, errs.ErrNotFound))
	case errors.Is(err, errs.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, errs.Message(err, errs.ErrRateLimited))
	default:
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

// readBody reads at most maxBodyBytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrValidation, msgBadBody)
	}
	return body, nil
}

// decodeJSON decodes a JSON object body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %s", errs.ErrValidation, msgBadBody)
	}
	return nil
}
