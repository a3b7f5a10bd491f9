package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/exam"
)

// StatusFor maps a service error to an HTTP status.
func StatusFor(err error) int {
	switch exam.KindOf(err) {
	case exam.KindValidation, exam.KindDuplicateSection:
		return http.StatusBadRequest
	case exam.KindChunkTooLarge:
		return http.StatusRequestEntityTooLarge
	case exam.KindNotFound:
		return http.StatusNotFound
	case exam.KindAccessDenied:
		return http.StatusForbidden
	case exam.KindAlreadyApproved, exam.KindAlreadyLocked, exam.KindConflict:
		return http.StatusConflict
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// writeError reports err to the client. Unclassified errors are logged and
// their text is not sent.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := StatusFor(err)
	body := errorBody{Error: err.Error()}
	if k := exam.KindOf(err); k != 0 {
		body.Kind = k.String()
	}
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		body = errorBody{Error: "internal error"}
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body of at most limit bytes into dst.
func decode(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return exam.Validationf("bad json: %v", err)
	}
	return nil
}
