package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/assessment"
	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/report"
)

type submitRequest struct {
	// question id -> chosen option index
	Answers map[string]int `json:"answers" validate:"required"`
}

// POST /tests/{testID}/submissions  { "answers": { "<questionId>": 2 } }
func SubmitHandler(svc *assessment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := actor(w, r)
		if !ok {
			return
		}
		var req submitRequest
		if err := decodeValid(w, r, &req); err != nil {
			writeError(w, log, err)
			return
		}
		sub, err := svc.Submit(r.Context(), a, chi.URLParam(r, "testID"), req.Answers)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	}
}

// GET /tests/{testID}/submissions
func ListTestSubmissionsHandler(svc *assessment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := actor(w, r)
		if !ok {
			return
		}
		subs, err := svc.ListSubmissions(r.Context(), a, assessment.SubmissionFilter{TestID: chi.URLParam(r, "testID")})
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, subs)
	}
}

// GET /submissions?testId=
func ListMySubmissionsHandler(svc *assessment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := actor(w, r)
		if !ok {
			return
		}
		f := assessment.SubmissionFilter{TestID: r.URL.Query().Get("testId"), StudentID: a.ID}
		subs, err := svc.ListSubmissions(r.Context(), a, f)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, subs)
	}
}

// GET /submissions/{submissionID}
func GetSubmissionHandler(svc *assessment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := actor(w, r)
		if !ok {
			return
		}
		sub, err := svc.GetSubmission(r.Context(), a, chi.URLParam(r, "submissionID"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}

// GET /tests/{testID}/submissions/export
func ExportResultsHandler(svc *assessment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := actor(w, r)
		if !ok {
			return
		}
		rs, err := svc.Results(r.Context(), a, chi.URLParam(r, "testID"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		// build in memory so a failed export still gets a proper status
		var buf bytes.Buffer
		if err := report.WriteResults(&buf, rs.Test, rs.Submissions, rs.Students); err != nil {
			writeError(w, log, fmt.Errorf("export %s: %w", rs.Test.ID, err))
			return
		}
		w.Header().Set("Content-Type", report.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportName(rs.Test.Title)))
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
	}
}

// exportName turns a title into a safe file name.
func exportName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, title)
	if name == "" {
		name = "results"
	}
	return name + "-results.xlsx"
}
