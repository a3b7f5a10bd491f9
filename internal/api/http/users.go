package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/assessment"
	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/exam"
)

// GET /users?role=teacher
func ListUsersHandler(svc *assessment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := actor(w, r)
		if !ok {
			return
		}
		users, err := svc.ListUsers(r.Context(), a, exam.Role(r.URL.Query().Get("role")))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

// POST /users
func CreateUserHandler(svc *assessment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := actor(w, r)
		if !ok {
			return
		}
		var req assessment.NewUserRequest
		if err := decode(w, r, maxSmallBody, &req); err != nil {
			writeError(w, log, err)
			return
		}
		u, err := svc.CreateUser(r.Context(), a, req)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, u)
	}
}

type approvalRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

// PATCH /users/{userID}  { "approved": true }
func SetUserApprovedHandler(svc *assessment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := actor(w, r)
		if !ok {
			return
		}
		var req approvalRequest
		if err := decodeValid(w, r, &req); err != nil {
			writeError(w, log, err)
			return
		}
		u, err := svc.SetUserApproved(r.Context(), a, chi.URLParam(r, "userID"), *req.Approved)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}
