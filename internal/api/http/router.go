package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/assessment"
	auth "github.com/sakshi-sonii/CET-for-JES-sub000/internal/auth/middleware"
	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/rbac"
)

// NewRouter mounts the API. Extra middleware (CORS, timeouts) runs after
// request id and logging, before authentication.
func NewRouter(svc *assessment.Service, authSvc *auth.AuthService, log *zap.Logger, mw ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(log), middleware.Recoverer)
	r.Use(mw...)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Post("/auth/login", auth.LoginHandler(authSvc, svc, log))

	// Protected API (JWT → stored account → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc), auth.AttachUser(svc, log))

		pr.With(rbac.Require(rbac.TestView)).Get("/tests", ListTestsHandler(svc, log))
		pr.With(rbac.Require(rbac.TestCreate)).Post("/tests", CreateTestHandler(svc, log))

		pr.Route("/tests/{testID}", func(tr chi.Router) {
			tr.With(rbac.Require(rbac.TestView)).Get("/", GetTestHandler(svc, log))
			tr.With(rbac.Require(rbac.TestUpdate)).Patch("/", UpdateTestHandler(svc, log))
			tr.With(rbac.Require(rbac.TestDelete)).Delete("/", DeleteTestHandler(svc, log))
			tr.With(rbac.Require(rbac.TestReview)).Post("/review", ReviewTestHandler(svc, log))
			tr.With(rbac.Require(rbac.TestApprove)).Post("/approve", ApproveTestHandler(svc, log))

			tr.With(rbac.Require(rbac.SubmissionCreate)).Post("/submissions", SubmitHandler(svc, log))
			tr.With(rbac.Require(rbac.SubmissionViewAll)).Get("/submissions", ListTestSubmissionsHandler(svc, log))
			tr.With(rbac.Require(rbac.SubmissionExport)).Get("/submissions/export", ExportResultsHandler(svc, log))
		})

		pr.With(rbac.Require(rbac.SubmissionViewOwn)).Get("/submissions", ListMySubmissionsHandler(svc, log))
		// staff may open any submission of their tests; the service checks ownership
		pr.With(rbac.RequireAny(rbac.SubmissionViewOwn, rbac.SubmissionViewAll)).
			Get("/submissions/{submissionID}", GetSubmissionHandler(svc, log))

		pr.With(rbac.Require(rbac.UsersManage)).Get("/users", ListUsersHandler(svc, log))
		pr.With(rbac.Require(rbac.UsersManage)).Post("/users", CreateUserHandler(svc, log))
		pr.With(rbac.Require(rbac.UsersManage)).Patch("/users/{userID}", SetUserApprovedHandler(svc, log))
	})
	return r
}
