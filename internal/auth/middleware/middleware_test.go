package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/assessment"
	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/exam"
	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/rbac"
)

func TestIssueAndParse(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	in := assessment.Actor{ID: "t1", Role: exam.RoleTeacher, Approved: true, Subjects: []exam.Subject{exam.Physics}}

	tok, exp, err := a.IssueJWT(in)
	if err != nil {
		t.Fatal(err)
	}
	if d := time.Until(exp); d < 59*time.Minute || d > time.Hour {
		t.Fatalf("expiry in %v", d)
	}
	c, err := a.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := c.Actor()
	if got.ID != "t1" || got.Role != exam.RoleTeacher || !got.Approved || len(got.Subjects) != 1 || got.Subjects[0] != exam.Physics {
		t.Fatalf("actor = %+v", got)
	}
}

func TestParseRejects(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	good, _, err := a.IssueJWT(assessment.Actor{ID: "s1", Role: exam.RoleStudent})
	if err != nil {
		t.Fatal(err)
	}

	other, _, _ := NewAuthService("other-secret", time.Hour).IssueJWT(assessment.Actor{ID: "s1", Role: exam.RoleStudent})

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Sub: "s1", Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{Sub: "s1", Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"}})
	wrongIssuer, _ := foreign.SignedString([]byte("secret"))

	expired := NewAuthService("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	tests := []struct {
		name string
		svc  *AuthService
		tok  string
	}{
		{"garbage", a, "not.a.jwt"},
		{"wrong secret", a, other},
		{"alg none", a, unsigned},
		{"wrong issuer", a, wrongIssuer},
		{"expired", expired, good},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.svc.Parse(tc.tok); err == nil {
				t.Fatal("token accepted")
			}
		})
	}
}

func TestJWTMiddleware(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	tok, _, _ := a.IssueJWT(assessment.Actor{ID: "c1", Role: exam.RoleCoordinator, Approved: true})

	var seen assessment.Actor
	var role exam.Role
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ActorFromContext(r.Context())
		role = rbac.RoleFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || seen.ID != "c1" || role != exam.RoleCoordinator {
		t.Fatalf("code %d actor %+v role %q", rec.Code, seen, role)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing bearer: %d", rec.Code)
	}
}

type lookupFunc func(ctx context.Context, id string) (assessment.User, error)

func (f lookupFunc) GetUser(ctx context.Context, id string) (assessment.User, error) { return f(ctx, id) }

func TestAttachUser(t *testing.T) {
	claimed := assessment.Actor{ID: "t1", Role: exam.RoleTeacher, Approved: false}

	tests := []struct {
		name     string
		lookup   lookupFunc
		wantCode int
		approved bool
	}{
		{
			name: "stored account wins",
			lookup: func(context.Context, string) (assessment.User, error) {
				return assessment.User{ID: "t1", Role: exam.RoleTeacher, Approved: true}, nil
			},
			wantCode: http.StatusOK,
			approved: true,
		},
		{
			name: "deleted account",
			lookup: func(context.Context, string) (assessment.User, error) {
				return assessment.User{}, exam.NotFoundf("User not found")
			},
			wantCode: http.StatusUnauthorized,
		},
		{
			name: "store failure",
			lookup: func(context.Context, string) (assessment.User, error) {
				return assessment.User{}, errors.New("connection reset")
			},
			wantCode: http.StatusInternalServerError,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got assessment.Actor
			h := AttachUser(tc.lookup, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = ActorFromContext(r.Context())
			}))
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/", nil)
			h.ServeHTTP(rec, req.WithContext(WithActor(req.Context(), claimed)))
			if rec.Code != tc.wantCode {
				t.Fatalf("code = %d, want %d", rec.Code, tc.wantCode)
			}
			if tc.wantCode == http.StatusOK && got.Approved != tc.approved {
				t.Fatalf("approved = %v, want %v", got.Approved, tc.approved)
			}
		})
	}
}
