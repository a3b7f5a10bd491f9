package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/assessment"
	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/exam"
	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/rbac"
)

const issuer = "cet-examprep"

type AuthService struct {
	hmac []byte
	ttl  time.Duration
	now  func() time.Time
}

func NewAuthService(secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &AuthService{hmac: []byte(secret), ttl: ttl, now: time.Now}
}

type Claims struct {
	Sub      string   `json:"sub"`
	Role     string   `json:"role"`
	Approved bool     `json:"approved"`
	Subjects []string `json:"subjects,omitempty"`
	jwt.RegisteredClaims
}

// Actor is the identity carried by the claims.
func (c *Claims) Actor() assessment.Actor {
	a := assessment.Actor{ID: c.Sub, Role: exam.Role(c.Role), Approved: c.Approved}
	for _, s := range c.Subjects {
		a.Subjects = append(a.Subjects, exam.Subject(s))
	}
	return a
}

func (a *AuthService) IssueJWT(actor assessment.Actor) (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.ttl)
	claims := &Claims{
		Sub:      actor.ID,
		Role:     string(actor.Role),
		Approved: actor.Approved,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	for _, s := range actor.Subjects {
		claims.Subjects = append(claims.Subjects, string(s))
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(a.hmac)
	return signed, exp, err
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, err
	}
	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || c.Sub == "" {
		return nil, errors.New("invalid token claims")
	}
	return c, nil
}

// Authenticator checks a username and password.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (assessment.User, error)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

var loginValidator = validator.New()

// POST /auth/login  { "username": "...", "password": "..." }
func LoginHandler(a *AuthService, users Authenticator, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := loginValidator.Struct(req); err != nil {
			http.Error(w, "username and password are required", http.StatusBadRequest)
			return
		}
		u, err := users.Authenticate(r.Context(), req.Username, req.Password)
		if err != nil {
			if exam.KindOf(err) == exam.KindAccessDenied {
				log.Info("login failed", zap.String("username", req.Username))
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			}
			log.Error("login", zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		tok, exp, err := a.IssueJWT(assessment.ActorOf(u))
		if err != nil {
			log.Error("issue token", zap.Error(err))
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		log.Info("login", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": tok,
			"expires_at":   exp.UTC().Format(time.RFC3339),
			"user":         u,
		})
	}
}

// JWTMiddleware verifies the bearer token and stores the caller's identity
// and role in the request context.
func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			claims, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), claims.Actor())))
		})
	}
}

// WithActor stores a in ctx, along with its role for rbac checks.
func WithActor(ctx context.Context, a assessment.Actor) context.Context {
	ctx = context.WithValue(ctx, ctxKeyActor, a)
	return rbac.WithRole(ctx, a.Role)
}
