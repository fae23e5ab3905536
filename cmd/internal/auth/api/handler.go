package authapi

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"warden/cmd/internal/credential"
	"warden/cmd/security/password"

	"github.com/go-chi/chi/v5"
)

// Handler wires the signup and login endpoints to the credential service.
type Handler struct {
	log *slog.Logger
	cfg Config
	svc *credential.Service
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, svc *credential.Service, cfg Config) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("auth: nil credential service")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Handler{log: log, cfg: cfg, svc: svc}, nil
}

// Register mounts the auth routes on r. The original paths and the /auth aliases
// share handlers.
func (h *Handler) Register(r chi.Router) {
	if h == nil || r == nil {
		return
	}
	r.Post("/signup", h.handleSignup)
	r.Post("/login", h.handleLogin)
	r.Post("/auth/register", h.handleSignup)
	r.Post("/auth/login", h.handleLogin)
}

// MethodNotAllowed writes the JSON 405 body used by the router.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", msgNotAllowedPost)
}

// ---- handlers ----

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", msgInvalidJSON)
		return
	}

	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := r.UserAgent()

	res, err := h.svc.Register(ctx, credential.RegisterInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, password.ErrPasswordTooLong):
			writeError(w, http.StatusBadRequest, "password_too_long", msgPasswordTooLong)
		case errors.Is(err, password.ErrPasswordTooShort):
			writeError(w, http.StatusBadRequest, "password_too_short", msgPasswordTooShort)
		case errors.Is(err, credential.ErrValidation):
			writeError(w, http.StatusBadRequest, "invalid_request", msgRequired)
		case errors.Is(err, credential.ErrDuplicateUser):
			h.auditSignupFailed(ctx, ip, ua, req.Username, "username_taken")
			writeError(w, http.StatusConflict, "username_taken", msgUsernameTaken)
		case errors.Is(err, credential.ErrStoreUnavailable):
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", msgUnavailable)
		default:
			h.log.ErrorContext(ctx, "auth.signup.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", msgSignupFailed)
		}
		return
	}

	h.auditSignupSuccess(ctx, ip, ua, res.Username)
	writeJSON(w, http.StatusCreated, signupResponse{
		Status:   "created",
		Message:  msgSignupOK,
		Username: res.Username,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", msgInvalidJSON)
		return
	}

	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := r.UserAgent()

	err := h.svc.Verify(ctx, credential.VerifyInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, credential.ErrValidation):
			writeError(w, http.StatusBadRequest, "invalid_request", msgRequired)
		case errors.Is(err, credential.ErrInvalidCredentials):
			h.auditLoginFailed(ctx, ip, ua, req.Username, credential.Reason(err))
			writeError(w, http.StatusUnauthorized, "invalid_credentials", msgInvalidCreds)
		case errors.Is(err, credential.ErrStoreUnavailable):
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", msgUnavailable)
		default:
			h.log.ErrorContext(ctx, "auth.login.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", msgLoginFailed)
		}
		return
	}

	h.auditLoginSuccess(ctx, ip, ua, req.Username)
	writeJSON(w, http.StatusOK, loginResponse{Status: "ok", Message: msgLoginOK})
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
