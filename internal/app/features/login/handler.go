// internal/app/features/login/handler.go
package login

import (
	"encoding/json"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/newsdesk/internal/app/features/errors"
	"github.com/dalemusser/newsdesk/internal/app/system/auth"
	"github.com/dalemusser/newsdesk/internal/app/system/clock"
	"github.com/dalemusser/newsdesk/internal/app/system/limits"
	"github.com/dalemusser/newsdesk/internal/app/system/navigation"
	"github.com/dalemusser/newsdesk/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	Staff      auth.Staff
	Limiter    *ratelimit.LoginLimiter
	ErrLog     *uierrors.ErrorLogger
	Clock      clock.Clock
}

func NewHandler(sessionMgr *auth.SessionManager, staff auth.Staff, limiter *ratelimit.LoginLimiter, c clock.Clock, logger *zap.Logger) *Handler {
	if c == nil {
		c = clock.System{}
	}
	if limiter == nil {
		limiter = ratelimit.NewLoginLimiter(c)
	}
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		Staff:      staff,
		Limiter:    limiter,
		ErrLog:     uierrors.NewErrorLogger(logger),
		Clock:      c,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Redirect string `json:"redirect"`
}

// HandleLogin handles POST /login with a JSON or form-encoded body.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)).Decode(&req); err != nil {
			h.ErrLog.LogBadRequest(w, r, "login: decode body", err, "Invalid request body.")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			h.ErrLog.LogBadRequest(w, r, "login: parse form", err, "Invalid form data.")
			return
		}
		req.Email = r.PostFormValue("email")
		req.Password = r.PostFormValue("password")
	}
	req.Email = strings.TrimSpace(req.Email)

	if ok, reason := h.Limiter.Check(r, req.Email); !ok {
		h.Log.Warn("login rate limited", zap.String("ip", ratelimit.ClientIP(r)))
		uierrors.WriteJSON(w, http.StatusTooManyRequests, uierrors.Body{Error: reason})
		return
	}

	if req.Email == "" || req.Password == "" || !h.Staff.Verify(req.Email, req.Password) {
		h.Log.Info("login failed", zap.String("ip", ratelimit.ClientIP(r)))
		uierrors.Unauthorized(w, "Email or password is incorrect.")
		return
	}

	u := auth.SessionUser{Email: h.Staff.Email, Name: h.Staff.Name, SignedIn: h.Clock.Now().UTC()}
	if err := h.SessionMgr.SignIn(w, r, u); err != nil {
		h.ErrLog.LogServerError(w, r, "login: save session", err, "Could not sign in. Please try again.")
		return
	}
	h.Limiter.ResetEmail(req.Email)
	h.Log.Info("staff signed in", zap.String("email", u.Email))

	uierrors.WriteJSON(w, http.StatusOK, loginResponse{
		Email:    u.Email,
		Name:     u.Name,
		Redirect: navigation.SafeBackURL(r, navigation.AfterLogin),
	})
}
