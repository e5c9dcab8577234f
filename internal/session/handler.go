package session

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	dErrors "atelier/pkg/domain-errors"
	"atelier/pkg/platform/httputil"
	request "atelier/pkg/platform/middleware/request"
)

// Handler exposes the login endpoint. It is registered outside the session
// guard: it is the one route an unauthenticated operator can reach.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/login", h.HandleLogin)
}

type LoginRequest struct {
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return nil
}

type LoginResponse struct {
	Token     string    `json:"token"`
	Principal string    `json:"principal"`
	Device    string    `json:"device"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleLogin verifies the operator password and returns a session token.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sess, token, err := h.service.Issue(req.Password, r.UserAgent())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &LoginResponse{
		Token:     token,
		Principal: sess.Principal,
		Device:    sess.Device,
		ExpiresAt: sess.ExpiresAt,
	})
}
