package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	forummodels "rankgate/internal/forum/models"
	"rankgate/internal/member/models"
	id "rankgate/pkg/domain"
	dErrors "rankgate/pkg/domain-errors"
	"rankgate/pkg/platform/httputil"
	"rankgate/pkg/requestcontext"
)

// Service defines the member operations exposed over HTTP.
type Service interface {
	Login(ctx context.Context, idToken string) (*models.MemberProfile, bool, error)
	Get(ctx context.Context, memberID id.MemberID) (*models.MemberProfile, error)
	UpdateProfile(ctx context.Context, memberID id.MemberID, gender, interests string) (*models.MemberProfile, error)
	AccessibleForums(ctx context.Context, memberID id.MemberID) ([]*forummodels.Forum, error)
}

// TokenIssuer mints API session tokens after login.
type TokenIssuer interface {
	Issue(memberID id.MemberID) (string, time.Time, error)
}

type Handler struct {
	service Service
	tokens  TokenIssuer
	logger  *slog.Logger
}

func New(service Service, tokens TokenIssuer, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		tokens:  tokens,
		logger:  logger,
	}
}

// RegisterPublic mounts endpoints that run before authentication.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
}

// Register mounts endpoints that need an authenticated member.
func (h *Handler) Register(r chi.Router) {
	r.Get("/members/me", h.HandleGetMe)
	r.Patch("/members/me/profile", h.HandleUpdateProfile)
	r.Get("/members/me/forums", h.HandleAccessibleForums)
}

// HandleLogin exchanges an identity-provider ID token for a session token.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	member, created, err := h.service.Login(ctx, req.IDToken)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(member.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue session token",
			"request_id", requestID,
			"member_id", member.ID.String(),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token"))
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, &LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		Member:      member,
	})
}

func (h *Handler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	memberID, ok := requireMember(w, r)
	if !ok {
		return
	}
	member, err := h.service.Get(ctx, memberID)
	if err != nil {
		h.writeFailure(ctx, w, "failed to load member", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, member)
}

func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	memberID, ok := requireMember(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateProfileRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	member, err := h.service.UpdateProfile(ctx, memberID, req.Gender, req.Interests)
	if err != nil {
		h.writeFailure(ctx, w, "failed to update profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, member)
}

func (h *Handler) HandleAccessibleForums(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	memberID, ok := requireMember(w, r)
	if !ok {
		return
	}
	forums, err := h.service.AccessibleForums(ctx, memberID)
	if err != nil {
		h.writeFailure(ctx, w, "failed to list accessible forums", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &ForumListResponse{Forums: forums})
}

func (h *Handler) writeFailure(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	level := slog.LevelWarn
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}

func requireMember(w http.ResponseWriter, r *http.Request) (id.MemberID, bool) {
	memberID, ok := requestcontext.MemberID(r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.MemberID{}, false
	}
	return memberID, true
}
