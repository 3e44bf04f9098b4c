package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rankgate/internal/verification/models"
	id "rankgate/pkg/domain"
	dErrors "rankgate/pkg/domain-errors"
	"rankgate/pkg/platform/httputil"
	"rankgate/pkg/requestcontext"
)

// Service defines the Rank Card verification round trip.
type Service interface {
	Start(ctx context.Context, memberID id.MemberID) (*models.Session, error)
	Poll(ctx context.Context, verificationID id.VerificationID, memberID id.MemberID) (*models.Session, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/verifications", h.HandleStart)
	r.Get("/verifications/{verificationID}", h.HandlePoll)
}

// HandleStart begins a verification and returns the request URI the
// member's wallet should open.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	memberID, ok := requestcontext.MemberID(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	session, err := h.service.Start(ctx, memberID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to start verification",
			"request_id", requestID,
			"member_id", memberID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, session)
}

// HandlePoll advances a verification. Clients poll until the status is
// terminal.
func (h *Handler) HandlePoll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	memberID, ok := requestcontext.MemberID(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	verificationID, err := id.ParseVerificationID(chi.URLParam(r, "verificationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	session, err := h.service.Poll(ctx, verificationID, memberID)
	if err != nil {
		h.logger.WarnContext(ctx, "verification poll failed",
			"request_id", requestID,
			"verification_id", verificationID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}
