package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rankgate/internal/chat/models"
	"rankgate/internal/chat/service"
	id "rankgate/pkg/domain"
	dErrors "rankgate/pkg/domain-errors"
	"rankgate/pkg/platform/httputil"
	"rankgate/pkg/requestcontext"
)

// Service defines the private chat operations exposed over HTTP.
type Service interface {
	Open(ctx context.Context, cmd service.OpenCommand) (*models.PrivateChatSession, error)
	Get(ctx context.Context, sessionID id.ChatSessionID, viewerID id.MemberID) (*models.PrivateChatSession, error)
	Terminate(ctx context.Context, sessionID id.ChatSessionID, actorID id.MemberID) (*models.PrivateChatSession, error)
	ListForMember(ctx context.Context, memberID id.MemberID) ([]*models.PrivateChatSession, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/chats", h.HandleList)
	r.Post("/chats", h.HandleOpen)
	r.Get("/chats/{sessionID}", h.HandleGet)
	r.Post("/chats/{sessionID}/terminate", h.HandleTerminate)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	memberID, ok := requireMember(w, r)
	if !ok {
		return
	}
	sessions, err := h.service.ListForMember(ctx, memberID)
	if err != nil {
		h.writeFailure(ctx, w, "failed to list chat sessions", err)
		return
	}
	if sessions == nil {
		sessions = []*models.PrivateChatSession{}
	}
	httputil.WriteJSON(w, http.StatusOK, &ListResponse{Sessions: sessions})
}

// HandleOpen starts a chat between the caller and a peer.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	memberID, ok := requireMember(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[OpenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sess, err := h.service.Open(ctx, service.OpenCommand{
		MemberA: memberID,
		MemberB: req.ParsedPeerID(),
		Type:    req.ParsedType(),
	})
	if err != nil {
		h.writeFailure(ctx, w, "failed to open chat session", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sess)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	memberID, ok := requireMember(w, r)
	if !ok {
		return
	}
	sessionID, err := id.ParseChatSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sess, err := h.service.Get(ctx, sessionID, memberID)
	if err != nil {
		h.writeFailure(ctx, w, "failed to load chat session", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess)
}

func (h *Handler) HandleTerminate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	memberID, ok := requireMember(w, r)
	if !ok {
		return
	}
	sessionID, err := id.ParseChatSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sess, err := h.service.Terminate(ctx, sessionID, memberID)
	if err != nil {
		h.writeFailure(ctx, w, "failed to terminate chat session", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess)
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
