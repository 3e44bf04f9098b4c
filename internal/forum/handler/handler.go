package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rankgate/internal/forum/models"
	"rankgate/internal/forum/service"
	id "rankgate/pkg/domain"
	dErrors "rankgate/pkg/domain-errors"
	"rankgate/pkg/platform/httputil"
	"rankgate/pkg/requestcontext"
)

// Service defines the forum operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, cmd service.CreateCommand) (*models.Forum, error)
	Get(ctx context.Context, forumID id.ForumID) (*models.Forum, error)
	List(ctx context.Context, status models.Status, rank id.Rank) ([]*models.Forum, error)
	Join(ctx context.Context, forumID id.ForumID, memberID id.MemberID) (*models.Forum, error)
	Leave(ctx context.Context, forumID id.ForumID, memberID id.MemberID) (*models.Forum, error)
	Archive(ctx context.Context, forumID id.ForumID, actorID id.MemberID) (*models.Forum, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts forum endpoints. Every route needs an authenticated member.
func (h *Handler) Register(r chi.Router) {
	r.Get("/forums", h.HandleList)
	r.Post("/forums", h.HandleCreate)
	r.Get("/forums/{forumID}", h.HandleGet)
	r.Post("/forums/{forumID}/join", h.membership(h.service.Join, "member joined forum"))
	r.Post("/forums/{forumID}/leave", h.membership(h.service.Leave, "member left forum"))
	r.Post("/forums/{forumID}/archive", h.membership(h.service.Archive, "forum archived"))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireMember(w, r); !ok {
		return
	}
	query := r.URL.Query()
	forums, err := h.service.List(ctx, models.Status(query.Get("status")), id.Rank(query.Get("rank")))
	if err != nil {
		h.writeFailure(ctx, w, "failed to list forums", err)
		return
	}
	if forums == nil {
		forums = []*models.Forum{}
	}
	httputil.WriteJSON(w, http.StatusOK, &ListResponse{Forums: forums})
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	memberID, ok := requireMember(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	forum, err := h.service.Create(ctx, service.CreateCommand{
		CreatorID:    memberID,
		RequiredRank: req.ParsedRank(),
		Capacity:     req.Capacity,
		Description:  req.Description,
	})
	if err != nil {
		h.writeFailure(ctx, w, "failed to create forum", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, forum)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireMember(w, r); !ok {
		return
	}
	forumID, err := id.ParseForumID(chi.URLParam(r, "forumID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	forum, err := h.service.Get(ctx, forumID)
	if err != nil {
		h.writeFailure(ctx, w, "failed to load forum", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, forum)
}

type membershipOp func(ctx context.Context, forumID id.ForumID, memberID id.MemberID) (*models.Forum, error)

// membership adapts the join, leave and archive operations, which share a
// shape: authenticated member, forum id from the path, forum in the response.
func (h *Handler) membership(op membershipOp, logMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		memberID, ok := requireMember(w, r)
		if !ok {
			return
		}
		forumID, err := id.ParseForumID(chi.URLParam(r, "forumID"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		forum, err := op(ctx, forumID, memberID)
		if err != nil {
			h.writeFailure(ctx, w, "forum request rejected", err)
			return
		}
		h.logger.DebugContext(ctx, logMsg,
			"request_id", requestcontext.RequestID(ctx),
			"forum_id", forumID.String(),
		)
		httputil.WriteJSON(w, http.StatusOK, forum)
	}
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
