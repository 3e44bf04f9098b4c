package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"rankgate/internal/chat/models"
	"rankgate/internal/events"
	"rankgate/internal/platform/postgres"
	"rankgate/internal/platform/tracing"
	id "rankgate/pkg/domain"
	"rankgate/pkg/platform/cas"
	"rankgate/pkg/platform/sentinel"
	txcontext "rankgate/pkg/platform/tx"
)

type PostgresStore struct {
	db        *sqlx.DB
	publisher events.Publisher
	tracer    trace.Tracer
}

func NewPostgres(db *sqlx.DB, publisher events.Publisher) *PostgresStore {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &PostgresStore{db: db, publisher: publisher, tracer: otel.Tracer("rankgate/chat/store")}
}

type sessionRow struct {
	ID           uuid.UUID `db:"id"`
	TLKChannelID string    `db:"tlk_channel_id"`
	MemberAID    uuid.UUID `db:"member_a_id"`
	MemberBID    uuid.UUID `db:"member_b_id"`
	SessionType  string    `db:"session_type"`
	Status       string    `db:"status"`
	ExpiresAt    time.Time `db:"expires_at"`
	Version      int       `db:"version"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

const sessionColumns = `id, tlk_channel_id, member_a_id, member_b_id, session_type, status,
	expires_at, version, created_at, updated_at`

func (s *PostgresStore) Save(ctx context.Context, sess *models.PrivateChatSession) error {
	if sess.IsNew() {
		return s.Create(ctx, sess)
	}
	res, err := s.CompareAndSwap(ctx, sess, sess.PersistedVersion())
	if err != nil {
		return err
	}
	return res.Err()
}

func (s *PostgresStore) Create(ctx context.Context, sess *models.PrivateChatSession) error {
	ctx, span := s.tracer.Start(ctx, "chat_session.create", trace.WithAttributes(attribute.String("session.id", sess.ID.String())))
	defer span.End()

	err := txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		_, err := sqlx.NamedExecContext(ctx, txcontext.Executor(ctx, s.db), `
			INSERT INTO private_chat_sessions (`+sessionColumns+`)
			VALUES (:id, :tlk_channel_id, :member_a_id, :member_b_id, :session_type, :status,
				:expires_at, :version, :created_at, :updated_at)`, toRow(sess))
		if err != nil {
			if postgres.ViolatedConstraint(err) == activePairConstraint {
				return ErrActivePairExists
			}
			return postgres.Classify("insert chat session", err)
		}
		return s.publisher.Publish(ctx, sess.PendingEvents()...)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}
	sess.MarkPersisted(sess.Version)
	sess.DrainEvents()
	return nil
}

func (s *PostgresStore) CompareAndSwap(ctx context.Context, sess *models.PrivateChatSession, expectedVersion int) (cas.Result, error) {
	ctx, span := s.tracer.Start(ctx, "chat_session.compare_and_swap", trace.WithAttributes(
		attribute.String("session.id", sess.ID.String()),
		attribute.Int("expected.version", expectedVersion),
	))
	defer span.End()

	result := cas.Swapped
	err := txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		exec := txcontext.Executor(ctx, s.db)
		res, err := exec.ExecContext(ctx, `
			UPDATE private_chat_sessions
			SET status = $3, version = $4, updated_at = $5
			WHERE id = $1 AND version = $2`,
			uuid.UUID(sess.ID), expectedVersion, string(sess.Status), sess.Version, sess.UpdatedAt,
		)
		if err != nil {
			return postgres.Classify("update chat session", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%w: update chat session rows affected: %w", sentinel.ErrStorage, err)
		}
		if affected == 0 {
			result, err = postgres.ResolveMiss(ctx, exec, `SELECT version FROM private_chat_sessions WHERE id = $1`, uuid.UUID(sess.ID))
			return err
		}
		return s.publisher.Publish(ctx, sess.PendingEvents()...)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return cas.NotFound, err
	}
	span.SetAttributes(attribute.String("cas.result", result.String()))
	if result == cas.Swapped {
		sess.MarkPersisted(sess.Version)
		sess.DrainEvents()
	}
	return result, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, sessionID id.ChatSessionID) (*models.PrivateChatSession, error) {
	return s.getOne(ctx, `SELECT `+sessionColumns+` FROM private_chat_sessions WHERE id = $1`, uuid.UUID(sessionID))
}

func (s *PostgresStore) FindByTLKChannelID(ctx context.Context, channelID string) (*models.PrivateChatSession, error) {
	return s.getOne(ctx, `SELECT `+sessionColumns+` FROM private_chat_sessions WHERE tlk_channel_id = $1`, channelID)
}

func (s *PostgresStore) ExistsByTLKChannelID(ctx context.Context, channelID string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, txcontext.Executor(ctx, s.db), &exists,
		`SELECT EXISTS(SELECT 1 FROM private_chat_sessions WHERE tlk_channel_id = $1)`, channelID)
	if err != nil {
		return false, fmt.Errorf("%w: chat session channel exists: %w", sentinel.ErrStorage, err)
	}
	return exists, nil
}

func (s *PostgresStore) FindActiveBetween(ctx context.Context, a, b id.MemberID) (*models.PrivateChatSession, error) {
	return s.getOne(ctx, `
		SELECT `+sessionColumns+` FROM private_chat_sessions
		WHERE status = 'ACTIVE'
		  AND ((member_a_id = $1 AND member_b_id = $2) OR (member_a_id = $2 AND member_b_id = $1))
		ORDER BY expires_at
		LIMIT 1`, uuid.UUID(a), uuid.UUID(b))
}

func (s *PostgresStore) ListByMember(ctx context.Context, memberID id.MemberID) ([]*models.PrivateChatSession, error) {
	return s.list(ctx, `
		SELECT `+sessionColumns+` FROM private_chat_sessions
		WHERE member_a_id = $1 OR member_b_id = $1
		ORDER BY expires_at, id`, uuid.UUID(memberID))
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status models.Status) ([]*models.PrivateChatSession, error) {
	return s.list(ctx, `SELECT `+sessionColumns+` FROM private_chat_sessions WHERE status = $1 ORDER BY expires_at, id`, string(status))
}

func (s *PostgresStore) ListExpiredActive(ctx context.Context, cutoff time.Time) ([]*models.PrivateChatSession, error) {
	ctx, span := s.tracer.Start(ctx, "chat_session.list_expired_active")
	defer span.End()
	out, err := s.list(ctx, `
		SELECT `+sessionColumns+` FROM private_chat_sessions
		WHERE status = 'ACTIVE' AND expires_at <= $1
		ORDER BY expires_at, id`, cutoff)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("session.count", len(out)))
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, sessionID id.ChatSessionID) error {
	if _, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM private_chat_sessions WHERE id = $1`, uuid.UUID(sessionID)); err != nil {
		return fmt.Errorf("%w: delete chat session: %w", sentinel.ErrStorage, err)
	}
	return nil
}

func (s *PostgresStore) getOne(ctx context.Context, query string, args ...any) (*models.PrivateChatSession, error) {
	var row sessionRow
	if err := sqlx.GetContext(ctx, txcontext.Executor(ctx, s.db), &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%w: find chat session: %w", sentinel.ErrStorage, err)
	}
	return fromRow(row)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.PrivateChatSession, error) {
	var rows []sessionRow
	if err := sqlx.SelectContext(ctx, txcontext.Executor(ctx, s.db), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%w: list chat sessions: %w", sentinel.ErrStorage, err)
	}
	out := make([]*models.PrivateChatSession, 0, len(rows))
	for _, row := range rows {
		sess, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}

func toRow(sess *models.PrivateChatSession) sessionRow {
	return sessionRow{
		ID:           uuid.UUID(sess.ID),
		TLKChannelID: sess.TLKChannelID,
		MemberAID:    uuid.UUID(sess.MemberAID),
		MemberBID:    uuid.UUID(sess.MemberBID),
		SessionType:  string(sess.Type),
		Status:       string(sess.Status),
		ExpiresAt:    sess.ExpiresAt,
		Version:      sess.Version,
		CreatedAt:    sess.CreatedAt,
		UpdatedAt:    sess.UpdatedAt,
	}
}

func fromRow(row sessionRow) (*models.PrivateChatSession, error) {
	sess := &models.PrivateChatSession{
		ID:           id.ChatSessionID(row.ID),
		TLKChannelID: row.TLKChannelID,
		MemberAID:    id.MemberID(row.MemberAID),
		MemberBID:    id.MemberID(row.MemberBID),
		Type:         models.SessionType(row.SessionType),
		Status:       models.Status(row.Status),
		ExpiresAt:    row.ExpiresAt,
		Version:      row.Version,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if err := sess.Validate(); err != nil {
		return nil, fmt.Errorf("%w: chat session %s: %w", sentinel.ErrStorage, row.ID, err)
	}
	sess.MarkPersisted(sess.Version)
	return sess, nil
}
