package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"rankgate/internal/events"
	"rankgate/internal/forum/models"
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
	return &PostgresStore{db: db, publisher: publisher, tracer: otel.Tracer("rankgate/forum/store")}
}

type forumRow struct {
	ID           uuid.UUID `db:"id"`
	TLKChannelID string    `db:"tlk_channel_id"`
	RequiredRank string    `db:"required_rank"`
	Description  string    `db:"description"`
	Capacity     int       `db:"capacity"`
	CreatorID    uuid.UUID `db:"creator_id"`
	Status       string    `db:"status"`
	MemberCount  int       `db:"member_count"`
	Version      int       `db:"version"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

const forumColumns = `id, tlk_channel_id, required_rank, description, capacity, creator_id,
	status, member_count, version, created_at, updated_at`

func (s *PostgresStore) Save(ctx context.Context, f *models.Forum) error {
	if f.IsNew() {
		return s.Create(ctx, f)
	}
	res, err := s.CompareAndSwap(ctx, f, f.PersistedVersion())
	if err != nil {
		return err
	}
	return res.Err()
}

func (s *PostgresStore) Create(ctx context.Context, f *models.Forum) error {
	ctx, span := s.tracer.Start(ctx, "forum.create", trace.WithAttributes(attribute.String("forum.id", f.ID.String())))
	defer span.End()

	err := txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		_, err := sqlx.NamedExecContext(ctx, txcontext.Executor(ctx, s.db), `
			INSERT INTO forums (`+forumColumns+`)
			VALUES (:id, :tlk_channel_id, :required_rank, :description, :capacity, :creator_id,
				:status, :member_count, :version, :created_at, :updated_at)`, toRow(f))
		if err != nil {
			return postgres.Classify("insert forum", err)
		}
		return s.publisher.Publish(ctx, f.PendingEvents()...)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}
	f.MarkPersisted(f.Version)
	f.DrainEvents()
	return nil
}

func (s *PostgresStore) CompareAndSwap(ctx context.Context, f *models.Forum, expectedVersion int) (cas.Result, error) {
	ctx, span := s.tracer.Start(ctx, "forum.compare_and_swap", trace.WithAttributes(
		attribute.String("forum.id", f.ID.String()),
		attribute.Int("expected.version", expectedVersion),
	))
	defer span.End()

	result := cas.Swapped
	err := txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		var err error
		result, err = s.swap(ctx, f, expectedVersion)
		return err
	})
	if err != nil {
		tracing.RecordError(span, err)
		return cas.NotFound, err
	}
	span.SetAttributes(attribute.String("cas.result", result.String()))
	if result == cas.Swapped {
		f.MarkPersisted(f.Version)
		f.DrainEvents()
	}
	return result, nil
}

// AddMember inserts the membership row and swaps f in within one
// transaction. A member who already joined gets ErrAlreadyMember.
func (s *PostgresStore) AddMember(ctx context.Context, f *models.Forum, memberID id.MemberID) error {
	return s.swapWithMembership(ctx, "forum.add_member", f, memberID, func(ctx context.Context, exec sqlx.ExtContext) error {
		res, err := exec.ExecContext(ctx, `
			INSERT INTO forum_members (forum_id, member_id, joined_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (forum_id, member_id) DO NOTHING`,
			uuid.UUID(f.ID), uuid.UUID(memberID), f.UpdatedAt,
		)
		if err != nil {
			return postgres.Classify("insert forum member", err)
		}
		return requireRow(res, ErrAlreadyMember)
	})
}

// RemoveMember deletes the membership row and swaps f in within one
// transaction. A member who never joined gets ErrNotMember.
func (s *PostgresStore) RemoveMember(ctx context.Context, f *models.Forum, memberID id.MemberID) error {
	return s.swapWithMembership(ctx, "forum.remove_member", f, memberID, func(ctx context.Context, exec sqlx.ExtContext) error {
		res, err := exec.ExecContext(ctx, `DELETE FROM forum_members WHERE forum_id = $1 AND member_id = $2`,
			uuid.UUID(f.ID), uuid.UUID(memberID))
		if err != nil {
			return fmt.Errorf("%w: delete forum member: %w", sentinel.ErrStorage, err)
		}
		return requireRow(res, ErrNotMember)
	})
}

func (s *PostgresStore) IsMember(ctx context.Context, forumID id.ForumID, memberID id.MemberID) (bool, error) {
	var joined bool
	err := sqlx.GetContext(ctx, txcontext.Executor(ctx, s.db), &joined,
		`SELECT EXISTS(SELECT 1 FROM forum_members WHERE forum_id = $1 AND member_id = $2)`,
		uuid.UUID(forumID), uuid.UUID(memberID))
	if err != nil {
		return false, fmt.Errorf("%w: forum membership: %w", sentinel.ErrStorage, err)
	}
	return joined, nil
}

func (s *PostgresStore) swapWithMembership(
	ctx context.Context,
	spanName string,
	f *models.Forum,
	memberID id.MemberID,
	membership func(ctx context.Context, exec sqlx.ExtContext) error,
) error {
	ctx, span := s.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("forum.id", f.ID.String()),
		attribute.String("member.id", memberID.String()),
	))
	defer span.End()

	err := txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		result, err := s.swap(ctx, f, f.PersistedVersion())
		if err != nil {
			return err
		}
		if err := result.Err(); err != nil {
			return err
		}
		return membership(ctx, txcontext.Executor(ctx, s.db))
	})
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}
	f.MarkPersisted(f.Version)
	f.DrainEvents()
	return nil
}

// swap runs the conditional update and publishes pending events. It expects
// ctx to carry the surrounding transaction.
func (s *PostgresStore) swap(ctx context.Context, f *models.Forum, expectedVersion int) (cas.Result, error) {
	exec := txcontext.Executor(ctx, s.db)
	res, err := exec.ExecContext(ctx, `
		UPDATE forums
		SET description = $3, status = $4, member_count = $5, version = $6, updated_at = $7
		WHERE id = $1 AND version = $2`,
		uuid.UUID(f.ID), expectedVersion, f.Description, string(f.Status), f.MemberCount, f.Version, f.UpdatedAt,
	)
	if err != nil {
		return cas.NotFound, postgres.Classify("update forum", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return cas.NotFound, fmt.Errorf("%w: update forum rows affected: %w", sentinel.ErrStorage, err)
	}
	if affected == 0 {
		return postgres.ResolveMiss(ctx, exec, `SELECT version FROM forums WHERE id = $1`, uuid.UUID(f.ID))
	}
	return cas.Swapped, s.publisher.Publish(ctx, f.PendingEvents()...)
}

func requireRow(res sql.Result, missing error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: forum member rows affected: %w", sentinel.ErrStorage, err)
	}
	if affected == 0 {
		return missing
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, forumID id.ForumID) (*models.Forum, error) {
	return s.getOne(ctx, `SELECT `+forumColumns+` FROM forums WHERE id = $1`, uuid.UUID(forumID))
}

func (s *PostgresStore) FindByTLKChannelID(ctx context.Context, channelID string) (*models.Forum, error) {
	return s.getOne(ctx, `SELECT `+forumColumns+` FROM forums WHERE tlk_channel_id = $1`, channelID)
}

func (s *PostgresStore) ExistsByTLKChannelID(ctx context.Context, channelID string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, txcontext.Executor(ctx, s.db), &exists,
		`SELECT EXISTS(SELECT 1 FROM forums WHERE tlk_channel_id = $1)`, channelID)
	if err != nil {
		return false, fmt.Errorf("%w: forum channel exists: %w", sentinel.ErrStorage, err)
	}
	return exists, nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*models.Forum, error) {
	ranks := make([]string, len(filter.Ranks))
	for i, r := range filter.Ranks {
		ranks[i] = string(r)
	}
	var rows []forumRow
	err := sqlx.SelectContext(ctx, txcontext.Executor(ctx, s.db), &rows, `
		SELECT `+forumColumns+` FROM forums
		WHERE ($1 = '' OR status = $1)
		  AND (cardinality($2::text[]) = 0 OR required_rank = ANY($2::text[]))
		ORDER BY created_at, id`, string(filter.Status), pq.Array(ranks))
	if err != nil {
		return nil, fmt.Errorf("%w: list forums: %w", sentinel.ErrStorage, err)
	}
	out := make([]*models.Forum, 0, len(rows))
	for _, row := range rows {
		f, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status models.Status) ([]*models.Forum, error) {
	return s.List(ctx, Filter{Status: status})
}

func (s *PostgresStore) ListByRank(ctx context.Context, rank id.Rank) ([]*models.Forum, error) {
	return s.List(ctx, Filter{Ranks: []id.Rank{rank}})
}

func (s *PostgresStore) Delete(ctx context.Context, forumID id.ForumID) error {
	if _, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM forums WHERE id = $1`, uuid.UUID(forumID)); err != nil {
		return fmt.Errorf("%w: delete forum: %w", sentinel.ErrStorage, err)
	}
	return nil
}

func (s *PostgresStore) getOne(ctx context.Context, query string, arg any) (*models.Forum, error) {
	var row forumRow
	if err := sqlx.GetContext(ctx, txcontext.Executor(ctx, s.db), &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%w: find forum: %w", sentinel.ErrStorage, err)
	}
	return fromRow(row)
}

func toRow(f *models.Forum) forumRow {
	return forumRow{
		ID:           uuid.UUID(f.ID),
		TLKChannelID: f.TLKChannelID,
		RequiredRank: string(f.RequiredRank),
		Description:  f.Description,
		Capacity:     f.Capacity,
		CreatorID:    uuid.UUID(f.CreatorID),
		Status:       string(f.Status),
		MemberCount:  f.MemberCount,
		Version:      f.Version,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

func fromRow(row forumRow) (*models.Forum, error) {
	f := &models.Forum{
		ID:           id.ForumID(row.ID),
		TLKChannelID: row.TLKChannelID,
		RequiredRank: id.Rank(row.RequiredRank),
		Description:  row.Description,
		Capacity:     row.Capacity,
		CreatorID:    id.MemberID(row.CreatorID),
		Status:       models.Status(row.Status),
		MemberCount:  row.MemberCount,
		Version:      row.Version,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: forum %s: %w", sentinel.ErrStorage, row.ID, err)
	}
	f.MarkPersisted(f.Version)
	return f, nil
}
