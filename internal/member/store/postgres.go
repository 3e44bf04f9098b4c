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

	"rankgate/internal/events"
	"rankgate/internal/member/models"
	"rankgate/internal/platform/postgres"
	"rankgate/internal/platform/tracing"
	id "rankgate/pkg/domain"
	"rankgate/pkg/platform/cas"
	"rankgate/pkg/platform/sentinel"
	txcontext "rankgate/pkg/platform/tx"
)

// FieldCipher protects gender and interests at rest.
type FieldCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

type plainCipher struct{}

func (plainCipher) Encrypt(s string) (string, error) { return s, nil }
func (plainCipher) Decrypt(s string) (string, error) { return s, nil }

// PostgresStore persists member profiles in PostgreSQL. The row write and the
// outbox append share one transaction.
type PostgresStore struct {
	db        *sqlx.DB
	publisher events.Publisher
	cipher    FieldCipher
	tracer    trace.Tracer
}

type PostgresOption func(*PostgresStore)

func WithCipher(c FieldCipher) PostgresOption {
	return func(s *PostgresStore) { s.cipher = c }
}

func NewPostgres(db *sqlx.DB, publisher events.Publisher, opts ...PostgresOption) *PostgresStore {
	if publisher == nil {
		publisher = events.Discard{}
	}
	s := &PostgresStore{
		db:        db,
		publisher: publisher,
		cipher:    plainCipher{},
		tracer:    otel.Tracer("rankgate/member/store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type memberRow struct {
	ID            uuid.UUID      `db:"id"`
	OIDCSubjectID string         `db:"oidc_subject_id"`
	Status        string         `db:"status"`
	Nickname      string         `db:"nickname"`
	Gender        string         `db:"gender"`
	Interests     string         `db:"interests"`
	LinkedVCDID   sql.NullString `db:"linked_vc_did"`
	DerivedRank   sql.NullString `db:"derived_rank"`
	Version       int            `db:"version"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

const memberColumns = `id, oidc_subject_id, status, nickname, gender, interests,
	linked_vc_did, derived_rank, version, created_at, updated_at`

func (s *PostgresStore) Save(ctx context.Context, m *models.MemberProfile) error {
	if m.IsNew() {
		return s.Create(ctx, m)
	}
	res, err := s.CompareAndSwap(ctx, m, m.PersistedVersion())
	if err != nil {
		return err
	}
	return res.Err()
}

func (s *PostgresStore) Create(ctx context.Context, m *models.MemberProfile) error {
	ctx, span := s.startSpan(ctx, "member.create", m.ID)
	defer span.End()

	row, err := s.toRow(m)
	if err != nil {
		return err
	}
	err = txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		_, err := sqlx.NamedExecContext(ctx, txcontext.Executor(ctx, s.db), `
			INSERT INTO member_profiles (`+memberColumns+`)
			VALUES (:id, :oidc_subject_id, :status, :nickname, :gender, :interests,
				:linked_vc_did, :derived_rank, :version, :created_at, :updated_at)`, row)
		if err != nil {
			return postgres.Classify("insert member", err)
		}
		return s.publisher.Publish(ctx, m.PendingEvents()...)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}
	m.MarkPersisted(m.Version)
	m.DrainEvents()
	return nil
}

func (s *PostgresStore) CompareAndSwap(ctx context.Context, m *models.MemberProfile, expectedVersion int) (cas.Result, error) {
	ctx, span := s.startSpan(ctx, "member.compare_and_swap", m.ID)
	span.SetAttributes(attribute.Int("expected.version", expectedVersion))
	defer span.End()

	row, err := s.toRow(m)
	if err != nil {
		return cas.NotFound, err
	}
	result := cas.Swapped
	err = txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		exec := txcontext.Executor(ctx, s.db)
		res, err := exec.ExecContext(ctx, `
			UPDATE member_profiles
			SET status = $3, nickname = $4, gender = $5, interests = $6,
				linked_vc_did = $7, derived_rank = $8, version = $9, updated_at = $10
			WHERE id = $1 AND version = $2`,
			row.ID, expectedVersion, row.Status, row.Nickname, row.Gender, row.Interests,
			row.LinkedVCDID, row.DerivedRank, row.Version, row.UpdatedAt,
		)
		if err != nil {
			return postgres.Classify("update member", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%w: update member rows affected: %w", sentinel.ErrStorage, err)
		}
		if affected == 0 {
			result, err = postgres.ResolveMiss(ctx, exec, `SELECT version FROM member_profiles WHERE id = $1`, row.ID)
			return err
		}
		return s.publisher.Publish(ctx, m.PendingEvents()...)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return cas.NotFound, err
	}
	span.SetAttributes(attribute.String("cas.result", result.String()))
	if result == cas.Swapped {
		m.MarkPersisted(m.Version)
		m.DrainEvents()
	}
	return result, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, memberID id.MemberID) (*models.MemberProfile, error) {
	return s.getOne(ctx, `SELECT `+memberColumns+` FROM member_profiles WHERE id = $1`, uuid.UUID(memberID))
}

func (s *PostgresStore) FindByOIDCSubjectID(ctx context.Context, subject string) (*models.MemberProfile, error) {
	return s.getOne(ctx, `SELECT `+memberColumns+` FROM member_profiles WHERE oidc_subject_id = $1`, subject)
}

func (s *PostgresStore) FindByLinkedVCDID(ctx context.Context, did string) (*models.MemberProfile, error) {
	return s.getOne(ctx, `SELECT `+memberColumns+` FROM member_profiles WHERE linked_vc_did = $1`, did)
}

func (s *PostgresStore) ExistsByLinkedVCDID(ctx context.Context, did string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM member_profiles WHERE linked_vc_did = $1)`, did)
}

func (s *PostgresStore) ExistsByOIDCSubjectID(ctx context.Context, subject string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM member_profiles WHERE oidc_subject_id = $1)`, subject)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status models.Status) ([]*models.MemberProfile, error) {
	var rows []memberRow
	err := sqlx.SelectContext(ctx, txcontext.Executor(ctx, s.db), &rows,
		`SELECT `+memberColumns+` FROM member_profiles WHERE status = $1 ORDER BY created_at`, string(status))
	if err != nil {
		return nil, fmt.Errorf("%w: list members by status: %w", sentinel.ErrStorage, err)
	}
	out := make([]*models.MemberProfile, 0, len(rows))
	for _, row := range rows {
		m, err := s.fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, memberID id.MemberID) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM member_profiles WHERE id = $1`, uuid.UUID(memberID))
	if err != nil {
		return fmt.Errorf("%w: delete member: %w", sentinel.ErrStorage, err)
	}
	return nil
}

func (s *PostgresStore) getOne(ctx context.Context, query string, arg any) (*models.MemberProfile, error) {
	var row memberRow
	if err := sqlx.GetContext(ctx, txcontext.Executor(ctx, s.db), &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%w: find member: %w", sentinel.ErrStorage, err)
	}
	return s.fromRow(row)
}

func (s *PostgresStore) exists(ctx context.Context, query string, arg any) (bool, error) {
	var found bool
	if err := sqlx.GetContext(ctx, txcontext.Executor(ctx, s.db), &found, query, arg); err != nil {
		return false, fmt.Errorf("%w: member exists: %w", sentinel.ErrStorage, err)
	}
	return found, nil
}

func (s *PostgresStore) toRow(m *models.MemberProfile) (memberRow, error) {
	gender, err := s.cipher.Encrypt(m.Gender)
	if err != nil {
		return memberRow{}, fmt.Errorf("%w: encrypt gender: %w", sentinel.ErrStorage, err)
	}
	interests, err := s.cipher.Encrypt(m.Interests)
	if err != nil {
		return memberRow{}, fmt.Errorf("%w: encrypt interests: %w", sentinel.ErrStorage, err)
	}
	return memberRow{
		ID:            uuid.UUID(m.ID),
		OIDCSubjectID: m.OIDCSubjectID,
		Status:        string(m.Status),
		Nickname:      m.Nickname,
		Gender:        gender,
		Interests:     interests,
		LinkedVCDID:   postgres.NullString(m.LinkedVCDID),
		DerivedRank:   postgres.NullString(string(m.DerivedRank)),
		Version:       m.Version,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}, nil
}

func (s *PostgresStore) fromRow(row memberRow) (*models.MemberProfile, error) {
	gender, err := s.cipher.Decrypt(row.Gender)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt gender: %w", sentinel.ErrStorage, err)
	}
	interests, err := s.cipher.Decrypt(row.Interests)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt interests: %w", sentinel.ErrStorage, err)
	}
	m := &models.MemberProfile{
		ID:            id.MemberID(row.ID),
		OIDCSubjectID: row.OIDCSubjectID,
		Status:        models.Status(row.Status),
		Nickname:      row.Nickname,
		Gender:        gender,
		Interests:     interests,
		LinkedVCDID:   row.LinkedVCDID.String,
		DerivedRank:   id.Rank(row.DerivedRank.String),
		Version:       row.Version,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: member %s: %w", sentinel.ErrStorage, row.ID, err)
	}
	m.MarkPersisted(m.Version)
	return m, nil
}

func (s *PostgresStore) startSpan(ctx context.Context, name string, memberID id.MemberID) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("member.id", memberID.String())))
}
