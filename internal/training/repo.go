package training

import (
	"context"
	"time"

	"github.com/mkovacevic/peakform/internal/telemetry/tracing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

type ListParams struct {
	UserID uuid.UUID
	Type   SessionType
	Page   int
	Size   int
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, session Session) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.CreatedAt = time.Now()

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO training_session
				(id, user_id, type, duration_minutes, intensity, fasted_state, muscle_groups, notes, started_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`,
		session.ID, session.UserID, session.Type, session.DurationMinutes,
		session.Intensity, session.FastedState, session.MuscleGroups,
		session.Notes, session.StartedAt, session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("session.id", session.ID.String()))
	return &session, nil
}

func (r *Repo) List(ctx context.Context, params ListParams) (_ []*Session, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("page", params.Page))
	span.SetAttributes(attribute.Int("size", params.Size))

	total, err = r.Count(ctx, params.UserID, params.Type)
	if err != nil {
		return nil, 0, err
	}

	limit := params.Size
	offset := (params.Page - 1) * params.Size
	if offset >= total {
		return []*Session{}, total, nil
	}

	query := `
		SELECT id, user_id, type, duration_minutes, intensity, fasted_state, muscle_groups, notes, started_at, created_at
		FROM training_session
		WHERE user_id = $1`
	args := []interface{}{params.UserID}
	if params.Type != "" {
		query += ` AND type = $2
			ORDER BY started_at DESC LIMIT $3 OFFSET $4;`
		args = append(args, params.Type, limit, offset)
	} else {
		query += `
			ORDER BY started_at DESC LIMIT $2 OFFSET $3;`
		args = append(args, limit, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var s Session
		var notes *string
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.Type, &s.DurationMinutes,
			&s.Intensity, &s.FastedState, &s.MuscleGroups,
			&notes, &s.StartedAt, &s.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		if notes != nil {
			s.Notes = *notes
		}
		sessions = append(sessions, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

func (r *Repo) Count(ctx context.Context, userID uuid.UUID, sessionType SessionType) (count int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	query := `SELECT COUNT(*) FROM training_session WHERE user_id = $1`
	args := []interface{}{userID}
	if sessionType != "" {
		query += ` AND type = $2`
		args = append(args, sessionType)
	}

	err = r.db.QueryRow(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
