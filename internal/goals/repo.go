package goals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkovacevic/peakform/internal/telemetry/tracing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrGoalNotFound     = errors.New("goal not found")
	ErrTemplateNotFound = errors.New("goal template not found")
	// ErrVersionConflict - the goal was modified since it was read
	ErrVersionConflict = errors.New("goal version conflict")
	// ErrDuplicateEvent - a progress event with the same id was already applied
	ErrDuplicateEvent = errors.New("duplicate progress event")
)

const pgUniqueViolationCode = "23505"

type ListParams struct {
	UserID uuid.UUID
	Status Status
}

type SummaryCounts struct {
	Total         int
	Completed     int
	MaxBestStreak int
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

const goalColumns = `
	id, user_id, title, description, specific, measurable, achievable, relevant,
	category, priority, status,
	target_value, current_value, unit, progress_percentage,
	is_habit, habit_frequency, current_streak, best_streak, last_checkin,
	start_date, target_date, completion_date, motivation_note,
	version, created_at, updated_at`

func (r *Repo) Create(ctx context.Context, goal Goal) (_ *Goal, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.goals.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if goal.ID == uuid.Nil {
		goal.ID = uuid.New()
	}
	now := time.Now()
	goal.Version = 1
	goal.CreatedAt = now
	goal.UpdatedAt = now
	goal.RecalcProgress()

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO goal
				(id, user_id, title, description, specific, measurable, achievable, relevant,
				category, priority, status,
				target_value, current_value, unit, progress_percentage,
				is_habit, habit_frequency, current_streak, best_streak, last_checkin,
				start_date, target_date, completion_date, motivation_note,
				version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
				$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23,
				$24, $25, $26, $27);`,
		goal.ID, goal.UserID, goal.Title, goal.Description,
		goal.Specific, goal.Measurable, goal.Achievable, goal.Relevant,
		goal.Category, goal.Priority, goal.Status,
		goal.TargetValue, goal.CurrentValue, goal.Unit, goal.ProgressPercentage,
		goal.IsHabit, nullableFrequency(goal.HabitFrequency), goal.CurrentStreak, goal.BestStreak, goal.LastCheckin,
		goal.StartDate, goal.TargetDate, goal.CompletionDate, goal.MotivationNote,
		goal.Version, goal.CreatedAt, goal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("goal.id", goal.ID.String()))
	return &goal, nil
}

func (r *Repo) Get(ctx context.Context, id uuid.UUID) (_ *Goal, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.goals.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("goal.id", id.String()))

	rows, err := r.db.Query(
		ctx,
		`SELECT `+goalColumns+` FROM goal WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}

	goals, err := rows2goals(rows)
	if err != nil {
		return nil, err
	}
	if len(goals) == 0 {
		return nil, ErrGoalNotFound
	}
	return goals[0], nil
}

func (r *Repo) List(ctx context.Context, params ListParams) (_ []*Goal, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.goals.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	query := `SELECT ` + goalColumns + ` FROM goal WHERE user_id = $1`
	args := []interface{}{params.UserID}
	if params.Status != "" {
		query += ` AND status = $2`
		args = append(args, params.Status)
	}
	query += ` ORDER BY created_at DESC;`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	goals, err := rows2goals(rows)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("goals.count", len(goals)))
	return goals, nil
}

func (r *Repo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.goals.updatestatus")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("goal.id", id.String()))
	span.SetAttributes(attribute.String("goal.status", string(status)))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE goal SET status = $1, version = version + 1, updated_at = $2 WHERE id = $3;`,
		status, time.Now(), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrGoalNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.goals.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("goal.id", id.String()))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM goal WHERE id = $1;`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrGoalNotFound
	}
	return nil
}

// ApplyUpdate persists the outcome of a progress event atomically: the event
// row and the recalculated goal land in the same transaction. The goal row is
// updated only if its version still matches expectedVersion, otherwise
// ErrVersionConflict is returned and nothing is written. A progress event id
// seen before trips the unique constraint and maps to ErrDuplicateEvent.
func (r *Repo) ApplyUpdate(ctx context.Context, goal *Goal, expectedVersion int, event ProgressEvent) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.goals.applyupdate")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("goal.id", goal.ID.String()))
	span.SetAttributes(attribute.String("event.id", event.ID.String()))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	_, err = tx.Exec(
		ctx,
		`INSERT INTO progress_event (id, goal_id, value, note, source, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6);`,
		event.ID, event.GoalID, event.Value, event.Note, event.Source, event.Timestamp,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			return ErrDuplicateEvent
		}
		return err
	}

	goal.UpdatedAt = time.Now()
	tag, err := tx.Exec(
		ctx,
		`UPDATE goal SET
				status = $1, current_value = $2, progress_percentage = $3,
				current_streak = $4, best_streak = $5, last_checkin = $6,
				completion_date = $7, version = version + 1, updated_at = $8
			WHERE id = $9 AND version = $10;`,
		goal.Status, goal.CurrentValue, goal.ProgressPercentage,
		goal.CurrentStreak, goal.BestStreak, goal.LastCheckin,
		goal.CompletionDate, goal.UpdatedAt,
		goal.ID, expectedVersion,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}

	goal.Version = expectedVersion + 1
	return nil
}

func (r *Repo) Counts(ctx context.Context, userID uuid.UUID) (_ *SummaryCounts, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.goals.counts")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	counts := &SummaryCounts{}
	err = r.db.
		QueryRow(ctx, `
			SELECT
				COUNT(*),
				COUNT(*) FILTER (WHERE status = 'completed'),
				COALESCE(MAX(best_streak), 0)
			FROM goal
			WHERE user_id = $1
		`, userID).
		Scan(&counts.Total, &counts.Completed, &counts.MaxBestStreak)
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *Repo) CountCompleted(ctx context.Context, userID uuid.UUID) (count int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.goals.countcompleted")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = r.db.
		QueryRow(ctx,
			`SELECT COUNT(*) FROM goal WHERE user_id = $1 AND status = 'completed';`,
			userID,
		).
		Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func nullableFrequency(f HabitFrequency) *string {
	if f == "" {
		return nil
	}
	s := string(f)
	return &s
}

func rows2goals(rows pgx.Rows) ([]*Goal, error) {
	defer rows.Close()

	var goals []*Goal
	for rows.Next() {
		var g Goal
		var description, unit, motivationNote *string
		var habitFrequency *string
		if err := rows.Scan(
			&g.ID, &g.UserID, &g.Title, &description,
			&g.Specific, &g.Measurable, &g.Achievable, &g.Relevant,
			&g.Category, &g.Priority, &g.Status,
			&g.TargetValue, &g.CurrentValue, &unit, &g.ProgressPercentage,
			&g.IsHabit, &habitFrequency, &g.CurrentStreak, &g.BestStreak, &g.LastCheckin,
			&g.StartDate, &g.TargetDate, &g.CompletionDate, &motivationNote,
			&g.Version, &g.CreatedAt, &g.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		if description != nil {
			g.Description = *description
		}
		if unit != nil {
			g.Unit = *unit
		}
		if motivationNote != nil {
			g.MotivationNote = *motivationNote
		}
		if habitFrequency != nil {
			g.HabitFrequency = HabitFrequency(*habitFrequency)
		}
		goals = append(goals, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return goals, nil
}
