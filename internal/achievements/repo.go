package achievements

import (
	"context"
	"errors"
	"time"

	"github.com/mkovacevic/peakform/internal/telemetry/tracing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrAchievementNotFound = errors.New("achievement not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// ListDefinitions returns the achievement catalog, optionally narrowed to one
// category. An empty category means all of them.
func (r *Repo) ListDefinitions(ctx context.Context, category Category, onlyActive bool) (_ []*Definition, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.achievements.listdefinitions")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("category", string(category)))

	query := `
		SELECT id, title, description, icon, category, metric, max_progress, points, active
		FROM achievement_definition
		WHERE TRUE`
	var args []interface{}
	if category != "" {
		query += ` AND category = $1`
		args = append(args, category)
	}
	if onlyActive {
		query += ` AND active = TRUE`
	}
	query += ` ORDER BY category, points;`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []*Definition
	for rows.Next() {
		var d Definition
		var description, icon *string
		if err := rows.Scan(
			&d.ID, &d.Title, &description, &icon,
			&d.Category, &d.Metric, &d.MaxProgress, &d.Points, &d.Active,
		); err != nil {
			return nil, err
		}
		if description != nil {
			d.Description = *description
		}
		if icon != nil {
			d.Icon = *icon
		}
		defs = append(defs, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("definitions.count", len(defs)))
	return defs, nil
}

// Advance bumps the user's progress towards a definition, monotonically: the
// stored progress can only grow, a smaller incoming value leaves the row as
// is. Earn status flips once, the earned date is never overwritten.
func (r *Repo) Advance(
	ctx context.Context,
	userID, definitionID uuid.UUID,
	progress, maxProgress int,
	at time.Time,
) (_ *UserAchievement, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.achievements.advance")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("definition.id", definitionID.String()))
	span.SetAttributes(attribute.Int("progress", progress))

	ua := &UserAchievement{}
	err = r.db.
		QueryRow(ctx, `
			INSERT INTO user_achievement (id, user_id, definition_id, progress, earned, earned_date)
			VALUES ($1, $2, $3, LEAST($4, $5), $4 >= $5, CASE WHEN $4 >= $5 THEN $6 END)
			ON CONFLICT (user_id, definition_id) DO UPDATE SET
				progress = LEAST(GREATEST(user_achievement.progress, $4), $5),
				earned = user_achievement.earned OR $4 >= $5,
				earned_date = COALESCE(user_achievement.earned_date, CASE WHEN $4 >= $5 THEN $6 END)
			RETURNING id, user_id, definition_id, progress, earned, earned_date
		`, uuid.New(), userID, definitionID, progress, maxProgress, at).
		Scan(&ua.ID, &ua.UserID, &ua.DefinitionID, &ua.Progress, &ua.Earned, &ua.EarnedDate)
	if err != nil {
		return nil, err
	}
	return ua, nil
}

func (r *Repo) ListForUser(ctx context.Context, userID uuid.UUID) (_ []*UserAchievement, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.achievements.listforuser")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx, `
			SELECT id, user_id, definition_id, progress, earned, earned_date
			FROM user_achievement
			WHERE user_id = $1;
		`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uas []*UserAchievement
	for rows.Next() {
		var ua UserAchievement
		if err := rows.Scan(
			&ua.ID, &ua.UserID, &ua.DefinitionID, &ua.Progress, &ua.Earned, &ua.EarnedDate,
		); err != nil {
			return nil, err
		}
		uas = append(uas, &ua)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("achievements.count", len(uas)))
	return uas, nil
}

// PointsTotal sums the points of all achievements the user has earned.
func (r *Repo) PointsTotal(ctx context.Context, userID uuid.UUID) (points int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.achievements.pointstotal")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = r.db.
		QueryRow(ctx, `
			SELECT COALESCE(SUM(d.points), 0)
			FROM user_achievement ua
			JOIN achievement_definition d ON d.id = ua.definition_id
			WHERE ua.user_id = $1 AND ua.earned = TRUE;
		`, userID).
		Scan(&points)
	if err != nil {
		return 0, err
	}
	return points, nil
}
