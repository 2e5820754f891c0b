package goals

import (
	"context"

	"github.com/mkovacevic/peakform/internal/telemetry/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

func (r *Repo) ListTemplates(ctx context.Context) (_ []*Template, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.goals.listtemplates")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx, `
			SELECT id, title, description, specific, measurable, achievable, relevant,
				category, is_public, usage_count, template_data, created_at
			FROM goal_template
			WHERE is_public = TRUE
			ORDER BY usage_count DESC, title;
		`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*Template
	for rows.Next() {
		var t Template
		var description *string
		if err := rows.Scan(
			&t.ID, &t.Title, &description,
			&t.Specific, &t.Measurable, &t.Achievable, &t.Relevant,
			&t.Category, &t.IsPublic, &t.UsageCount, &t.TemplateData, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		if description != nil {
			t.Description = *description
		}
		templates = append(templates, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("templates.count", len(templates)))
	return templates, nil
}

func (r *Repo) GetTemplate(ctx context.Context, id uuid.UUID) (_ *Template, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.goals.gettemplate")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("template.id", id.String()))

	t := &Template{}
	var description *string
	err = r.db.
		QueryRow(ctx, `
			SELECT id, title, description, specific, measurable, achievable, relevant,
				category, is_public, usage_count, template_data, created_at
			FROM goal_template
			WHERE id = $1
		`, id).
		Scan(&t.ID, &t.Title, &description,
			&t.Specific, &t.Measurable, &t.Achievable, &t.Relevant,
			&t.Category, &t.IsPublic, &t.UsageCount, &t.TemplateData, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if description != nil {
		t.Description = *description
	}
	return t, nil
}

// BumpTemplateUsage increments the template's usage counter.
func (r *Repo) BumpTemplateUsage(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.goals.bumptemplateusage")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("template.id", id.String()))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE goal_template SET usage_count = usage_count + 1 WHERE id = $1;`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}
