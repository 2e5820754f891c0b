package achievements

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mkovacevic/peakform/internal/telemetry/tracing"
	"github.com/mkovacevic/peakform/pkg"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type achievementsService interface {
	ListDefinitions(ctx context.Context) ([]*Definition, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*UserAchievement, error)
}

type Handler struct {
	service achievementsService
	ownerID uuid.UUID
}

func NewHandler(service achievementsService, ownerID uuid.UUID) *Handler {
	return &Handler{
		service: service,
		ownerID: ownerID,
	}
}

// AchievementView pairs a definition with the owner's progress towards it.
type AchievementView struct {
	Definition *Definition      `json:"definition"`
	Progress   *UserAchievement `json:"progress,omitempty"`
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.achievements.list")
	defer span.End()

	defs, err := handler.service.ListDefinitions(ctx)
	if err != nil {
		log.Errorf("list achievement definitions: %s", err)
		http.Error(w, "failed to get achievements", http.StatusInternalServerError)
		return
	}

	userAchievements, err := handler.service.ListForUser(ctx, handler.ownerID)
	if err != nil {
		log.Errorf("list user achievements: %s", err)
		http.Error(w, "failed to get achievements", http.StatusInternalServerError)
		return
	}

	byDefinition := make(map[uuid.UUID]*UserAchievement, len(userAchievements))
	for _, ua := range userAchievements {
		byDefinition[ua.DefinitionID] = ua
	}

	category := Category(r.URL.Query().Get("category"))
	if category != "" && !category.IsValid() {
		http.Error(w, "invalid category", http.StatusBadRequest)
		return
	}

	var views []AchievementView
	for _, def := range defs {
		if category != "" && def.Category != category {
			continue
		}
		views = append(views, AchievementView{
			Definition: def,
			Progress:   byDefinition[def.ID],
		})
	}

	viewsJson, err := json.Marshal(views)
	if err != nil {
		log.Errorf("marshal achievements: %s", err)
		http.Error(w, "failed to get achievements", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, viewsJson)
}
