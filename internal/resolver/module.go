package resolver

import (
	"NYCU-SDC/job-dispatch-service/internal/domain"
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ModuleLookup translates sets and service templates to module ids
type ModuleLookup struct {
	finder domain.ModuleRelationFinder
	logger *zap.Logger
}

// NewModuleLookup creates a new module lookup
func NewModuleLookup(finder domain.ModuleRelationFinder, logger *zap.Logger) *ModuleLookup {
	return &ModuleLookup{
		finder: finder,
		logger: logger,
	}
}

// ModuleIDsByName returns the ids of modules created from the given service
// templates inside the given sets
func (l *ModuleLookup) ModuleIDsByName(ctx context.Context, bizID int64, username string, sets []domain.Set, templates []domain.ServiceTemplate) ([]int64, error) {
	setIDs := make([]int64, 0, len(sets))
	for _, set := range sets {
		setIDs = append(setIDs, set.ID)
	}
	templateIDs := make([]int64, 0, len(templates))
	for _, template := range templates {
		templateIDs = append(templateIDs, template.ID)
	}

	moduleIDs, err := l.finder.FindModuleWithRelation(ctx, bizID, username, setIDs, templateIDs, []string{"bk_module_id"})
	if err != nil {
		return nil, fmt.Errorf("failed to find modules with relation: %w", err)
	}

	l.logger.Debug("Found modules by set and service template",
		zap.Int64("biz_id", bizID),
		zap.Int64s("set_ids", setIDs),
		zap.Int64s("service_template_ids", templateIDs),
		zap.Int("module_count", len(moduleIDs)),
	)

	return moduleIDs, nil
}
