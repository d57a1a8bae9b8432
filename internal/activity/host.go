package activity

import (
	"NYCU-SDC/job-dispatch-service/internal/domain"
	"context"

	"go.temporal.io/sdk/activity"
	"go.uber.org/zap"
)

// HostResolver resolves IP strings against CMDB
type HostResolver interface {
	ResolveIPsByStr(ctx context.Context, username string, bizID int64, ipStr string, useCache bool) (*domain.ResolutionResult, error)
}

// ModuleFinder looks up module ids by set and service template
type ModuleFinder interface {
	ModuleIDsByName(ctx context.Context, bizID int64, username string, sets []domain.Set, templates []domain.ServiceTemplate) ([]int64, error)
}

// HostActivity resolves job targets from CMDB
type HostActivity struct {
	resolver HostResolver
	modules  ModuleFinder
	logger   *zap.Logger
}

// NewHostActivity creates a new host activity
func NewHostActivity(resolver HostResolver, modules ModuleFinder, logger *zap.Logger) *HostActivity {
	return &HostActivity{
		resolver: resolver,
		modules:  modules,
		logger:   logger,
	}
}

// ResolveHosts resolves the hosts named by ipStr in a business
func (a *HostActivity) ResolveHosts(ctx context.Context, username string, bizID int64, ipStr string) (*domain.ResolutionResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Resolving hosts", "biz_id", bizID, "username", username)

	result, err := a.resolver.ResolveIPsByStr(ctx, username, bizID, ipStr, true)
	if err != nil {
		logger.Error("Failed to resolve hosts", "error", err, "biz_id", bizID)
		return nil, err
	}

	logger.Info("Hosts resolved",
		"biz_id", bizID,
		"ip_count", result.IPCount,
		"resolved", len(result.IPResult),
		"invalid", len(result.InvalidIP),
	)

	return result, nil
}

// FindModuleIDs returns the module ids selected by sets and service templates
func (a *HostActivity) FindModuleIDs(ctx context.Context, username string, bizID int64, sets []domain.Set, templates []domain.ServiceTemplate) ([]int64, error) {
	logger := activity.GetLogger(ctx)

	moduleIDs, err := a.modules.ModuleIDsByName(ctx, bizID, username, sets, templates)
	if err != nil {
		logger.Error("Failed to find module ids", "error", err, "biz_id", bizID)
		return nil, err
	}

	logger.Info("Module ids found", "biz_id", bizID, "count", len(moduleIDs))
	return moduleIDs, nil
}
