package domain

import "context"

// TopologyQuerier queries host topology of a business from CMDB
type TopologyQuerier interface {
	// GetBusinessHostTopo returns hosts of the business whose inner IP is in ipList,
	// with their sets and modules. An empty ipList selects every host.
	GetBusinessHostTopo(ctx context.Context, username string, bizID int64, supplierAccount string, hostFields []string, ipList []string) ([]HostTopo, error)
}

// SupplierAccountResolver resolves the supplier (tenant) account of a business
type SupplierAccountResolver interface {
	SupplierAccountForBusiness(ctx context.Context, bizID int64) (string, error)
}

// ModuleRelationFinder finds modules by set and service template relations
type ModuleRelationFinder interface {
	FindModuleWithRelation(ctx context.Context, bizID int64, username string, setIDs, serviceTemplateIDs []int64, fields []string) ([]int64, error)
}

// JobExecutor dispatches jobs to the job platform
type JobExecutor interface {
	// FastExecuteScript starts a script job and returns the started instance
	FastExecuteScript(ctx context.Context, job ScriptJob) (JobInstance, error)
}

// SecretManager interface for managing secrets from Infisical
type SecretManager interface {
	// FetchSecretsByMapping fetches secrets from Infisical based on secret mappings
	// Returns a map of environment variable names to secret values
	FetchSecretsByMapping(ctx context.Context, project, environment string, mappings []SecretMapping) (map[string]string, error)
}

// Notifier interface for sending notifications
type Notifier interface {
	// SendNotification sends a notification with the given message and status
	SendNotification(ctx context.Context, title, message string, success bool, metadata map[string]string) error
}
