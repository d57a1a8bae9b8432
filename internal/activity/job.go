package activity

import (
	"NYCU-SDC/job-dispatch-service/internal/adapter/esb"
	"NYCU-SDC/job-dispatch-service/internal/domain"
	"NYCU-SDC/job-dispatch-service/internal/metrics"
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"
)

// LinkBuilder builds the job page and callback links of a dispatched job
type LinkBuilder interface {
	JobInstanceURL(jobInstanceID int64) string
	NodeCallbackURL(nodeID string) (string, error)
}

// JobActivity dispatches scripts to the job platform
type JobActivity struct {
	executor domain.JobExecutor
	links    LinkBuilder
	logger   *zap.Logger
}

// NewJobActivity creates a new job activity
func NewJobActivity(executor domain.JobExecutor, links LinkBuilder, logger *zap.Logger) *JobActivity {
	return &JobActivity{
		executor: executor,
		links:    links,
		logger:   logger,
	}
}

// DispatchScriptJob starts job on the job platform. The callback URL carries
// the id of the calling workflow so the callback can be routed back to it.
func (a *JobActivity) DispatchScriptJob(ctx context.Context, job domain.ScriptJob) (domain.JobInstance, error) {
	logger := activity.GetLogger(ctx)
	workflowID := activity.GetInfo(ctx).WorkflowExecution.ID

	callbackURL, err := a.links.NodeCallbackURL(workflowID)
	if err != nil {
		return domain.JobInstance{}, temporal.NewNonRetryableApplicationError(
			"failed to build callback url", "CallbackURL", err)
	}
	job.CallbackURL = callbackURL

	logger.Info("Dispatching script job",
		"biz_id", job.BizID,
		"name", job.Name,
		"hosts", len(job.Target.Hosts),
		"modules", len(job.Target.ModuleIDs),
	)

	instance, err := a.executor.FastExecuteScript(ctx, job)
	if err != nil {
		metrics.JobDispatched(false)
		logger.Error("Failed to dispatch script job", "error", err, "biz_id", job.BizID)
		if errors.Is(err, domain.ErrNoTarget) {
			return domain.JobInstance{}, temporal.NewNonRetryableApplicationError(err.Error(), domain.ErrTypeNoTarget, err)
		}
		var apiErr *esb.APIError
		if errors.As(err, &apiErr) {
			return domain.JobInstance{}, temporal.NewNonRetryableApplicationError(err.Error(), domain.ErrTypeJobRejected, err)
		}
		return domain.JobInstance{}, fmt.Errorf("failed to dispatch script job: %w", err)
	}
	metrics.JobDispatched(true)

	instance.URL = a.links.JobInstanceURL(instance.ID)

	logger.Info("Script job dispatched",
		"job_instance_id", instance.ID,
		"job_instance_url", instance.URL,
	)

	return instance, nil
}
