package workflow

import (
	"NYCU-SDC/job-dispatch-service/internal/activity"
	"NYCU-SDC/job-dispatch-service/internal/domain"
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// SignalJobCallback is the signal carrying the job platform callback
const SignalJobCallback = "job-callback"

// DefaultCallbackTimeout is used when the request carries no callback timeout
const DefaultCallbackTimeout = time.Hour

// JobDispatchWorkflow resolves the target hosts of a request, runs its script
// on the job platform and waits for the job callback.
func JobDispatchWorkflow(ctx workflow.Context, req domain.JobDispatchRequest) (*domain.JobDispatchResult, error) {
	logger := workflow.GetLogger(ctx)
	workflowID := workflow.GetInfo(ctx).WorkflowExecution.ID
	logger.Info("Job dispatch workflow started",
		"biz_id", req.BizID,
		"username", req.Username,
		"trace_id", req.TraceID,
	)

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	// fast_execute_script is not idempotent; a retry after a lost response
	// would run the script twice
	dispatchCtx := workflow.WithRetryPolicy(ctx, temporal.RetryPolicy{MaximumAttempts: 1})

	notify := func(n activity.Notification) {
		if !req.Notify {
			return
		}
		if err := workflow.ExecuteActivity(ctx, activity.ActivitySendDispatchNotification, req, n).Get(ctx, nil); err != nil {
			logger.Error("Failed to send dispatch notification", "error", err)
		}
	}

	// Step 1: Resolve hosts from the IP string
	var target domain.TargetServer
	if req.IPStr != "" {
		var resolution domain.ResolutionResult
		err := workflow.ExecuteActivity(ctx, activity.ActivityResolveHosts, req.Username, req.BizID, req.IPStr).Get(ctx, &resolution)
		if err != nil {
			logger.Error("Failed to resolve hosts", "error", err)
			notify(activity.Notification{Status: "Failed", Detail: fmt.Sprintf("resolve hosts: %v", err)})
			return nil, err
		}
		if len(resolution.InvalidIP) > 0 {
			detail := fmt.Sprintf("invalid ip: %s", strings.Join(resolution.InvalidIP, ","))
			logger.Warn("IP string contains unknown hosts", "invalid_ip", resolution.InvalidIP)
			notify(activity.Notification{Status: "Failed", Detail: detail})
			return nil, temporal.NewNonRetryableApplicationError(detail, domain.ErrTypeInvalidIP, nil, resolution.InvalidIP)
		}
		target.Hosts = resolution.IPResult
	}

	// Step 2: Resolve modules from sets and service templates
	if len(req.Sets) > 0 || len(req.ServiceTemplates) > 0 {
		err := workflow.ExecuteActivity(ctx, activity.ActivityFindModuleIDs, req.Username, req.BizID, req.Sets, req.ServiceTemplates).Get(ctx, &target.ModuleIDs)
		if err != nil {
			logger.Error("Failed to find module ids", "error", err)
			notify(activity.Notification{Status: "Failed", Detail: fmt.Sprintf("find modules: %v", err)})
			return nil, err
		}
	}

	if target.Empty() {
		notify(activity.Notification{Status: "Failed", Detail: domain.ErrNoTarget.Error()})
		return nil, temporal.NewNonRetryableApplicationError(domain.ErrNoTarget.Error(), domain.ErrTypeNoTarget, domain.ErrNoTarget)
	}

	// Step 3: Dispatch the script job
	job := domain.ScriptJob{
		Username: req.Username,
		BizID:    req.BizID,
		Name:     workflowID,
		Script:   req.Script,
		Target:   target,
	}
	var instance domain.JobInstance
	if err := workflow.ExecuteActivity(dispatchCtx, activity.ActivityDispatchScriptJob, job).Get(ctx, &instance); err != nil {
		logger.Error("Failed to dispatch script job", "error", err)
		notify(activity.Notification{Status: "Failed", Detail: fmt.Sprintf("dispatch: %v", err)})
		return nil, err
	}
	logger.Info("Script job dispatched", "job_instance_id", instance.ID, "job_instance_url", instance.URL)

	result := &domain.JobDispatchResult{
		JobInstance: instance,
		HostCount:   len(target.Hosts),
		ModuleCount: len(target.ModuleIDs),
	}

	// Step 4: Wait for the job platform callback
	callback, ok := waitForCallback(ctx, instance.ID, req.CallbackTimeout)
	if !ok {
		logger.Error("Job callback timed out", "job_instance_id", instance.ID)
		notify(activity.Notification{Status: "Timed Out", JobInstance: instance})
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("no callback for job instance %d", instance.ID), domain.ErrTypeCallbackTimeout, nil)
	}
	result.Status = callback.Status

	if !callback.Succeeded() {
		logger.Error("Job failed", "job_instance_id", instance.ID, "status", callback.Status)
		notify(activity.Notification{Status: "Failed", Detail: fmt.Sprintf("job status %d", callback.Status), JobInstance: instance})
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("job instance %d finished with status %d", instance.ID, callback.Status), domain.ErrTypeJobFailed, nil, *result)
	}

	// Step 5: Report success
	notify(activity.Notification{Status: "Succeeded", Success: true, JobInstance: instance})

	logger.Info("Job dispatch workflow completed", "job_instance_id", instance.ID)
	return result, nil
}

// waitForCallback blocks until a callback for jobInstanceID arrives or the
// timeout fires. Callbacks of other instances are dropped.
func waitForCallback(ctx workflow.Context, jobInstanceID int64, timeout time.Duration) (domain.JobCallback, bool) {
	logger := workflow.GetLogger(ctx)
	if timeout <= 0 {
		timeout = DefaultCallbackTimeout
	}

	timerCtx, cancelTimer := workflow.WithCancel(ctx)
	defer cancelTimer()

	var (
		callback domain.JobCallback
		received bool
		timedOut bool
	)

	selector := workflow.NewSelector(ctx)
	selector.AddReceive(workflow.GetSignalChannel(ctx, SignalJobCallback), func(c workflow.ReceiveChannel, _ bool) {
		var cb domain.JobCallback
		c.Receive(ctx, &cb)
		if cb.JobInstanceID != 0 && cb.JobInstanceID != jobInstanceID {
			logger.Warn("Dropping callback of another job instance",
				"expected", jobInstanceID,
				"got", cb.JobInstanceID,
			)
			return
		}
		callback = cb
		received = true
	})
	selector.AddFuture(workflow.NewTimer(timerCtx, timeout), func(workflow.Future) {
		timedOut = true
	})

	for !received && !timedOut {
		selector.Select(ctx)
	}

	return callback, received
}
