package activity

import (
	"NYCU-SDC/job-dispatch-service/internal/domain"
	"context"
	"fmt"
	"strconv"

	"go.temporal.io/sdk/activity"
)

// Notification is the outcome of a dispatch reported to the notifier
type Notification struct {
	Status      string             `json:"status"`
	Success     bool               `json:"success"`
	Detail      string             `json:"detail,omitempty"`
	JobInstance domain.JobInstance `json:"job_instance"`
}

// NotifyActivity handles notification activities
type NotifyActivity struct {
	notifier domain.Notifier
}

// NewNotifyActivity creates a new notification activity
func NewNotifyActivity(notifier domain.Notifier) *NotifyActivity {
	return &NotifyActivity{
		notifier: notifier,
	}
}

// SendDispatchNotification reports the outcome of a job dispatch
func (a *NotifyActivity) SendDispatchNotification(ctx context.Context, req domain.JobDispatchRequest, n Notification) error {
	logger := activity.GetLogger(ctx)

	title := fmt.Sprintf("Job %s", n.Status)
	message := fmt.Sprintf("Job %s for business %d", n.Status, req.BizID)
	if n.Detail != "" {
		message = fmt.Sprintf("%s\n%s", message, n.Detail)
	}

	metadata := map[string]string{
		"Business": strconv.FormatInt(req.BizID, 10),
		"Operator": req.Username,
	}
	if n.JobInstance.ID != 0 {
		metadata["Job Instance"] = strconv.FormatInt(n.JobInstance.ID, 10)
	}
	if n.JobInstance.URL != "" {
		metadata["Job URL"] = n.JobInstance.URL
	}
	if req.TraceID != "" {
		metadata["Trace ID"] = req.TraceID
	}

	if err := a.notifier.SendNotification(ctx, title, message, n.Success, metadata); err != nil {
		logger.Error("Failed to send dispatch notification", "error", err, "title", title)
		return fmt.Errorf("failed to send dispatch notification: %w", err)
	}

	logger.Info("Dispatch notification sent", "title", title, "success", n.Success)
	return nil
}
