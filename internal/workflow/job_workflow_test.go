package workflow

import (
	"NYCU-SDC/job-dispatch-service/internal/activity"
	"NYCU-SDC/job-dispatch-service/internal/domain"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

type JobWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite

	env *testsuite.TestWorkflowEnvironment
}

func (s *JobWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	s.env.RegisterActivity(&activity.HostActivity{})
	s.env.RegisterActivity(&activity.JobActivity{})
	s.env.RegisterActivity(&activity.NotifyActivity{})
}

func (s *JobWorkflowTestSuite) AfterTest(_, _ string) {
	s.env.AssertExpectations(s.T())
}

func TestJobWorkflowTestSuite(t *testing.T) {
	suite.Run(t, new(JobWorkflowTestSuite))
}

func dispatchRequest() domain.JobDispatchRequest {
	return domain.JobDispatchRequest{
		Username: "admin",
		BizID:    2,
		IPStr:    "10.0.0.1",
		Script:   domain.ScriptSpec{Content: "echo hi", Language: domain.ScriptLanguageShell},
		Notify:   true,
	}
}

func resolved(invalid ...string) *domain.ResolutionResult {
	return &domain.ResolutionResult{
		Result:    true,
		IPResult:  []domain.ResolvedIP{{InnerIP: "10.0.0.1", HostID: 1, Source: 0}},
		IPCount:   1,
		InvalidIP: invalid,
	}
}

func (s *JobWorkflowTestSuite) applicationErrorType() string {
	err := s.env.GetWorkflowError()
	s.Require().Error(err)

	var appErr *temporal.ApplicationError
	s.Require().True(errors.As(err, &appErr))
	return appErr.Type()
}

func (s *JobWorkflowTestSuite) TestSuccess() {
	req := dispatchRequest()
	req.Sets = []domain.Set{{ID: 3, Name: "web"}}

	s.env.OnActivity(activity.ActivityResolveHosts, mock.Anything, "admin", int64(2), "10.0.0.1").Return(resolved(), nil)
	s.env.OnActivity(activity.ActivityFindModuleIDs, mock.Anything, "admin", int64(2), req.Sets, mock.Anything).Return([]int64{11}, nil)
	s.env.OnActivity(activity.ActivityDispatchScriptJob, mock.Anything, mock.MatchedBy(func(job domain.ScriptJob) bool {
		return len(job.Target.Hosts) == 1 && job.Target.ModuleIDs[0] == 11 && job.Script.Content == "echo hi"
	})).Return(domain.JobInstance{ID: 42, URL: "https://job.example.com/api_execute/42"}, nil)
	s.env.OnActivity(activity.ActivitySendDispatchNotification, mock.Anything, mock.Anything, mock.MatchedBy(func(n activity.Notification) bool {
		return n.Success && n.JobInstance.ID == 42
	})).Return(nil).Once()

	s.env.RegisterDelayedCallback(func() {
		s.env.SignalWorkflow(SignalJobCallback, domain.JobCallback{JobInstanceID: 42, Status: domain.JobStatusSuccess})
	}, time.Minute)

	s.env.ExecuteWorkflow(JobDispatchWorkflow, req)

	s.True(s.env.IsWorkflowCompleted())
	s.Require().NoError(s.env.GetWorkflowError())

	var result domain.JobDispatchResult
	s.Require().NoError(s.env.GetWorkflowResult(&result))
	s.Equal(int64(42), result.JobInstance.ID)
	s.Equal(1, result.HostCount)
	s.Equal(1, result.ModuleCount)
	s.Equal(domain.JobStatusSuccess, result.Status)
}

func (s *JobWorkflowTestSuite) TestCallbackOfOtherInstanceIgnored() {
	req := dispatchRequest()
	req.Notify = false

	s.env.OnActivity(activity.ActivityResolveHosts, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(resolved(), nil)
	s.env.OnActivity(activity.ActivityDispatchScriptJob, mock.Anything, mock.Anything).Return(domain.JobInstance{ID: 42}, nil)

	s.env.RegisterDelayedCallback(func() {
		s.env.SignalWorkflow(SignalJobCallback, domain.JobCallback{JobInstanceID: 7, Status: domain.JobStatusFailed})
	}, time.Minute)
	s.env.RegisterDelayedCallback(func() {
		s.env.SignalWorkflow(SignalJobCallback, domain.JobCallback{JobInstanceID: 42, Status: domain.JobStatusSuccess})
	}, 2*time.Minute)

	s.env.ExecuteWorkflow(JobDispatchWorkflow, req)

	s.Require().NoError(s.env.GetWorkflowError())
}

func (s *JobWorkflowTestSuite) TestInvalidIP() {
	s.env.OnActivity(activity.ActivityResolveHosts, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(resolved("10.0.0.9"), nil)
	s.env.OnActivity(activity.ActivitySendDispatchNotification, mock.Anything, mock.Anything, mock.MatchedBy(func(n activity.Notification) bool {
		return !n.Success && n.Detail == "invalid ip: 10.0.0.9"
	})).Return(nil).Once()

	s.env.ExecuteWorkflow(JobDispatchWorkflow, dispatchRequest())

	s.True(s.env.IsWorkflowCompleted())
	s.Equal(domain.ErrTypeInvalidIP, s.applicationErrorType())
}

func (s *JobWorkflowTestSuite) TestNoTarget() {
	req := dispatchRequest()
	req.IPStr = ""
	req.Notify = false

	s.env.ExecuteWorkflow(JobDispatchWorkflow, req)

	s.Equal(domain.ErrTypeNoTarget, s.applicationErrorType())
}

func (s *JobWorkflowTestSuite) TestJobFailed() {
	req := dispatchRequest()
	req.Notify = false

	s.env.OnActivity(activity.ActivityResolveHosts, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(resolved(), nil)
	s.env.OnActivity(activity.ActivityDispatchScriptJob, mock.Anything, mock.Anything).Return(domain.JobInstance{ID: 42}, nil)

	s.env.RegisterDelayedCallback(func() {
		s.env.SignalWorkflow(SignalJobCallback, domain.JobCallback{JobInstanceID: 42, Status: domain.JobStatusFailed})
	}, time.Minute)

	s.env.ExecuteWorkflow(JobDispatchWorkflow, req)

	s.Equal(domain.ErrTypeJobFailed, s.applicationErrorType())
}

func (s *JobWorkflowTestSuite) TestCallbackTimeout() {
	req := dispatchRequest()
	req.CallbackTimeout = 30 * time.Minute

	s.env.OnActivity(activity.ActivityResolveHosts, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(resolved(), nil)
	s.env.OnActivity(activity.ActivityDispatchScriptJob, mock.Anything, mock.Anything).Return(domain.JobInstance{ID: 42}, nil)
	s.env.OnActivity(activity.ActivitySendDispatchNotification, mock.Anything, mock.Anything, mock.MatchedBy(func(n activity.Notification) bool {
		return n.Status == "Timed Out"
	})).Return(nil).Once()

	s.env.ExecuteWorkflow(JobDispatchWorkflow, req)

	s.Equal(domain.ErrTypeCallbackTimeout, s.applicationErrorType())
}

func (s *JobWorkflowTestSuite) TestDispatchRunsOnce() {
	req := dispatchRequest()
	req.Notify = false

	attempts := 0
	s.env.OnActivity(activity.ActivityResolveHosts, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(resolved(), nil)
	s.env.OnActivity(activity.ActivityDispatchScriptJob, mock.Anything, mock.Anything).Return(
		func(context.Context, domain.ScriptJob) (domain.JobInstance, error) {
			attempts++
			return domain.JobInstance{}, errors.New("context deadline exceeded")
		})

	s.env.ExecuteWorkflow(JobDispatchWorkflow, req)

	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
	s.Equal(1, attempts)
}

func (s *JobWorkflowTestSuite) TestDispatchError() {
	req := dispatchRequest()
	req.Notify = false

	s.env.OnActivity(activity.ActivityResolveHosts, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(resolved(), nil)
	s.env.OnActivity(activity.ActivityDispatchScriptJob, mock.Anything, mock.Anything).Return(domain.JobInstance{},
		temporal.NewNonRetryableApplicationError("no target", domain.ErrTypeNoTarget, nil))

	s.env.ExecuteWorkflow(JobDispatchWorkflow, req)

	s.Equal(domain.ErrTypeNoTarget, s.applicationErrorType())
}
