package activity

import (
	"NYCU-SDC/job-dispatch-service/internal/adapter/esb"
	"NYCU-SDC/job-dispatch-service/internal/domain"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"go.uber.org/zap"
)

type mockResolver struct{ mock.Mock }

func (m *mockResolver) ResolveIPsByStr(ctx context.Context, username string, bizID int64, ipStr string, useCache bool) (*domain.ResolutionResult, error) {
	args := m.Called(ctx, username, bizID, ipStr, useCache)
	result, _ := args.Get(0).(*domain.ResolutionResult)
	return result, args.Error(1)
}

type mockModules struct{ mock.Mock }

func (m *mockModules) ModuleIDsByName(ctx context.Context, bizID int64, username string, sets []domain.Set, templates []domain.ServiceTemplate) ([]int64, error) {
	args := m.Called(ctx, bizID, username, sets, templates)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

type mockExecutor struct{ mock.Mock }

func (m *mockExecutor) FastExecuteScript(ctx context.Context, job domain.ScriptJob) (domain.JobInstance, error) {
	args := m.Called(ctx, job)
	return args.Get(0).(domain.JobInstance), args.Error(1)
}

type stubLinks struct {
	nodeID string
	err    error
}

func (s *stubLinks) JobInstanceURL(jobInstanceID int64) string {
	return "https://job.example.com/api_execute/42"
}

func (s *stubLinks) NodeCallbackURL(nodeID string) (string, error) {
	s.nodeID = nodeID
	return "https://dispatch.example.com/taskflow/api/nodes/callback/tok/", s.err
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) SendNotification(ctx context.Context, title, message string, success bool, metadata map[string]string) error {
	return m.Called(ctx, title, message, success, metadata).Error(0)
}

type ActivityTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite

	env *testsuite.TestActivityEnvironment
}

func (s *ActivityTestSuite) SetupTest() {
	s.env = s.NewTestActivityEnvironment()
}

func TestActivityTestSuite(t *testing.T) {
	suite.Run(t, new(ActivityTestSuite))
}

func (s *ActivityTestSuite) TestResolveHosts() {
	resolver := new(mockResolver)
	want := &domain.ResolutionResult{
		Result:    true,
		IPResult:  []domain.ResolvedIP{{InnerIP: "10.0.0.1", HostID: 1, Source: 0}},
		IPCount:   1,
		InvalidIP: []string{"10.0.0.9"},
	}
	resolver.On("ResolveIPsByStr", mock.Anything, "admin", int64(2), "10.0.0.1,10.0.0.9", true).Return(want, nil)

	a := NewHostActivity(resolver, new(mockModules), zap.NewNop())
	s.env.RegisterActivity(a)

	val, err := s.env.ExecuteActivity(a.ResolveHosts, "admin", int64(2), "10.0.0.1,10.0.0.9")
	s.Require().NoError(err)

	var got domain.ResolutionResult
	s.Require().NoError(val.Get(&got))
	s.Equal(want.InvalidIP, got.InvalidIP)
	s.Equal(want.InnerIPs(), got.InnerIPs())
	resolver.AssertExpectations(s.T())
}

func (s *ActivityTestSuite) TestResolveHostsError() {
	resolver := new(mockResolver)
	resolver.On("ResolveIPsByStr", mock.Anything, "admin", int64(2), "10.0.0.1", true).Return(nil, errors.New("cmdb down"))

	a := NewHostActivity(resolver, new(mockModules), zap.NewNop())
	s.env.RegisterActivity(a)

	_, err := s.env.ExecuteActivity(a.ResolveHosts, "admin", int64(2), "10.0.0.1")
	s.Require().Error(err)
	s.Contains(err.Error(), "cmdb down")
}

func (s *ActivityTestSuite) TestFindModuleIDs() {
	modules := new(mockModules)
	sets := []domain.Set{{ID: 3, Name: "web"}}
	templates := []domain.ServiceTemplate{{ID: 7, Name: "nginx"}}
	modules.On("ModuleIDsByName", mock.Anything, int64(2), "admin", sets, templates).Return([]int64{11, 12}, nil)

	a := NewHostActivity(new(mockResolver), modules, zap.NewNop())
	s.env.RegisterActivity(a)

	val, err := s.env.ExecuteActivity(a.FindModuleIDs, "admin", int64(2), sets, templates)
	s.Require().NoError(err)

	var got []int64
	s.Require().NoError(val.Get(&got))
	s.Equal([]int64{11, 12}, got)
}

func (s *ActivityTestSuite) TestDispatchScriptJob() {
	executor := new(mockExecutor)
	links := &stubLinks{}
	executor.On("FastExecuteScript", mock.Anything, mock.MatchedBy(func(job domain.ScriptJob) bool {
		return job.CallbackURL == "https://dispatch.example.com/taskflow/api/nodes/callback/tok/"
	})).Return(domain.JobInstance{ID: 42, Name: "deploy"}, nil)

	a := NewJobActivity(executor, links, zap.NewNop())
	s.env.RegisterActivity(a)

	val, err := s.env.ExecuteActivity(a.DispatchScriptJob, domain.ScriptJob{
		Username: "admin",
		BizID:    2,
		Name:     "deploy",
		Target:   domain.TargetServer{ModuleIDs: []int64{11}},
	})
	s.Require().NoError(err)

	var got domain.JobInstance
	s.Require().NoError(val.Get(&got))
	s.Equal(int64(42), got.ID)
	s.Equal("https://job.example.com/api_execute/42", got.URL)
	s.NotEmpty(links.nodeID)
	executor.AssertExpectations(s.T())
}

func (s *ActivityTestSuite) TestDispatchScriptJobNoTarget() {
	executor := new(mockExecutor)
	executor.On("FastExecuteScript", mock.Anything, mock.Anything).Return(domain.JobInstance{}, domain.ErrNoTarget)

	a := NewJobActivity(executor, &stubLinks{}, zap.NewNop())
	s.env.RegisterActivity(a)

	_, err := s.env.ExecuteActivity(a.DispatchScriptJob, domain.ScriptJob{BizID: 2})
	s.Require().Error(err)

	var appErr *temporal.ApplicationError
	s.Require().True(errors.As(err, &appErr))
	s.Equal(domain.ErrTypeNoTarget, appErr.Type())
	s.True(appErr.NonRetryable())
}

func (s *ActivityTestSuite) TestDispatchScriptJobRejected() {
	executor := new(mockExecutor)
	rejected := fmt.Errorf("failed to execute script: %w", &esb.APIError{
		Path:    "jobv3/fast_execute_script/",
		Code:    1306001,
		Message: "no permission",
	})
	executor.On("FastExecuteScript", mock.Anything, mock.Anything).Return(domain.JobInstance{}, rejected)

	a := NewJobActivity(executor, &stubLinks{}, zap.NewNop())
	s.env.RegisterActivity(a)

	_, err := s.env.ExecuteActivity(a.DispatchScriptJob, domain.ScriptJob{BizID: 2, Target: domain.TargetServer{ModuleIDs: []int64{11}}})
	s.Require().Error(err)

	var appErr *temporal.ApplicationError
	s.Require().True(errors.As(err, &appErr))
	s.Equal(domain.ErrTypeJobRejected, appErr.Type())
	s.True(appErr.NonRetryable())
}

func (s *ActivityTestSuite) TestDispatchScriptJobCallbackURLError() {
	executor := new(mockExecutor)

	a := NewJobActivity(executor, &stubLinks{err: errors.New("bad key")}, zap.NewNop())
	s.env.RegisterActivity(a)

	_, err := s.env.ExecuteActivity(a.DispatchScriptJob, domain.ScriptJob{BizID: 2})
	s.Require().Error(err)
	executor.AssertNotCalled(s.T(), "FastExecuteScript", mock.Anything, mock.Anything)
}

func (s *ActivityTestSuite) TestSendDispatchNotification() {
	notifier := new(mockNotifier)
	notifier.On("SendNotification", mock.Anything, "Job Failed", mock.MatchedBy(func(message string) bool {
		return message == "Job Failed for business 2\ninvalid ip: 10.0.0.9"
	}), false, map[string]string{
		"Business": "2",
		"Operator": "admin",
		"Trace ID": "trace-1",
	}).Return(nil)

	a := NewNotifyActivity(notifier)
	s.env.RegisterActivity(a)

	_, err := s.env.ExecuteActivity(a.SendDispatchNotification,
		domain.JobDispatchRequest{Username: "admin", BizID: 2, TraceID: "trace-1"},
		Notification{Status: "Failed", Detail: "invalid ip: 10.0.0.9"},
	)
	s.Require().NoError(err)
	notifier.AssertExpectations(s.T())
}

func (s *ActivityTestSuite) TestSendDispatchNotificationError() {
	notifier := new(mockNotifier)
	notifier.On("SendNotification", mock.Anything, mock.Anything, mock.Anything, true, mock.Anything).Return(errors.New("rate limited"))

	a := NewNotifyActivity(notifier)
	s.env.RegisterActivity(a)

	_, err := s.env.ExecuteActivity(a.SendDispatchNotification,
		domain.JobDispatchRequest{Username: "admin", BizID: 2},
		Notification{Status: "Succeeded", Success: true, JobInstance: domain.JobInstance{ID: 42, URL: "u"}},
	)
	s.Require().Error(err)
}
