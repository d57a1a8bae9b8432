package domain

import "time"

// Script languages accepted by the job platform
const (
	ScriptLanguageShell      = 1
	ScriptLanguageBat        = 2
	ScriptLanguagePerl       = 3
	ScriptLanguagePython     = 4
	ScriptLanguagePowershell = 5
)

// Job instance status reported by the job platform callback
const (
	JobStatusPending   = 1
	JobStatusRunning   = 2
	JobStatusSuccess   = 3
	JobStatusFailed    = 4
	JobStatusTerminate = 10
)

// JobDispatchRequest represents a request to run a script on CMDB hosts
type JobDispatchRequest struct {
	Username         string            `json:"username" validate:"required"`
	BizID            int64             `json:"bk_biz_id" validate:"required,gt=0"`
	IPStr            string            `json:"ip_str,omitempty"`
	Sets             []Set             `json:"sets,omitempty"`
	ServiceTemplates []ServiceTemplate `json:"service_templates,omitempty"`
	Script           ScriptSpec        `json:"script" validate:"required"`
	Notify           bool              `json:"notify"`
	TraceID          string            `json:"trace_id"`
	// CallbackTimeout bounds the wait for the job callback; set by the API
	CallbackTimeout time.Duration `json:"callback_timeout,omitempty"`
}

// ScriptSpec describes the script to execute
type ScriptSpec struct {
	Content      string `json:"content" validate:"required"`
	Language     int    `json:"language" validate:"required,min=1,max=5"`
	Params       string `json:"params,omitempty"`
	AccountAlias string `json:"account_alias,omitempty"`
	Timeout      int    `json:"timeout,omitempty" validate:"omitempty,min=1,max=86400"`
}

// TargetServer contains the hosts and topology nodes a job runs on
type TargetServer struct {
	Hosts     []ResolvedIP `json:"hosts,omitempty"`
	ModuleIDs []int64      `json:"module_ids,omitempty"`
}

// Empty reports whether the target selects nothing
func (t TargetServer) Empty() bool {
	return len(t.Hosts) == 0 && len(t.ModuleIDs) == 0
}

// ScriptJob is a fully resolved job sent to the job platform
type ScriptJob struct {
	Username    string       `json:"username"`
	BizID       int64        `json:"bk_biz_id"`
	Name        string       `json:"name"`
	Script      ScriptSpec   `json:"script"`
	Target      TargetServer `json:"target"`
	CallbackURL string       `json:"callback_url"`
}

// JobInstance identifies a job started on the job platform
type JobInstance struct {
	ID   int64  `json:"job_instance_id"`
	Name string `json:"job_instance_name"`
	URL  string `json:"job_instance_url"`
}

// JobCallback is the payload the job platform posts to the node callback URL
type JobCallback struct {
	JobInstanceID int64 `json:"job_instance_id"`
	Status        int   `json:"status"`
}

// Succeeded reports whether the callback carries a success status
func (c JobCallback) Succeeded() bool {
	return c.Status == JobStatusSuccess
}

// JobDispatchResult represents the result of a dispatch workflow
type JobDispatchResult struct {
	JobInstance JobInstance `json:"job_instance"`
	HostCount   int         `json:"host_count"`
	ModuleCount int         `json:"module_count"`
	Status      int         `json:"status"`
}
