package job

import (
	"NYCU-SDC/job-dispatch-service/internal/adapter/esb"
	"NYCU-SDC/job-dispatch-service/internal/config"
	"NYCU-SDC/job-dispatch-service/internal/domain"
	"context"
	"encoding/base64"
	"fmt"

	"go.uber.org/zap"
)

// Client implements domain.JobExecutor against job platform v3 APIs
type Client struct {
	esb    *esb.Client
	cfg    config.JobConfig
	logger *zap.Logger
}

// NewClient creates a new job platform client
func NewClient(esbClient *esb.Client, cfg config.JobConfig, logger *zap.Logger) *Client {
	return &Client{
		esb:    esbClient,
		cfg:    cfg,
		logger: logger,
	}
}

type ipItem struct {
	CloudID int64  `json:"bk_cloud_id"`
	IP      string `json:"ip"`
}

type topoNode struct {
	ID       int64  `json:"id"`
	NodeType string `json:"node_type"`
}

type targetServer struct {
	IPList       []ipItem   `json:"ip_list,omitempty"`
	TopoNodeList []topoNode `json:"topo_node_list,omitempty"`
}

// FastExecuteScript starts a script job on the target hosts and modules
func (c *Client) FastExecuteScript(ctx context.Context, job domain.ScriptJob) (domain.JobInstance, error) {
	if job.Target.Empty() {
		return domain.JobInstance{}, domain.ErrNoTarget
	}

	accountAlias := job.Script.AccountAlias
	if accountAlias == "" {
		accountAlias = c.cfg.AccountAlias
	}
	timeout := job.Script.Timeout
	if timeout == 0 {
		timeout = c.cfg.ScriptTimeout
	}

	params := map[string]interface{}{
		"bk_biz_id":       job.BizID,
		"task_name":       job.Name,
		"script_content":  base64.StdEncoding.EncodeToString([]byte(job.Script.Content)),
		"script_language": job.Script.Language,
		"account_alias":   accountAlias,
		"timeout":         timeout,
		"target_server":   buildTarget(job.Target),
	}
	if job.Script.Params != "" {
		params["script_param"] = base64.StdEncoding.EncodeToString([]byte(job.Script.Params))
	}
	if job.CallbackURL != "" {
		params["callback_url"] = job.CallbackURL
	}

	var data struct {
		JobInstanceID   int64  `json:"job_instance_id"`
		JobInstanceName string `json:"job_instance_name"`
	}
	if err := c.esb.Post(ctx, "jobv3/fast_execute_script/", job.Username, params, &data); err != nil {
		return domain.JobInstance{}, fmt.Errorf("failed to execute script: %w", err)
	}

	c.logger.Info("Script job started",
		zap.Int64("biz_id", job.BizID),
		zap.Int64("job_instance_id", data.JobInstanceID),
		zap.String("job_instance_name", data.JobInstanceName),
		zap.Int("host_count", len(job.Target.Hosts)),
		zap.Int("module_count", len(job.Target.ModuleIDs)),
	)

	return domain.JobInstance{
		ID:   data.JobInstanceID,
		Name: data.JobInstanceName,
	}, nil
}

// buildTarget maps resolved hosts and module ids to the target_server
// structure. Hosts without a cloud id go to the default cloud area 0.
func buildTarget(target domain.TargetServer) targetServer {
	var server targetServer
	for _, host := range target.Hosts {
		cloudID := host.Source
		if cloudID == domain.UnsetID {
			cloudID = 0
		}
		server.IPList = append(server.IPList, ipItem{CloudID: cloudID, IP: host.InnerIP})
	}
	for _, id := range target.ModuleIDs {
		server.TopoNodeList = append(server.TopoNodeList, topoNode{ID: id, NodeType: "module"})
	}
	return server
}

// Ensure Client implements domain.JobExecutor
var _ domain.JobExecutor = (*Client)(nil)
