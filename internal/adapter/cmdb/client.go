package cmdb

import (
	"NYCU-SDC/job-dispatch-service/internal/adapter/esb"
	"NYCU-SDC/job-dispatch-service/internal/config"
	"NYCU-SDC/job-dispatch-service/internal/domain"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

const moduleRelationPageLimit = 200

// Client implements the CMDB ports on top of the ESB gateway
type Client struct {
	esb    *esb.Client
	cfg    config.CMDBConfig
	logger *zap.Logger
}

// NewClient creates a new CMDB client
func NewClient(esbClient *esb.Client, cfg config.CMDBConfig, logger *zap.Logger) *Client {
	return &Client{
		esb:    esbClient,
		cfg:    cfg,
		logger: logger,
	}
}

type topoModule struct {
	ID   int64  `json:"bk_module_id"`
	Name string `json:"bk_module_name"`
}

type topoSet struct {
	ID      int64        `json:"bk_set_id"`
	Name    string       `json:"bk_set_name"`
	Modules []topoModule `json:"module"`
}

type hostTopo struct {
	Host domain.Host `json:"host"`
	Topo []topoSet   `json:"topo"`
}

// GetBusinessHostTopo lists hosts of a business with their topology via
// list_biz_hosts_topo. Sets keep the CMDB order and modules follow the order
// of their sets.
func (c *Client) GetBusinessHostTopo(ctx context.Context, username string, bizID int64, supplierAccount string, hostFields []string, ipList []string) ([]domain.HostTopo, error) {
	params := map[string]interface{}{
		"bk_biz_id":           bizID,
		"bk_supplier_account": supplierAccount,
		"fields":              hostFields,
	}
	if len(ipList) > 0 {
		params["host_property_filter"] = map[string]interface{}{
			"condition": "AND",
			"rules": []map[string]interface{}{
				{
					"field":    "bk_host_innerip",
					"operator": "in",
					"value":    ipList,
				},
			},
		}
	}

	var hosts []domain.HostTopo
	err := c.esb.PostPaged(ctx, "cc/list_biz_hosts_topo/", username, params, c.cfg.PageLimit, func(info json.RawMessage) error {
		var page []hostTopo
		if err := json.Unmarshal(info, &page); err != nil {
			return fmt.Errorf("failed to decode host topology: %w", err)
		}
		for _, item := range page {
			hosts = append(hosts, flattenTopo(item))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Listed business host topology",
		zap.Int64("biz_id", bizID),
		zap.Int("ip_count", len(ipList)),
		zap.Int("host_count", len(hosts)),
	)

	return hosts, nil
}

func flattenTopo(item hostTopo) domain.HostTopo {
	info := domain.HostTopo{
		Host:    item.Host,
		Sets:    make([]domain.Set, 0, len(item.Topo)),
		Modules: []domain.Module{},
	}
	for _, set := range item.Topo {
		info.Sets = append(info.Sets, domain.Set{ID: set.ID, Name: set.Name})
		for _, module := range set.Modules {
			info.Modules = append(info.Modules, domain.Module{ID: module.ID, Name: module.Name})
		}
	}
	return info
}

// SupplierAccountForBusiness looks up bk_supplier_account of the business,
// falling back to the configured default when the business is unknown
func (c *Client) SupplierAccountForBusiness(ctx context.Context, bizID int64) (string, error) {
	params := map[string]interface{}{
		"condition": map[string]interface{}{"bk_biz_id": bizID},
		"fields":    []string{"bk_biz_id", "bk_supplier_account"},
	}

	var data struct {
		Count int `json:"count"`
		Info  []struct {
			SupplierAccount json.RawMessage `json:"bk_supplier_account"`
		} `json:"info"`
	}
	if err := c.esb.Post(ctx, "cc/search_business/", c.cfg.SystemUsername, params, &data); err != nil {
		return "", err
	}

	if len(data.Info) == 0 {
		c.logger.Warn("Business not found, using default supplier account",
			zap.Int64("biz_id", bizID),
			zap.String("supplier_account", c.cfg.DefaultSupplierAccount),
		)
		return c.cfg.DefaultSupplierAccount, nil
	}

	return rawString(data.Info[0].SupplierAccount, c.cfg.DefaultSupplierAccount), nil
}

// rawString decodes a JSON string or number as a string
func rawString(raw json.RawMessage, fallback string) string {
	if len(raw) == 0 || string(raw) == "null" {
		return fallback
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// FindModuleWithRelation returns ids of modules in setIDs created from
// serviceTemplateIDs
func (c *Client) FindModuleWithRelation(ctx context.Context, bizID int64, username string, setIDs, serviceTemplateIDs []int64, fields []string) ([]int64, error) {
	params := map[string]interface{}{
		"bk_biz_id":               bizID,
		"bk_set_ids":              setIDs,
		"bk_service_template_ids": serviceTemplateIDs,
		"fields":                  fields,
	}

	moduleIDs := []int64{}
	err := c.esb.PostPaged(ctx, "cc/find_module_with_relation/", username, params, moduleRelationPageLimit, func(info json.RawMessage) error {
		var page []struct {
			ID int64 `json:"bk_module_id"`
		}
		if err := json.Unmarshal(info, &page); err != nil {
			return fmt.Errorf("failed to decode modules: %w", err)
		}
		for _, module := range page {
			moduleIDs = append(moduleIDs, module.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return moduleIDs, nil
}

// Ensure Client implements the CMDB ports
var (
	_ domain.TopologyQuerier         = (*Client)(nil)
	_ domain.SupplierAccountResolver = (*Client)(nil)
	_ domain.ModuleRelationFinder    = (*Client)(nil)
)
