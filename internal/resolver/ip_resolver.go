package resolver

import (
	"NYCU-SDC/job-dispatch-service/internal/domain"
	"NYCU-SDC/job-dispatch-service/internal/metrics"
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"
)

// HostFields are the host attributes requested from CMDB
var HostFields = []string{"bk_host_innerip", "bk_host_id", "bk_cloud_id"}

// IPResolver resolves free-form IP strings to CMDB hosts
type IPResolver struct {
	topology domain.TopologyQuerier
	accounts domain.SupplierAccountResolver
	logger   *zap.Logger
}

// NewIPResolver creates a new IP resolver
func NewIPResolver(topology domain.TopologyQuerier, accounts domain.SupplierAccountResolver, logger *zap.Logger) *IPResolver {
	return &IPResolver{
		topology: topology,
		accounts: accounts,
		logger:   logger,
	}
}

// ResolveIPsByStr matches the IPs in ipStr against the business topology.
// ipStr is one of three encodings, detected once for the whole string:
//
//	set|module|ip   e.g. "web|nginx|10.0.0.1"
//	cloud:ip        e.g. "0:10.0.0.1"
//	ip              e.g. "10.0.0.1,10.0.0.2"
//
// useCache is accepted for compatibility and ignored.
func (r *IPResolver) ResolveIPsByStr(ctx context.Context, username string, bizID int64, ipStr string, useCache bool) (*domain.ResolutionResult, error) {
	inputIPs := ExtractIPs(ipStr)
	format := DetectFormat(ipStr)

	var hosts []domain.HostTopo
	if len(inputIPs) > 0 {
		account, err := r.accounts.SupplierAccountForBusiness(ctx, bizID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve supplier account of business %d: %w", bizID, err)
		}

		hosts, err = r.topology.GetBusinessHostTopo(ctx, username, bizID, account, HostFields, inputIPs)
		if err != nil {
			return nil, fmt.Errorf("failed to query host topology of business %d: %w", bizID, err)
		}
	}

	var resolved []domain.ResolvedIP
	switch format {
	case FormatSetModuleIP:
		resolved = matchSetModuleIP(ipStr, hosts)
	case FormatCloudIP:
		resolved = matchCloudIP(ipStr, hosts)
	default:
		resolved = matchPlainIP(ipStr, hosts)
	}
	if resolved == nil {
		resolved = []domain.ResolvedIP{}
	}

	result := &domain.ResolutionResult{
		Result:   true,
		IPResult: resolved,
		IPCount:  len(resolved),
	}
	result.InvalidIP = difference(inputIPs, result.InnerIPs())

	metrics.IPStrResolved(format.String(), result.IPCount, len(result.InvalidIP))
	r.logger.Debug("Resolved IP string",
		zap.Int64("biz_id", bizID),
		zap.String("username", username),
		zap.String("format", format.String()),
		zap.Int("input_count", len(inputIPs)),
		zap.Int("topology_count", len(hosts)),
		zap.Int("resolved_count", result.IPCount),
		zap.Strings("invalid_ip", result.InvalidIP),
	)

	return result, nil
}

// matchSetModuleIP emits at most one result per topology row: the first
// set/module pair, in topology order, whose "set|module|ip" was requested.
func matchSetModuleIP(ipStr string, hosts []domain.HostTopo) []domain.ResolvedIP {
	wanted := literalSet(setModuleIPPattern, ipStr)

	var resolved []domain.ResolvedIP
	for _, info := range hosts {
	scan:
		for _, set := range info.Sets {
			for _, module := range info.Modules {
				key := set.Name + "|" + module.Name + "|" + info.Host.InnerIP
				if _, ok := wanted[key]; !ok {
					continue
				}
				item := newResolvedIP(info)
				item.Placement = &domain.Placement{
					SetID:      set.ID,
					SetName:    set.Name,
					ModuleID:   module.ID,
					ModuleName: module.Name,
				}
				resolved = append(resolved, item)
				break scan
			}
		}
	}
	return resolved
}

func matchCloudIP(ipStr string, hosts []domain.HostTopo) []domain.ResolvedIP {
	wanted := literalSet(cloudIPPattern, ipStr)

	var resolved []domain.ResolvedIP
	for _, info := range hosts {
		key := strconv.FormatInt(info.Host.CloudID, 10) + ":" + info.Host.InnerIP
		if _, ok := wanted[key]; ok {
			resolved = append(resolved, newResolvedIP(info))
		}
	}
	return resolved
}

// matchPlainIP dedups by host id, so rows sharing a host collapse to one result
func matchPlainIP(ipStr string, hosts []domain.HostTopo) []domain.ResolvedIP {
	wanted := literalSet(ipPattern, ipStr)

	var resolved []domain.ResolvedIP
	processed := make(map[int64]struct{})
	for _, info := range hosts {
		if _, ok := wanted[info.Host.InnerIP]; !ok {
			continue
		}
		if _, done := processed[info.Host.ID]; done {
			continue
		}
		resolved = append(resolved, newResolvedIP(info))
		processed[info.Host.ID] = struct{}{}
	}
	return resolved
}

func newResolvedIP(info domain.HostTopo) domain.ResolvedIP {
	return domain.ResolvedIP{
		InnerIP: info.Host.InnerIP,
		HostID:  info.Host.ID,
		Source:  info.Host.CloudID,
		Sets:    info.Sets,
		Modules: info.Modules,
	}
}

// difference returns the sorted set of values in from that are not in minus
func difference(from, minus []string) []string {
	exclude := make(map[string]struct{}, len(minus))
	for _, v := range minus {
		exclude[v] = struct{}{}
	}

	seen := make(map[string]struct{}, len(from))
	result := []string{}
	for _, v := range from {
		if _, ok := exclude[v]; ok {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	sort.Strings(result)
	return result
}
