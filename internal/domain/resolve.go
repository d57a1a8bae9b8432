package domain

// Placement is the set/module pair a "set|module|ip" token matched
type Placement struct {
	SetID      int64  `json:"SetID"`
	SetName    string `json:"SetName"`
	ModuleID   int64  `json:"ModuleID"`
	ModuleName string `json:"ModuleName"`
}

// ResolvedIP is a host matched from a user supplied IP string.
// Placement is only set for "set|module|ip" matches.
type ResolvedIP struct {
	InnerIP string `json:"InnerIP"`
	HostID  int64  `json:"HostID"`
	Source  int64  `json:"Source"`
	*Placement
	Sets    []Set    `json:"Sets"`
	Modules []Module `json:"Modules"`
}

// ResolutionResult is the outcome of resolving an IP string against CMDB.
// Hosts that could not be found are reported in InvalidIP, never as an error.
type ResolutionResult struct {
	Result    bool         `json:"result"`
	IPResult  []ResolvedIP `json:"ip_result"`
	IPCount   int          `json:"ip_count"`
	InvalidIP []string     `json:"invalid_ip"`
}

// InnerIPs returns the inner IP of every resolved host
func (r *ResolutionResult) InnerIPs() []string {
	ips := make([]string, 0, len(r.IPResult))
	for _, item := range r.IPResult {
		ips = append(ips, item.InnerIP)
	}
	return ips
}
