package domain

import "encoding/json"

// UnsetID marks a cloud or host id that CMDB did not report
const UnsetID int64 = -1

// Set represents a CMDB set (cluster) the host belongs to
type Set struct {
	ID   int64  `json:"bk_set_id"`
	Name string `json:"bk_set_name"`
}

// Module represents a CMDB module the host belongs to
type Module struct {
	ID   int64  `json:"bk_module_id"`
	Name string `json:"bk_module_name"`
}

// ServiceTemplate represents a CMDB service template
type ServiceTemplate struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Host contains the host attributes requested from CMDB
type Host struct {
	InnerIP string `json:"bk_host_innerip"`
	ID      int64  `json:"bk_host_id"`
	CloudID int64  `json:"bk_cloud_id"`
}

// UnmarshalJSON defaults a missing bk_cloud_id to UnsetID
func (h *Host) UnmarshalJSON(b []byte) error {
	var raw struct {
		InnerIP string `json:"bk_host_innerip"`
		ID      int64  `json:"bk_host_id"`
		CloudID *int64 `json:"bk_cloud_id"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	h.InnerIP = raw.InnerIP
	h.ID = raw.ID
	h.CloudID = UnsetID
	if raw.CloudID != nil {
		h.CloudID = *raw.CloudID
	}
	return nil
}

// HostTopo is a single host together with its set and module memberships,
// in the order the topology service returned them
type HostTopo struct {
	Host    Host     `json:"host"`
	Sets    []Set    `json:"set"`
	Modules []Module `json:"module"`
}
