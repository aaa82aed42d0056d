package api

// Auth identifies the submitting node. Placeholder for future network
// authentication; today the UUID is the only credential.
type Auth struct {
	UUID string `json:"uuid"`
}

// Telemetry is the windowed summary a node reports per uplink.
type Telemetry struct {
	AvgMW      float64 `json:"avg_mw"`
	TotalValor float64 `json:"total_valor"`
}

// UplinkRequest is the payload POSTed to /api/uplink.
type UplinkRequest struct {
	Auth      Auth      `json:"auth"`
	Telemetry Telemetry `json:"telemetry"`
	Name      string    `json:"name,omitempty"`
	// Timestamp is seconds since the Unix epoch.
	Timestamp float64 `json:"timestamp"`
}

// UplinkResponse acknowledges a received uplink.
type UplinkResponse struct {
	Status string `json:"status"`
}

// NodeSummary is one fleet entry returned by /api/nodes.
type NodeSummary struct {
	UUID       string  `json:"uuid"`
	Name       string  `json:"name,omitempty"`
	AvgMW      float64 `json:"avg_mw"`
	TotalValor float64 `json:"total_valor"`
	LastSeen   float64 `json:"last_seen"`
	Status     string  `json:"status"`
}

// NodesResponse lists the registered fleet.
type NodesResponse struct {
	Nodes []NodeSummary `json:"nodes"`
}
