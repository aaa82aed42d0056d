package store

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Registry persists registered nodes and their latest telemetry summary.
type Registry struct {
	UpdatedAt time.Time  `yaml:"updated_at"`
	Nodes     []NodeInfo `yaml:"nodes"`
}

// NodeInfo is a minimal snapshot for core persistence.
type NodeInfo struct {
	UUID       string    `yaml:"uuid"`
	Name       string    `yaml:"name,omitempty"`
	AvgPowerMW float64   `yaml:"avg_power_mw"`
	Valor      float64   `yaml:"valor"`
	LastSeenAt time.Time `yaml:"last_seen_at"`
}

// Upsert replaces the entry for node.UUID or appends a new one.
func (r *Registry) Upsert(node NodeInfo) {
	for i := range r.Nodes {
		if r.Nodes[i].UUID == node.UUID {
			if node.Name == "" {
				node.Name = r.Nodes[i].Name
			}
			r.Nodes[i] = node
			return
		}
	}
	r.Nodes = append(r.Nodes, node)
}

// Find returns the entry for uuid, if any.
func (r *Registry) Find(uuid string) (NodeInfo, bool) {
	for _, n := range r.Nodes {
		if n.UUID == uuid {
			return n, true
		}
	}
	return NodeInfo{}, false
}

// LoadRegistry loads the registry from disk. If the file is missing, returns an empty registry.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{}, nil
		}
		return nil, err
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, err
	}

	return &reg, nil
}

// SaveRegistry writes the registry to disk.
func SaveRegistry(path string, reg *Registry) error {
	if reg == nil {
		return nil
	}
	reg.UpdatedAt = time.Now().UTC()
	data, err := yaml.Marshal(reg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}
