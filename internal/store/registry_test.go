package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRegistry_MissingFile_ReturnsEmpty(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	reg, err := LoadRegistry(filepath.Join(tmp, "registry.yaml"))
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if reg == nil {
		t.Fatalf("registry is nil")
	}
	if len(reg.Nodes) != 0 {
		t.Fatalf("nodes=%d", len(reg.Nodes))
	}
}

func TestSaveRegistry_RoundTrip(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	path := filepath.Join(tmp, "registry.yaml")

	in := &Registry{Nodes: []NodeInfo{{
		UUID:       "QLX-ROUNDTRP",
		AvgPowerMW: 5120.5,
		Valor:      0.0042,
		LastSeenAt: time.Unix(1700000000, 0).UTC(),
	}}}
	if err := SaveRegistry(path, in); err != nil {
		t.Fatalf("SaveRegistry: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode=%o", info.Mode().Perm())
	}

	out, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(out.Nodes) != 1 {
		t.Fatalf("nodes=%d", len(out.Nodes))
	}
	if out.Nodes[0].UUID != "QLX-ROUNDTRP" || out.Nodes[0].AvgPowerMW != 5120.5 {
		t.Fatalf("node mismatch: %+v", out.Nodes[0])
	}
	if out.UpdatedAt.IsZero() {
		t.Fatalf("updated_at not set")
	}
}

func TestRegistry_Upsert(t *testing.T) {
	t.Parallel()

	reg := &Registry{}
	reg.Upsert(NodeInfo{UUID: "QLX-A", Name: "alpha", AvgPowerMW: 100})
	reg.Upsert(NodeInfo{UUID: "QLX-B", AvgPowerMW: 200})
	if len(reg.Nodes) != 2 {
		t.Fatalf("nodes=%d", len(reg.Nodes))
	}

	// Update keeps the prior name when the new entry has none.
	reg.Upsert(NodeInfo{UUID: "QLX-A", AvgPowerMW: 150})
	if len(reg.Nodes) != 2 {
		t.Fatalf("nodes=%d after update", len(reg.Nodes))
	}
	node, ok := reg.Find("QLX-A")
	if !ok || node.AvgPowerMW != 150 || node.Name != "alpha" {
		t.Fatalf("node=%+v ok=%v", node, ok)
	}
}
