package main_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

type positionsPayload struct {
	GeneratedAt string `json:"generated_at"`
	DataHash    string `json:"data_hash"`
	Vault       string `json:"vault"`
	NodeCount   int    `json:"node_count"`
	LinkCount   int    `json:"link_count"`
	Components  int    `json:"components"`
	FromCache   bool   `json:"from_cache"`
	Nodes       map[string]struct {
		X           float64 `json:"x"`
		Y           float64 `json:"y"`
		Category    string  `json:"category"`
		Connections int     `json:"connections"`
	} `json:"nodes"`
	Edges []struct {
		Source       string `json:"source"`
		Target       string `json:"target"`
		Relationship string `json:"relationship"`
	} `json:"edges"`
	TopHubs []string `json:"top_hubs"`
}

func runPositions(t *testing.T, vaultDir string, extra ...string) positionsPayload {
	t.Helper()
	args := append([]string{"-positions"}, extra...)
	cmd := exec.Command(kwBinary(t), args...)
	cmd.Dir = vaultDir
	cmd.Env = isolatedEnv(t)
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("kw %v failed: %v\n%s", args, err, out)
	}

	var payload positionsPayload
	if err := json.Unmarshal(out, &payload); err != nil {
		t.Fatalf("positions output is not valid JSON: %v\n%s", err, out)
	}
	return payload
}

func TestRobotPositionsContract(t *testing.T) {
	vault := t.TempDir()
	writeLinks(t, vault, sampleLinks)
	cacheDir := t.TempDir()

	payload := runPositions(t, vault, "-cache-dir", cacheDir)

	if payload.NodeCount != 4 || payload.LinkCount != 3 {
		t.Fatalf("counts = %d nodes / %d links, want 4/3", payload.NodeCount, payload.LinkCount)
	}
	if payload.FromCache {
		t.Error("first run must not come from cache")
	}
	if payload.DataHash == "" || payload.GeneratedAt == "" {
		t.Error("provenance fields missing")
	}
	if payload.Components != 1 {
		t.Errorf("components = %d, want 1 for a connected chain", payload.Components)
	}

	n, ok := payload.Nodes["notes/alpha.md"]
	if !ok {
		t.Fatalf("nodes map missing notes/alpha.md; got %d nodes", len(payload.Nodes))
	}
	if n.Category != "notes" || n.Connections < 1 {
		t.Errorf("node fields wrong: %+v", n)
	}
	if n.X == 0 && n.Y == 0 {
		t.Error("settled node still at origin; layout did not run")
	}

	if len(payload.Edges) != 3 {
		t.Fatalf("expected 3 edges, got %d", len(payload.Edges))
	}
	if payload.Edges[0].Relationship != "references" {
		t.Errorf("edge relationship = %q, want references", payload.Edges[0].Relationship)
	}
	if len(payload.TopHubs) == 0 {
		t.Error("expected top hubs in the payload")
	}
}

func TestRobotPositionsCacheRoundtrip(t *testing.T) {
	vault := t.TempDir()
	writeLinks(t, vault, sampleLinks)
	cacheDir := t.TempDir()

	first := runPositions(t, vault, "-cache-dir", cacheDir)
	second := runPositions(t, vault, "-cache-dir", cacheDir)

	if first.FromCache {
		t.Error("first run should settle from scratch")
	}
	if !second.FromCache {
		t.Error("second run should restore from the cache")
	}
	if first.DataHash != second.DataHash {
		t.Errorf("data hash changed across identical runs: %q vs %q", first.DataHash, second.DataHash)
	}
	for id, n := range first.Nodes {
		m, ok := second.Nodes[id]
		if !ok {
			t.Fatalf("node %s missing from cached run", id)
		}
		if n.X != m.X || n.Y != m.Y {
			t.Errorf("node %s moved across cache restore: (%v,%v) vs (%v,%v)", id, n.X, n.Y, m.X, m.Y)
		}
	}

	// The cache record lands in the explicit -cache-dir.
	entries, err := filepath.Glob(filepath.Join(cacheDir, "layout-*.json"))
	if err != nil || len(entries) == 0 {
		t.Errorf("expected a layout-*.json record in %s (err %v)", cacheDir, err)
	}
}

func TestRobotPositionsNoCache(t *testing.T) {
	vault := t.TempDir()
	writeLinks(t, vault, sampleLinks)
	cacheDir := t.TempDir()

	runPositions(t, vault, "-cache-dir", cacheDir, "-no-cache")
	second := runPositions(t, vault, "-cache-dir", cacheDir, "-no-cache")
	if second.FromCache {
		t.Error("-no-cache run must never restore from cache")
	}

	entries, _ := filepath.Glob(filepath.Join(cacheDir, "layout-*"))
	if len(entries) != 0 {
		t.Errorf("-no-cache run should not write cache records, found %v", entries)
	}
}

func TestRobotStatsContract(t *testing.T) {
	vault := t.TempDir()
	writeLinks(t, vault, sampleLinks)

	cmd := exec.Command(kwBinary(t), "-stats")
	cmd.Dir = vault
	cmd.Env = isolatedEnv(t)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("kw -stats failed: %v\n%s", err, out)
	}

	for _, snippet := range []string{"vault:", "nodes: 4", "links: 3", "top hubs"} {
		if !strings.Contains(string(out), snippet) {
			t.Errorf("stats output missing %q:\n%s", snippet, out)
		}
	}
}

func TestBareRunWithoutTTYPrintsAgentGuidance(t *testing.T) {
	vault := t.TempDir()
	writeLinks(t, vault, sampleLinks)

	// Stdout is a pipe here, so the binary must fall back to the robot
	// summary instead of starting the TUI handshake.
	cmd := exec.Command(kwBinary(t))
	cmd.Dir = vault
	cmd.Env = isolatedEnv(t)
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("bare kw run failed: %v\n%s", err, out)
	}

	for _, snippet := range []string{"-positions", "-stats", "nodes: 4"} {
		if !strings.Contains(string(out), snippet) {
			t.Errorf("fallback output missing %q:\n%s", snippet, out)
		}
	}
}

func TestVersionAndHelp(t *testing.T) {
	out, err := exec.Command(kwBinary(t), "-version").CombinedOutput()
	if err != nil {
		t.Fatalf("kw -version failed: %v\n%s", err, out)
	}
	if !strings.HasPrefix(string(out), "kw v") {
		t.Errorf("version output = %q, want kw v... prefix", out)
	}

	out, err = exec.Command(kwBinary(t), "-help").CombinedOutput()
	if err != nil {
		t.Fatalf("kw -help failed: %v\n%s", err, out)
	}
	for _, snippet := range []string{"Usage: kw", "-snapshot", "-positions", "-cache-dir"} {
		if !strings.Contains(string(out), snippet) {
			t.Errorf("help output missing %q", snippet)
		}
	}
}

func TestEmptyVaultExitsCleanly(t *testing.T) {
	vault := t.TempDir()
	writeLinks(t, vault, "")

	cmd := exec.Command(kwBinary(t), "-stats")
	cmd.Dir = vault
	cmd.Env = isolatedEnv(t)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("kw -stats on empty vault should exit 0: %v\n%s", err, out)
	}
	if !strings.Contains(string(out), "No links found") {
		t.Errorf("expected empty-vault notice, got:\n%s", out)
	}
}

func TestMissingVaultFailsWithGuidance(t *testing.T) {
	vault := t.TempDir() // no links.jsonl at all

	cmd := exec.Command(kwBinary(t), "-stats")
	cmd.Dir = vault
	cmd.Env = isolatedEnv(t)
	out, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("kw -stats without link data should fail, got:\n%s", out)
	}
	if !strings.Contains(string(out), "KW_DIR") {
		t.Errorf("error output should mention KW_DIR guidance:\n%s", out)
	}
}

func TestAgentsMDInstall(t *testing.T) {
	project := t.TempDir()

	cmd := exec.Command(kwBinary(t), "-agents-md", project)
	cmd.Env = isolatedEnv(t)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("kw -agents-md failed: %v\n%s", err, out)
	}

	data, err := os.ReadFile(filepath.Join(project, "AGENTS.md"))
	if err != nil {
		t.Fatalf("AGENTS.md not created: %v", err)
	}
	if !strings.Contains(string(data), "kw-agent-instructions") {
		t.Error("AGENTS.md missing the instructions block")
	}

	// Second run is a no-op.
	cmd = exec.Command(kwBinary(t), "-agents-md", project)
	cmd.Env = isolatedEnv(t)
	out, err = cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("second -agents-md run failed: %v\n%s", err, out)
	}
	if !strings.Contains(string(out), "up to date") {
		t.Errorf("second run should report up to date, got:\n%s", out)
	}
}
