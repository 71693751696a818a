package main_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func runSnapshot(t *testing.T, vaultDir, outPath string) {
	t.Helper()
	cmd := exec.Command(kwBinary(t), "-snapshot", outPath, "-no-cache")
	cmd.Dir = vaultDir
	cmd.Env = isolatedEnv(t)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("kw -snapshot %s failed: %v\n%s", outPath, err, out)
	}
}

// TestSnapshotExportE2E renders both formats through the real binary.
func TestSnapshotExportE2E(t *testing.T) {
	vault := t.TempDir()
	writeLinks(t, vault, sampleLinks)
	outDir := t.TempDir()

	svgPath := filepath.Join(outDir, "graph.svg")
	runSnapshot(t, vault, svgPath)
	svg, err := os.ReadFile(svgPath)
	if err != nil {
		t.Fatalf("svg not written: %v", err)
	}
	for _, tag := range []string{"<svg", "</svg>", "circle"} {
		if !strings.Contains(string(svg), tag) {
			t.Errorf("svg output missing %q:\n%.200s", tag, svg)
		}
	}

	pngPath := filepath.Join(outDir, "graph.png")
	runSnapshot(t, vault, pngPath)
	png, err := os.ReadFile(pngPath)
	if err != nil {
		t.Fatalf("png not written: %v", err)
	}
	if len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Errorf("png output missing magic bytes")
	}
}

// TestSnapshotSeedsLayoutCache checks the headless settle also persists its
// result, so the next TUI launch starts from the cached layout.
func TestSnapshotSeedsLayoutCache(t *testing.T) {
	vault := t.TempDir()
	writeLinks(t, vault, sampleLinks)
	cacheDir := t.TempDir()

	cmd := exec.Command(kwBinary(t), "-snapshot", filepath.Join(t.TempDir(), "g.svg"), "-cache-dir", cacheDir)
	cmd.Dir = vault
	cmd.Env = isolatedEnv(t)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("snapshot run failed: %v\n%s", err, out)
	}

	records, err := filepath.Glob(filepath.Join(cacheDir, "layout-*.json"))
	if err != nil || len(records) == 0 {
		t.Fatalf("snapshot should leave a cache record in %s (err %v)", cacheDir, err)
	}

	payload := runPositions(t, vault, "-cache-dir", cacheDir)
	if !payload.FromCache {
		t.Error("positions after snapshot should restore from the seeded cache")
	}
}

// TestSnapshotAndExportFlagsConflict covers the guard for the two export
// entrypoints.
func TestSnapshotAndExportFlagsConflict(t *testing.T) {
	vault := t.TempDir()
	writeLinks(t, vault, sampleLinks)

	cmd := exec.Command(kwBinary(t), "-snapshot", "out.svg", "-export")
	cmd.Dir = vault
	cmd.Env = isolatedEnv(t)
	out, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("conflicting flags should fail, got:\n%s", out)
	}
	if !strings.Contains(string(out), "mutually exclusive") {
		t.Errorf("expected mutual-exclusion error, got:\n%s", out)
	}
}
