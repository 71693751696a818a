package main_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

var kwBinaryPath string
var kwBinaryDir string

var (
	scriptTUISupported      = true
	scriptTUIDisabledReason string
)

const sampleLinks = `{"source":"notes/alpha.md","target":"notes/beta.md","relationship":"references"}
{"source":"notes/beta.md","target":"notes/gamma.md","relationship":"extends"}
{"source":"notes/gamma.md","target":"daily/log.md","relationship":"requires"}
`

func TestMain(m *testing.M) {
	// Keep the binary from querying the terminal in CI pipelines.
	os.Setenv("KW_TEST_MODE", "1")

	// Build the binary once for all tests
	if err := buildKwOnce(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build kw binary: %v\n", err)
		os.Exit(1)
	}

	scriptTUISupported, scriptTUIDisabledReason = detectScriptTUICapability(kwBinaryPath)

	code := m.Run()
	if kwBinaryDir != "" {
		_ = os.RemoveAll(kwBinaryDir)
	}
	os.Exit(code)
}

func buildKwOnce() error {
	tempDir, err := os.MkdirTemp("", "kw-e2e-build-*")
	if err != nil {
		return err
	}
	kwBinaryDir = tempDir

	binName := "kw"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	binPath := filepath.Join(tempDir, binName)

	cmd := exec.Command("go", "build", "-o", binPath, "../../cmd/kw")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("go build failed: %v\n%s", err, out)
	}

	kwBinaryPath = binPath
	return nil
}

// kwBinary returns the path to the pre-built binary.
func kwBinary(t *testing.T) string {
	t.Helper()
	if kwBinaryPath == "" {
		t.Fatal("kw binary not built")
	}
	return kwBinaryPath
}

// writeLinks creates a links.jsonl in dir with the given content.
func writeLinks(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "links.jsonl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write links.jsonl: %v", err)
	}
	return path
}

// isolatedEnv points the XDG dirs at throwaway locations so runs never read
// or write the developer's real config and cache.
func isolatedEnv(t *testing.T) []string {
	t.Helper()
	base := t.TempDir()
	return append(os.Environ(),
		"XDG_CONFIG_HOME="+filepath.Join(base, "config"),
		"XDG_STATE_HOME="+filepath.Join(base, "state"),
		"XDG_DATA_HOME="+filepath.Join(base, "data"),
		"KW_DIR=",
	)
}

func detectScriptTUICapability(kwPath string) (bool, string) {
	if _, err := exec.LookPath("script"); err != nil {
		return false, "script command not available"
	}
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		return false, "script TUI harness unsupported on this OS"
	}
	if kwPath == "" {
		return false, "kw binary path is empty"
	}

	tempDir, err := os.MkdirTemp("", "kw-e2e-tui-cap-*")
	if err != nil {
		return false, fmt.Sprintf("failed to create temp dir: %v", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	if err := os.WriteFile(filepath.Join(tempDir, "links.jsonl"), []byte(sampleLinks), 0o644); err != nil {
		return false, fmt.Sprintf("failed to write links.jsonl: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cmd := scriptTUICommand(ctx, kwPath)
	if cmd == nil {
		return false, "script command unavailable"
	}
	cmd.Dir = tempDir
	cmd.Env = append(os.Environ(),
		"TERM=xterm-256color",
		"KW_TUI_AUTOCLOSE_MS=250",
		"XDG_STATE_HOME="+filepath.Join(tempDir, "state"),
		"XDG_CONFIG_HOME="+filepath.Join(tempDir, "config"),
	)

	outFile := filepath.Join(tempDir, "script.out")
	f, err := os.Create(outFile)
	if err != nil {
		return false, fmt.Sprintf("failed to create output file: %v", err)
	}
	cmd.Stdout = f
	cmd.Stderr = f

	runErr := cmd.Run()
	_ = f.Close()

	if ctx.Err() == context.DeadlineExceeded {
		return false, "kw did not auto-exit under script (PTY/CI mismatch)"
	}
	if runErr != nil {
		return false, fmt.Sprintf("script TUI run failed: %v", runErr)
	}

	return true, ""
}

// skipIfNoScript skips the test if the script command is unavailable.
func skipIfNoScript(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("script"); err != nil {
		t.Skip("skipping: script command not available")
	}
	if !scriptTUISupported {
		if scriptTUIDisabledReason != "" {
			t.Skipf("skipping: %s", scriptTUIDisabledReason)
		}
		t.Skip("skipping: script-based TUI harness unavailable")
	}
}

// scriptTUICommand creates an exec.Cmd that runs the kw binary under
// `script` to provide a pseudo-TTY for TUI tests.
func scriptTUICommand(ctx context.Context, kwPath string, args ...string) *exec.Cmd {
	if _, err := exec.LookPath("script"); err != nil {
		return nil
	}

	switch runtime.GOOS {
	case "darwin":
		scriptArgs := []string{"-q", "/dev/null", kwPath}
		scriptArgs = append(scriptArgs, args...)
		return exec.CommandContext(ctx, "script", scriptArgs...)

	case "linux":
		cmdStr := kwPath
		for _, arg := range args {
			if strings.ContainsAny(arg, " \t") {
				cmdStr += " \"" + arg + "\""
			} else {
				cmdStr += " " + arg
			}
		}
		return exec.CommandContext(ctx, "script", "-q", "-e", "-f", "-c", cmdStr, "/dev/null")

	default:
		return nil
	}
}

// ensureCmdStdinCloses wires a controllable stdin for command execution.
func ensureCmdStdinCloses(t *testing.T, ctx context.Context, cmd *exec.Cmd, closeAfter time.Duration) {
	t.Helper()
	if cmd == nil || cmd.Stdin != nil {
		return
	}
	stdinR, stdinW := io.Pipe()
	cmd.Stdin = stdinR
	t.Cleanup(func() {
		_ = stdinW.Close()
		_ = stdinR.Close()
	})

	go func() {
		select {
		case <-ctx.Done():
			_ = stdinW.Close()
		case <-time.After(closeAfter):
			_ = stdinW.Close()
		}
	}()
}

// runCmdToFile runs a command and captures stdout+stderr to a temp file.
func runCmdToFile(t *testing.T, cmd *exec.Cmd) ([]byte, error) {
	t.Helper()
	if cmd == nil {
		return nil, fmt.Errorf("nil cmd")
	}

	outPath := filepath.Join(t.TempDir(), "cmd.out")
	f, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	cmd.Stdout = f
	cmd.Stderr = f

	runErr := cmd.Run()
	_ = f.Close()

	out, readErr := os.ReadFile(outPath)
	if readErr != nil {
		return nil, fmt.Errorf("read output file: %w (run err: %v)", readErr, runErr)
	}
	return out, runErr
}
