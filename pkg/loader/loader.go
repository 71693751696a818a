package loader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/knotwork/pkg/debug"
	"github.com/vanderheijden86/knotwork/pkg/metrics"
	"github.com/vanderheijden86/knotwork/pkg/model"
)

// DirEnvVar is the name of the environment variable for a custom link
// store directory.
const DirEnvVar = "KW_DIR"

// PreferredJSONLNames defines the priority order for looking up edge files.
var PreferredJSONLNames = []string{"links.jsonl", "edges.jsonl"}

// ResolveDir returns the link store directory, respecting KW_DIR.
// If KW_DIR is set, it is used directly. Otherwise the given root is used,
// falling back to the working directory when root is empty.
func ResolveDir(root string) (string, error) {
	if envDir := os.Getenv(DirEnvVar); envDir != "" {
		return envDir, nil
	}

	if root == "" {
		var err error
		root, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current working directory: %w", err)
		}
	}

	return root, nil
}

// FindJSONLPath locates the edge JSONL file in the given directory.
// Prefers links.jsonl over edges.jsonl. Skips backup files and merge
// artifacts.
func FindJSONLPath(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read link store directory: %w", err)
	}

	var candidates []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()

		if !strings.HasSuffix(name, ".jsonl") {
			continue
		}

		// Skip backups and merge artifacts
		if strings.Contains(name, ".backup") ||
			strings.Contains(name, ".orig") ||
			strings.Contains(name, ".merge") {
			continue
		}

		candidates = append(candidates, name)
	}

	if len(candidates) == 0 {
		return "", fmt.Errorf("no edge JSONL file found in %s", dir)
	}

	for _, preferred := range PreferredJSONLNames {
		for _, name := range candidates {
			if name == preferred {
				path := filepath.Join(dir, name)
				// Check if file has content (skip empty files)
				if info, err := os.Stat(path); err == nil && info.Size() > 0 {
					return path, nil
				}
			}
		}
	}

	// Fall back to first non-empty candidate
	for _, name := range candidates {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			return path, nil
		}
	}

	// Last resort: return first candidate even if empty
	return filepath.Join(dir, candidates[0]), nil
}

// Load reads edges from the link store directory under root.
// Respects the KW_DIR environment variable and picks the preferred JSONL
// file automatically.
func Load(root string) ([]model.Edge, error) {
	dir, err := ResolveDir(root)
	if err != nil {
		return nil, err
	}

	path, err := FindJSONLPath(dir)
	if err != nil {
		return nil, err
	}

	return LoadFile(path)
}

// DefaultMaxBufferSize is the default buffer size for the line reader (10MB).
const DefaultMaxBufferSize = 1024 * 1024 * 10

// ParseOptions configures the behavior of Parse.
type ParseOptions struct {
	// WarningHandler is called with warning messages (e.g., malformed JSON).
	// If nil, warnings are printed to os.Stderr.
	WarningHandler func(string)

	// BufferSize sets the maximum line size (in bytes) to read at once.
	// Lines longer than this are skipped with a warning.
	// If 0, uses DefaultMaxBufferSize (10MB).
	BufferSize int

	// EdgeFilter optionally filters parsed edges. Return true to include.
	// When nil, all valid edges are included.
	EdgeFilter func(model.Edge) bool
}

// LoadFile reads edges directly from a specific JSONL file path.
func LoadFile(path string) ([]model.Edge, error) {
	return LoadFileWithOptions(path, ParseOptions{})
}

// LoadFileWithOptions reads edges from a file with custom options.
func LoadFileWithOptions(path string, opts ParseOptions) ([]model.Edge, error) {
	defer metrics.Timer(metrics.EdgeParse)()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no edge file found at %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open edge file: %w", err)
	}
	defer file.Close()

	return ParseWithOptions(file, opts)
}

// Parse parses JSONL content from a reader into edges.
// Handles UTF-8 BOM stripping, large lines, and validation.
func Parse(r io.Reader) ([]model.Edge, error) {
	return ParseWithOptions(r, ParseOptions{})
}

// ParseWithOptions parses JSONL content with custom options. One edge
// object per line; blank lines and #-comments are skipped; malformed or
// invalid lines are warned about and skipped, never fatal.
func ParseWithOptions(r io.Reader, opts ParseOptions) ([]model.Edge, error) {
	var edges []model.Edge
	if f, ok := r.(*os.File); ok {
		if info, err := f.Stat(); err == nil {
			// Heuristic: average edge line ~128 bytes. Prefer conservative
			// underestimation to avoid large over-allocations for big files.
			const avgEdgeBytes = 128
			const minCap = 64
			const maxCap = 500_000

			est := int(info.Size() / avgEdgeBytes)
			if est < minCap && info.Size() > 0 {
				est = minCap
			}
			if est > maxCap {
				est = maxCap
			}
			if est > 0 {
				edges = make([]model.Edge, 0, est)
			}
		}
	}

	// Determine buffer size
	maxCapacity := opts.BufferSize
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxBufferSize
	}

	reader := bufio.NewReaderSize(r, maxCapacity)

	// Default warning handler prints to stderr (suppressed in robot mode).
	warn := opts.WarningHandler
	if warn == nil {
		if os.Getenv("KW_ROBOT") == "1" {
			warn = func(string) {}
		} else {
			warn = func(msg string) {
				fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
			}
		}
	}

	lineNum := 0
	skipped := 0
	for {
		lineNum++
		// ReadLine returns a single line, not including the end-of-line
		// bytes. If the line was too long for the buffer then isPrefix is
		// set and the beginning of the line is returned.
		line, isPrefix, err := reader.ReadLine()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading edge stream at line %d: %w", lineNum, err)
		}

		if isPrefix {
			// Line too long. Discard the rest of the line.
			warn(fmt.Sprintf("skipping line %d: line too long (exceeds %d bytes)", lineNum, maxCapacity))
			for isPrefix {
				_, isPrefix, err = reader.ReadLine()
				if err != nil && err != io.EOF {
					return nil, fmt.Errorf("error skipping long line at line %d: %w", lineNum, err)
				}
				if err == io.EOF {
					break
				}
			}
			skipped++
			continue
		}

		if len(line) == 0 {
			continue
		}

		// Strip UTF-8 BOM if present on the first line
		if lineNum == 1 {
			line = stripBOM(line)
		}

		if len(line) == 0 || line[0] == '#' {
			continue
		}

		var edge model.Edge
		if err := json.Unmarshal(line, &edge); err != nil {
			warn(fmt.Sprintf("skipping malformed JSON on line %d: %v", lineNum, err))
			skipped++
			continue
		}

		edge.Relationship = normalizeRelationship(edge.Relationship)

		if err := edge.Validate(); err != nil {
			warn(fmt.Sprintf("skipping invalid edge on line %d: %v", lineNum, err))
			skipped++
			continue
		}

		if opts.EdgeFilter != nil && !opts.EdgeFilter(edge) {
			continue
		}

		edges = append(edges, edge)
	}

	debug.Log("parsed %d edges (%d lines skipped)", len(edges), skipped)
	return edges, nil
}

// stripBOM removes the UTF-8 Byte Order Mark if present
func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}

func normalizeRelationship(r model.Relationship) model.Relationship {
	trimmed := strings.TrimSpace(string(r))
	if trimmed == "" {
		return r
	}
	return model.Relationship(strings.ToLower(trimmed))
}
