// Package agents integrates kw with AI coding agents: a TTY guard that
// keeps terminal probing out of machine-read output, and an instructions
// blurb that can be injected into AGENTS.md-style files so agents reach for
// the robot flags instead of the TUI.
package agents

import (
	"regexp"
	"strconv"
	"strings"
)

// BlurbVersion is the current version of the agent instructions blurb.
// Increment this when making breaking changes to the blurb format.
const BlurbVersion = 1

// BlurbStartMarker marks the beginning of injected agent instructions.
const BlurbStartMarker = "<!-- kw-agent-instructions-v1 -->"

// BlurbEndMarker marks the end of injected agent instructions.
const BlurbEndMarker = "<!-- end-kw-agent-instructions -->"

// AgentBlurb contains the instructions to be appended to AGENTS.md files.
const AgentBlurb = `<!-- kw-agent-instructions-v1 -->

---

## Vault Graph Integration

This project uses [knotwork](https://github.com/vanderheijden86/knotwork) to explore the note link graph. Edges live in ` + "`" + `links.jsonl` + "`" + ` (or a links SQLite database) in the vault root.

### Essential Commands

` + "```" + `bash
# Interactive explorer (launches a TUI - avoid in automated sessions)
kw

# Headless commands for agents (use these instead)
kw -stats             # Structural summary: notes, links, components, hubs
kw -positions         # Settled layout as JSON (positions, degrees, ranks)
kw -snapshot out.svg  # Render the settled layout to SVG or PNG
` + "```" + `

### Key Concepts

- **Edges**: one JSON object per line: source, target, relationship.
- **Relationships**: extends, references, contradicts, requires, blocks, relates-to.
- **Layout cache**: settled positions persist per vault; ` + "`" + `kw -positions` + "`" + ` reuses them instead of re-simulating, so repeated calls are cheap.
- **Hubs**: ` + "`" + `kw -stats` + "`" + ` ranks notes by PageRank; high-rank notes are the vault's load-bearing pages.

### Best Practices

- Never launch plain ` + "`" + `kw` + "`" + ` from automation; it owns the terminal until quit.
- Parse ` + "`" + `kw -positions` + "`" + ` output as JSON; set ` + "`" + `KW_ROBOT=1` + "`" + ` to keep control sequences out of stdout.
- After editing links, rerun ` + "`" + `kw -stats` + "`" + ` to check for orphaned components.

<!-- end-kw-agent-instructions -->`

// SupportedAgentFiles lists the filenames that can contain agent instructions.
var SupportedAgentFiles = []string{
	"AGENTS.md",
	"CLAUDE.md",
	"agents.md",
	"claude.md",
}

// blurbVersionRegex extracts the version number from a blurb marker.
var blurbVersionRegex = regexp.MustCompile(`<!-- kw-agent-instructions-v(\d+) -->`)

// ContainsBlurb checks if the content already contains a knotwork agent blurb.
func ContainsBlurb(content string) bool {
	return strings.Contains(content, "<!-- kw-agent-instructions-v")
}

// GetBlurbVersion extracts the version number from existing blurb content.
func GetBlurbVersion(content string) int {
	matches := blurbVersionRegex.FindStringSubmatch(content)
	if len(matches) < 2 {
		return 0
	}
	version, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0
	}
	return version
}

// NeedsUpdate checks if the content has an older version of the blurb that
// should be updated.
func NeedsUpdate(content string) bool {
	if !ContainsBlurb(content) {
		return false
	}
	return GetBlurbVersion(content) < BlurbVersion
}

// AppendBlurb appends the agent blurb to the given content.
func AppendBlurb(content string) string {
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += "\n"
	content += AgentBlurb
	content += "\n"
	return content
}

// RemoveBlurb removes an existing blurb from the content.
func RemoveBlurb(content string) string {
	startIdx := strings.Index(content, "<!-- kw-agent-instructions-v")
	if startIdx == -1 {
		return content
	}
	endIdx := strings.Index(content, BlurbEndMarker)
	if endIdx == -1 {
		return content
	}
	endIdx += len(BlurbEndMarker)
	for endIdx < len(content) && (content[endIdx] == '\n' || content[endIdx] == '\r') {
		endIdx++
	}
	for startIdx > 0 && (content[startIdx-1] == '\n' || content[startIdx-1] == '\r') {
		startIdx--
	}
	return content[:startIdx] + content[endIdx:]
}

// UpdateBlurb replaces an existing blurb with the current version.
func UpdateBlurb(content string) string {
	content = RemoveBlurb(content)
	return AppendBlurb(content)
}

// CommandHint is the short plain-text pointer printed when kw detects a
// non-interactive stdout without a robot flag.
func CommandHint() string {
	return strings.Join([]string{
		"kw is interactive; stdout is not a terminal.",
		"Machine-readable modes:",
		"  kw -stats             structural summary",
		"  kw -positions         settled layout as JSON",
		"  kw -snapshot out.svg  render to SVG/PNG",
	}, "\n")
}
