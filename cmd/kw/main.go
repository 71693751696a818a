package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"hash/fnv"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/vanderheijden86/knotwork/internal/datasource"
	"github.com/vanderheijden86/knotwork/pkg/agents"
	"github.com/vanderheijden86/knotwork/pkg/analysis"
	"github.com/vanderheijden86/knotwork/pkg/config"
	"github.com/vanderheijden86/knotwork/pkg/debug"
	"github.com/vanderheijden86/knotwork/pkg/export"
	"github.com/vanderheijden86/knotwork/pkg/layout"
	"github.com/vanderheijden86/knotwork/pkg/layoutcache"
	"github.com/vanderheijden86/knotwork/pkg/loader"
	"github.com/vanderheijden86/knotwork/pkg/metrics"
	"github.com/vanderheijden86/knotwork/pkg/model"
	"github.com/vanderheijden86/knotwork/pkg/ui"
	"github.com/vanderheijden86/knotwork/pkg/version"
	"github.com/vanderheijden86/knotwork/pkg/watcher"
	"github.com/vanderheijden86/knotwork/pkg/workspace"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

func main() {
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	memProfile := flag.String("mem-profile", "", "Write heap profile to file on exit")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	snapshotPath := flag.String("snapshot", "", "Render a snapshot to the given .svg or .png path and exit")
	titleFlag := flag.String("title", "", "Snapshot title (with -snapshot; defaults to the vault name)")
	exportFlag := flag.Bool("export", false, "Run the interactive export wizard and exit")
	statsFlag := flag.Bool("stats", false, "Print a graph analysis summary and exit")
	positionsFlag := flag.Bool("positions", false, "Print settled node positions as JSON and exit")
	watchFlag := flag.Bool("watch", true, "Live-reload when the link file changes (TUI only)")
	noCache := flag.Bool("no-cache", false, "Skip the layout cache for this run")
	cacheDir := flag.String("cache-dir", "", "Layout cache directory (default: state dir)")
	agentsMDFlag := flag.Bool("agents-md", false, "Install or refresh the agent instructions block in AGENTS.md and exit")
	flag.Parse()

	// CPU profiling support
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fmt.Println("Usage: kw [options] [path]")
		fmt.Println("\nA terminal explorer for note-vault link graphs.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("kw %s\n", version.Version)
		if version.Commit != "" || version.Date != "" {
			fmt.Printf("  commit %s, built %s\n", version.Commit, version.Date)
		}
		os.Exit(0)
	}

	if *snapshotPath != "" && *exportFlag {
		fmt.Fprintln(os.Stderr, "Error: -snapshot and -export are mutually exclusive")
		os.Exit(2)
	}

	root := strings.TrimSpace(flag.Arg(0))

	// Handle -agents-md: needs no link data, only a project directory.
	if *agentsMDFlag {
		dir := root
		if dir == "" {
			var err error
			dir, err = os.Getwd()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error resolving working directory: %v\n", err)
				os.Exit(1)
			}
		}
		if err := installAgentBlurb(dir, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error updating agent instructions: %v\n", err)
			os.Exit(1)
		}
		exitRobot(0, *memProfile)
	}

	// Load config before the link data: configured workspaces decide where
	// the data comes from when no path is given.
	appCfg, cfgErr := config.Load()
	if cfgErr != nil {
		// Non-fatal: continue with defaults
		appCfg = config.DefaultConfig()
	}

	src, err := loadEdges(root, appCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading links: %v\n", err)
		fmt.Fprintln(os.Stderr, "Point kw at a directory containing links.jsonl, or set KW_DIR.")
		os.Exit(1)
	}

	if len(src.edges) == 0 {
		fmt.Println("No links found. Export your vault's link graph to links.jsonl first.")
		os.Exit(0)
	}

	store := buildStore(appCfg, *cacheDir, *noCache, src)

	// Handle -stats
	if *statsFlag {
		printStats(os.Stdout, src.vaultName, src.edges)
		exitRobot(0, *memProfile)
	}

	// Handle -positions
	if *positionsFlag {
		sim, fromCache := settleLayout(appCfg, src.edges, store)
		stats := analysis.NewAnalyzer(src.edges).Analyze()
		out := buildPositionsOutput(sim.Model(), stats, src.vaultName, fromCache)
		if err := writePositionsOutput(os.Stdout, out); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing positions: %v\n", err)
			os.Exit(1)
		}
		exitRobot(0, *memProfile)
	}

	// Handle -snapshot
	if *snapshotPath != "" {
		title := *titleFlag
		if title == "" {
			title = src.vaultName
		}
		sim, _ := settleLayout(appCfg, src.edges, store)
		opts := export.SnapshotOptions{
			Path:     *snapshotPath,
			Title:    title,
			Model:    sim.Model(),
			Stats:    analysis.NewAnalyzer(src.edges).Analyze(),
			DataHash: layoutcache.Fingerprint(src.edges),
		}
		if err := export.WriteSnapshot(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing snapshot: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", *snapshotPath)
		exitRobot(0, *memProfile)
	}

	// Handle -export
	if *exportFlag {
		wopts, err := export.RunWizard()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Export cancelled: %v\n", err)
			os.Exit(1)
		}
		sim, _ := settleLayout(appCfg, src.edges, store)
		wopts.Model = sim.Model()
		wopts.Stats = analysis.NewAnalyzer(src.edges).Analyze()
		wopts.DataHash = layoutcache.Fingerprint(src.edges)
		if err := export.WriteSnapshot(wopts); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing snapshot: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", wopts.Path)
		exitRobot(0, *memProfile)
	}

	// Agents and CI pipelines run kw with stdout redirected; a TUI
	// handshake would hang there. Fall back to the robot summary unless an
	// autoclose window says the caller really wants the TUI loop.
	autoclose := os.Getenv("KW_TUI_AUTOCLOSE_MS") != ""
	if !autoclose && (os.Getenv("KW_ROBOT") == "1" || !term.IsTerminal(int(os.Stdout.Fd()))) {
		fmt.Println(agents.CommandHint())
		fmt.Println()
		printStats(os.Stdout, src.vaultName, src.edges)
		exitRobot(0, *memProfile)
	}

	// Launch TUI
	var fw *watcher.Watcher
	if *watchFlag && src.linkPath != "" {
		w, werr := watcher.NewWatcher(src.linkPath)
		if werr != nil {
			debug.Log("watcher init failed: %v", werr)
		} else if serr := w.Start(); serr != nil {
			debug.Log("watcher start failed: %v", serr)
		} else {
			fw = w
		}
	}

	m := ui.NewModel(ui.Options{
		Edges:     src.edges,
		Config:    appCfg,
		Store:     store,
		Watcher:   fw,
		Reload:    src.reload,
		VaultName: src.vaultName,
	})

	if err := runTUIProgram(m); err != nil {
		fmt.Printf("Error running knotwork: %v\n", err)
		os.Exit(1)
	}
	writeMemProfile(*memProfile)
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set KW_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("KW_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}

// edgeSource is one loaded link data set together with enough provenance to
// reload and cache it.
type edgeSource struct {
	edges     []model.Edge
	vaultName string

	// linkPath is the JSONL file backing a single-root run. Empty when
	// several workspace roots were merged, which also disables watching.
	linkPath string

	// cacheKey keeps distinct data sources in distinct cache records.
	cacheKey string

	reload func() ([]model.Edge, error)
}

func loadEdges(root string, cfg config.Config) (edgeSource, error) {
	// An explicit path argument or KW_DIR wins over configured workspaces.
	if root == "" && os.Getenv(loader.DirEnvVar) == "" && len(cfg.Workspaces) > 0 {
		return loadWorkspaceEdges(cfg.Workspaces)
	}

	// Smart source detection: SQLite link stores are preferred when
	// fresher, plain JSONL otherwise.
	edges, err := datasource.LoadEdges(root)
	if err != nil {
		return edgeSource{}, err
	}

	dir, err := loader.ResolveDir(root)
	if err != nil {
		return edgeSource{}, err
	}
	// Watch the JSONL file when one exists. SQLite-only stores have no
	// stable file to watch, so live reload stays off for them.
	linkPath, _ := loader.FindJSONLPath(dir)

	key := dir
	if abs, aerr := filepath.Abs(dir); aerr == nil {
		key = abs
	}
	return edgeSource{
		edges:     edges,
		vaultName: filepath.Base(dir),
		linkPath:  linkPath,
		cacheKey:  key,
		reload:    func() ([]model.Edge, error) { return datasource.LoadEdges(root) },
	}, nil
}

func loadWorkspaceEdges(entries []config.Workspace) (edgeSource, error) {
	roots := workspace.RootsFromConfig(entries)
	wl := workspace.NewLoader(roots)
	if debug.Enabled() {
		wl.SetLogger(log.New(os.Stderr, "", 0))
	}

	edges, results, err := wl.LoadAll(context.Background())
	if err != nil {
		return edgeSource{}, err
	}

	sum := workspace.Summarize(results)
	if sum.FailedRoots > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d of %d workspace roots failed to load (%s)\n",
			sum.FailedRoots, sum.TotalRoots, strings.Join(sum.FailedRootNames, ", "))
	}

	name := fmt.Sprintf("%d vaults", sum.SuccessfulRoots)
	if len(roots) == 1 {
		name = roots[0].DisplayName()
	}

	paths := make([]string, 0, len(roots))
	for _, r := range roots {
		paths = append(paths, r.Path)
	}

	return edgeSource{
		edges:     edges,
		vaultName: name,
		cacheKey:  strings.Join(paths, "|"),
		reload: func() ([]model.Edge, error) {
			merged, _, err := workspace.NewLoader(roots).LoadAll(context.Background())
			return merged, err
		},
	}, nil
}

func buildStore(cfg config.Config, cacheDir string, noCache bool, src edgeSource) layoutcache.Store {
	if noCache || cfg.Cache.Disabled {
		return nil
	}
	dir := cfg.Cache.ResolveDir()
	if cacheDir != "" {
		dir = cacheDir
	}
	name := "layout-" + sourceSlug(src.cacheKey)
	if strings.EqualFold(cfg.Cache.Backend, "sqlite") {
		return layoutcache.NewSQLiteStore(filepath.Join(dir, name+".db"))
	}
	return layoutcache.NewFileStore(filepath.Join(dir, name+".json"))
}

// sourceSlug derives a short stable file-name fragment from a data-source
// key so every vault gets its own cache record.
func sourceSlug(key string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return strconv.FormatUint(uint64(h.Sum32()), 36)
}

// settleLayout produces settled positions: restored from the cache when a
// valid record exists, otherwise by running the simulation to convergence
// and saving the result for next time.
func settleLayout(cfg config.Config, edges []model.Edge, store layoutcache.Store) (*layout.Simulator, bool) {
	sim := layout.New(cfg.SimulatorConfig())
	sim.SetData(edges)

	if store != nil {
		entry, err := store.Load()
		switch {
		case err != nil:
			debug.Log("cache load failed: %v", err)
			metrics.LayoutCache.RecordMiss()
		case entry == nil:
			metrics.LayoutCache.RecordMiss()
		case !entry.Matches(edges):
			metrics.LayoutCache.RecordInvalidation()
		default:
			if sim.LoadFromCache(entry.Nodes) {
				metrics.LayoutCache.RecordHit()
				return sim, true
			}
		}
	}

	sim.Start()
	stop := metrics.Timer(metrics.SimulationSettle)
	for sim.Step() {
	}
	stop()
	if store != nil {
		if err := store.Save(layoutcache.NewEntry(sim.ExportPositions(), edges)); err != nil {
			debug.Log("cache save failed: %v", err)
		}
	}
	return sim, false
}

func printStats(w io.Writer, vaultName string, edges []model.Edge) {
	stats := analysis.NewAnalyzer(edges).Analyze()
	fmt.Fprintf(w, "vault: %s\n", vaultName)
	fmt.Fprint(w, stats.Summary())
}

// installAgentBlurb refreshes the instructions block in every agent doc
// present in dir, creating AGENTS.md when none exists.
func installAgentBlurb(dir string, w io.Writer) error {
	found := 0
	for _, name := range agents.SupportedAgentFiles {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("read %s: %w", name, err)
		}
		found++

		content := string(data)
		if !agents.NeedsUpdate(content) {
			fmt.Fprintf(w, "%s is up to date\n", name)
			continue
		}
		if err := os.WriteFile(path, []byte(agents.UpdateBlurb(content)), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		fmt.Fprintf(w, "updated %s\n", name)
	}

	if found == 0 {
		path := filepath.Join(dir, agents.SupportedAgentFiles[0])
		if err := os.WriteFile(path, []byte(agents.AppendBlurb("")), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(w, "created %s\n", path)
	}
	return nil
}

// exitRobot flushes profiles before the hard exit so -cpu-profile and
// -mem-profile work with the headless modes.
func exitRobot(code int, memPath string) {
	pprof.StopCPUProfile()
	writeMemProfile(memPath)
	os.Exit(code)
}

func writeMemProfile(path string) {
	if path == "" {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not create memory profile: %v\n", err)
		return
	}
	defer f.Close()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		fmt.Fprintf(os.Stderr, "Could not write memory profile: %v\n", err)
	}
}
