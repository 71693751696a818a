// Interactive snapshot wizard behind the -export flow. Collects format,
// path, and title through a short huh form and remembers the answers for
// the next run.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/vanderheijden86/knotwork/pkg/config"
	"github.com/vanderheijden86/knotwork/pkg/debug"
)

// wizardConfig is the persisted slice of SnapshotOptions the wizard
// collects. Model, stats, and hash always come from the live session.
type wizardConfig struct {
	Format string `json:"format"`
	Path   string `json:"path"`
	Title  string `json:"title"`
}

// isTerminal checks if stdin is connected to a terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection.
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// RunWizard interactively collects snapshot output options. Previously
// saved answers are offered first so re-exporting the same vault is a
// single keypress. The returned options carry Path, Format, and Title
// only; the caller supplies the layout, stats, and data hash.
func RunWizard() (SnapshotOptions, error) {
	if saved, err := loadWizardConfig(); err == nil && saved != nil && saved.Path != "" {
		useSaved, err := offerSavedConfig(saved)
		if err != nil {
			return SnapshotOptions{}, err
		}
		if useSaved {
			return SnapshotOptions{Format: saved.Format, Path: saved.Path, Title: saved.Title}, nil
		}
	}

	cfg := wizardConfig{
		Format: "svg",
		Title:  "Layout Snapshot",
	}

	form := newForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Snapshot format").
				Options(
					huh.NewOption("SVG (scalable, small)", "svg"),
					huh.NewOption("PNG (raster)", "png"),
				).
				Value(&cfg.Format),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Output path").
				Placeholder(suggestedPath("svg")).
				Value(&cfg.Path),
			huh.NewInput().
				Title("Title").
				Placeholder("Layout Snapshot").
				Value(&cfg.Title),
		),
	)

	if err := form.Run(); err != nil {
		return SnapshotOptions{}, err
	}

	if strings.TrimSpace(cfg.Path) == "" {
		cfg.Path = suggestedPath(cfg.Format)
	}
	if strings.TrimSpace(cfg.Title) == "" {
		cfg.Title = "Layout Snapshot"
	}

	if err := saveWizardConfig(&cfg); err != nil {
		debug.Log("could not persist wizard config: %v", err)
	}

	return SnapshotOptions{Format: cfg.Format, Path: cfg.Path, Title: cfg.Title}, nil
}

// offerSavedConfig asks if the user wants to reuse the last export settings.
func offerSavedConfig(saved *wizardConfig) (bool, error) {
	fmt.Println("Found previous snapshot settings:")
	fmt.Printf("  Format: %s\n", saved.Format)
	fmt.Printf("  Path:   %s\n", saved.Path)
	if saved.Title != "" {
		fmt.Printf("  Title:  %s\n", saved.Title)
	}
	fmt.Println("")

	useSaved := true
	form := newForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Export with these settings?").
				Description("Select No to configure a new snapshot").
				Value(&useSaved).
				Affirmative("Yes, reuse").
				Negative("No, reconfigure"),
		),
	)

	if err := form.Run(); err != nil {
		return false, err
	}
	return useSaved, nil
}

// suggestedPath derives a default output name from the working directory.
func suggestedPath(format string) string {
	cwd, _ := os.Getwd()
	base := filepath.Base(cwd)
	if base == "." || base == "/" || base == "" {
		base = "knotwork"
	}
	return base + "-layout." + format
}

// wizardConfigPath returns the persisted wizard settings location.
func wizardConfigPath() string {
	dir := config.ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "snapshot-wizard.json")
}

// loadWizardConfig loads previously saved wizard settings. A missing file
// is not an error.
func loadWizardConfig() (*wizardConfig, error) {
	path := wizardConfigPath()
	if path == "" {
		return nil, fmt.Errorf("could not determine config path")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var cfg wizardConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// saveWizardConfig saves wizard settings for future runs.
func saveWizardConfig(cfg *wizardConfig) error {
	path := wizardConfigPath()
	if path == "" {
		return fmt.Errorf("could not determine config path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
