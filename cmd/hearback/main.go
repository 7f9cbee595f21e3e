// Package main provides the CLI entrypoint for hearback.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/hearback/internal/config"
	"github.com/verte-zerg/hearback/internal/deck"
	"github.com/verte-zerg/hearback/internal/feedback"
	"github.com/verte-zerg/hearback/internal/generator"
	"github.com/verte-zerg/hearback/internal/insight"
	"github.com/verte-zerg/hearback/internal/model"
	"github.com/verte-zerg/hearback/internal/observe"
	"github.com/verte-zerg/hearback/internal/scorer"
	"github.com/verte-zerg/hearback/internal/session"
	"github.com/verte-zerg/hearback/internal/statsui"
	"github.com/verte-zerg/hearback/internal/store"
	"github.com/verte-zerg/hearback/internal/tui"
)

const (
	defaultPhrases               = 10
	defaultFlashMs               = 2500
	defaultWeakTop               = 3
	defaultWeakFactor            = 2.0
	defaultWeakWindow            = 20
	defaultTopEvents             = 3
	defaultCurveWindow           = 20
	defaultSubstitutionThreshold = 0.5
	defaultNarrationThreshold    = feedback.NarrationThreshold
	defaultLogLevel              = "info"
)

var (
	practiceDeck       string
	practicePhrases    int
	practiceFlashMs    int
	practiceFocusWeak  bool
	practiceWeakTop    int
	practiceWeakFactor float64
	practiceWeakWindow int
	practiceTopEvents  int
	practiceLogFile    string

	dbPath                string
	substitutionThreshold float64
	narrationThreshold    float64
	logLevel              string

	statsDeck        string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsCategories  string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hearback",
		Short:         "Dictation trainer that explains what you misheard",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.Flags().StringVar(&practiceDeck, "deck", deck.DefaultName, "phrase deck name")
	rootCmd.Flags().IntVar(&practicePhrases, "phrases", defaultPhrases, "phrases per round")
	rootCmd.Flags().IntVar(&practiceFlashMs, "flash-ms", defaultFlashMs, "how long a phrase is shown (0 keeps it visible, <0 hides it)")
	rootCmd.Flags().BoolVar(&practiceFocusWeak, "focus-weak", false, "bias practice toward weak categories")
	rootCmd.Flags().IntVar(&practiceWeakTop, "weak-top", defaultWeakTop, "number of weak categories to focus on")
	rootCmd.Flags().Float64Var(&practiceWeakFactor, "weak-factor", defaultWeakFactor, "weight factor for weak categories")
	rootCmd.Flags().IntVar(&practiceWeakWindow, "weak-window", defaultWeakWindow, "number of recent attempts to compute weak categories")
	rootCmd.Flags().IntVar(&practiceTopEvents, "top-events", defaultTopEvents, "feedback items shown per attempt")
	rootCmd.Flags().StringVar(&practiceLogFile, "log-file", "", "write logs to this file while the TUI runs")

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "attempt database path")
	rootCmd.PersistentFlags().Float64Var(&substitutionThreshold, "substitution-threshold", defaultSubstitutionThreshold, "minimum similarity for a substitution (0-1)")
	rootCmd.PersistentFlags().Float64Var(&narrationThreshold, "narration-threshold", defaultNarrationThreshold, "minimum confidence to narrate a substitution (0-1)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newDecksCmd())
	rootCmd.AddCommand(newScoreCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newStatsCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "deck", &practiceDeck, fileCfg.Practice.Deck)
	applyIntConfig(cmd, "phrases", &practicePhrases, fileCfg.Practice.Phrases)
	applyIntConfig(cmd, "flash-ms", &practiceFlashMs, fileCfg.Practice.FlashMs)
	applyBoolConfig(cmd, "focus-weak", &practiceFocusWeak, fileCfg.Practice.FocusWeak)
	applyIntConfig(cmd, "weak-top", &practiceWeakTop, fileCfg.Practice.WeakTop)
	applyFloatConfig(cmd, "weak-factor", &practiceWeakFactor, fileCfg.Practice.WeakFactor)
	applyIntConfig(cmd, "weak-window", &practiceWeakWindow, fileCfg.Practice.WeakWindow)
	applyIntConfig(cmd, "top-events", &practiceTopEvents, fileCfg.Practice.TopEvents)

	cfg := model.Config{
		Deck:       practiceDeck,
		Phrases:    practicePhrases,
		FlashMs:    practiceFlashMs,
		FocusWeak:  practiceFocusWeak,
		WeakTop:    practiceWeakTop,
		WeakFactor: practiceWeakFactor,
		WeakWindow: practiceWeakWindow,
		TopEvents:  practiceTopEvents,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}
	if err := validateThresholds(); err != nil {
		return err
	}

	d, err := deck.Resolve(config.DefaultDeckDir(), cfg.Deck)
	if err != nil {
		return fmt.Errorf("failed to load deck: %w", err)
	}
	cfg.DeckPath = d.Path

	log := observe.Discard()
	if practiceLogFile != "" {
		f, err := os.OpenFile(practiceLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				logErrf("failed to close log file: %v\n", cerr)
			}
		}()
		if log, err = newLogger(f); err != nil {
			return err
		}
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	svc := newService(log, session.WithStore(st), session.WithTopEvents(cfg.TopEvents))

	weakness := map[feedback.Category]float64{}
	if cfg.FocusWeak {
		weakness, err = svc.Weakness(context.Background(), cfg.Deck, cfg.WeakWindow, cfg.WeakTop)
		if err != nil {
			logErrf("failed to load weak categories: %v\n", err)
		} else if len(weakness) == 0 {
			logErrln("no stats available for weak-category focus yet; using normal generator")
		}
	}

	gen := generator.New()
	m := tui.NewModel(cfg, svc, st, gen, d, weakness, log)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := writeConfigTemplate(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// writeConfigTemplate creates the config file with defaultConfigTemplate
// unless it already exists.
func writeConfigTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}
	return nil
}

func newDecksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decks",
		Short: "List available phrase decks",
		Args:  cobra.NoArgs,
		RunE:  runDecksCmd,
	}
}

func runDecksCmd(cmd *cobra.Command, _ []string) error {
	return listDecks(cmd.OutOrStdout(), config.DefaultDeckDir())
}

func listDecks(w io.Writer, dir string) error {
	infos, err := deck.List(dir)
	if err != nil {
		return fmt.Errorf("failed to read deck directory: %w", err)
	}
	overridden := false
	for _, info := range infos {
		if info.Name == deck.DefaultName {
			overridden = true
		}
	}
	if !overridden {
		builtin := deck.Builtin()
		if _, err := fmt.Fprintf(w, "%s\t(built-in, %d phrases)\n", builtin.Name, len(builtin.Phrases)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	for _, info := range infos {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", info.Name, info.Path); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Browse stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsDeck, "deck", "", "deck filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N attempts")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().StringVar(&statsCategories, "categories", "", "comma-separated categories for per-category curves")
	return cmd
}

func runStatsCmd(_ *cobra.Command, _ []string) error {
	since, err := parseSince(statsSince)
	if err != nil {
		return err
	}
	if statsLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if statsCurveWindow <= 0 {
		return fmt.Errorf("--curve-window must be > 0")
	}

	cfg := model.StatsConfig{
		Deck:        statsDeck,
		Since:       since,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
		Categories:  statsCategories,
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	m := statsui.NewModel(st, cfg)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func parseSince(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid --since value: %w", err)
	}
	return &parsed, nil
}

// loadFileConfig reads the config file and applies the settings shared by
// every command.
func loadFileConfig(cmd *cobra.Command) (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyFloatConfig(cmd, "substitution-threshold", &substitutionThreshold, fileCfg.Scoring.SubstitutionThreshold)
	applyFloatConfig(cmd, "narration-threshold", &narrationThreshold, fileCfg.Scoring.NarrationThreshold)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	return fileCfg, nil
}

func newLogger(w io.Writer) (*slog.Logger, error) {
	level, err := observe.ParseLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	return observe.NewLogger(w, level), nil
}

func newScorer() *scorer.Scorer {
	return scorer.New(
		scorer.WithSubstitutionThreshold(substitutionThreshold),
		scorer.WithNarrationThreshold(narrationThreshold),
	)
}

// newInsights prefers the on-disk cache and falls back to memory when the
// cache directory is unusable.
func newInsights(log *slog.Logger) *insight.Service {
	var cache insight.Cache
	disk, err := insight.OpenDiskCache(config.DefaultInsightCacheDir())
	if err != nil {
		log.Warn("insight cache unavailable, using memory", "err", err)
		cache = insight.NewMemoryCache()
	} else {
		cache = disk
	}
	return insight.NewService(cache, nil, insight.WithLogger(log))
}

func newService(log *slog.Logger, opts ...session.Option) *session.Service {
	base := []session.Option{
		session.WithLogger(log),
		session.WithInsights(newInsights(log)),
	}
	return session.New(newScorer(), append(base, opts...)...)
}

func openStore() (*store.Store, error) {
	path := dbPath
	if path == "" {
		path = config.DefaultDBPath()
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# hearback configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# deck = %q           # Phrase deck name
# phrases = %d               # Phrases per round
# flash-ms = %d            # Milliseconds a phrase is shown (0 keeps it, <0 hides it)
# focus-weak = false         # Bias practice toward weak categories
# weak-top = %d               # Number of weak categories to focus on
# weak-factor = %.1f         # Weight factor for weak categories
# weak-window = %d           # Recent attempts used to compute weak categories
# top-events = %d             # Feedback items shown per attempt

[scoring]
# substitution-threshold = %.2f  # Minimum similarity for a substitution (0-1)
# narration-threshold = %.2f     # Minimum confidence to narrate (0-1)

[log]
# level = %q          # debug, info, warn or error
`,
		deck.DefaultName,
		defaultPhrases,
		defaultFlashMs,
		defaultWeakTop,
		defaultWeakFactor,
		defaultWeakWindow,
		defaultTopEvents,
		defaultSubstitutionThreshold,
		defaultNarrationThreshold,
		defaultLogLevel,
	)
}

func validateConfig(cfg model.Config) error {
	if strings.TrimSpace(cfg.Deck) == "" {
		return fmt.Errorf("--deck must not be empty")
	}
	if cfg.Phrases <= 0 {
		return fmt.Errorf("--phrases must be > 0")
	}
	if cfg.WeakTop < 0 {
		return fmt.Errorf("--weak-top must be >= 0")
	}
	if cfg.WeakFactor < 0 {
		return fmt.Errorf("--weak-factor must be >= 0")
	}
	if cfg.WeakWindow < 0 {
		return fmt.Errorf("--weak-window must be >= 0")
	}
	if cfg.TopEvents < 0 {
		return fmt.Errorf("--top-events must be >= 0")
	}
	return nil
}

func validateThresholds() error {
	if substitutionThreshold < 0 || substitutionThreshold > 1 {
		return fmt.Errorf("--substitution-threshold must be between 0 and 1")
	}
	if narrationThreshold < 0 || narrationThreshold > 1 {
		return fmt.Errorf("--narration-threshold must be between 0 and 1")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
