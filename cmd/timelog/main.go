package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pbaille/timelog/internal/api"
	"github.com/pbaille/timelog/internal/config"
	"github.com/pbaille/timelog/internal/domain"
	"github.com/pbaille/timelog/internal/rawfact"
	"github.com/pbaille/timelog/internal/report"
	"github.com/pbaille/timelog/internal/store"
	"github.com/pbaille/timelog/internal/timeframe"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath string
	dbPath     string
	dbDriver   string
	dayStart   string
	minDelta   string
	verbose    bool

	logger = zap.NewNop()
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "timelog",
		Short: "Track where your time goes",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(verbose)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.timelog/config.yaml)")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "database path")
	root.PersistentFlags().StringVar(&dbDriver, "db-driver", "", "database driver (sqlite or sqlite3)")
	root.PersistentFlags().StringVar(&dayStart, "day-start", "", "time the tracking day starts, e.g. 05:00")
	root.PersistentFlags().StringVar(&minDelta, "fact-min-delta", "", "minimum fact length in minutes")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(addCmd())
	root.AddCommand(startCmd())
	root.AddCommand(stopCmd())
	root.AddCommand(cancelCmd())
	root.AddCommand(currentCmd())
	root.AddCommand(listCmd())
	root.AddCommand(searchCmd())
	root.AddCommand(showCmd())
	root.AddCommand(removeCmd())
	root.AddCommand(categoriesCmd())
	root.AddCommand(activitiesCmd())
	root.AddCommand(tagsCmd())
	root.AddCommand(exportCmd())
	root.AddCommand(configCmd())
	root.AddCommand(serveCmd())
	return root
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func resolveConfig() (config.ResolvedConfig, error) {
	return config.ResolveConfig(config.ResolveOptions{
		ConfigPath:      configPath,
		CLIDBPath:       dbPath,
		CLIDBDriver:     dbDriver,
		CLIDayStart:     dayStart,
		CLIFactMinDelta: minDelta,
	})
}

func getStore() (*store.Store, timeframe.Config, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, timeframe.Config{}, err
	}
	tf, err := cfg.Timeframe(time.Now)
	if err != nil {
		return nil, timeframe.Config{}, err
	}
	delta, err := cfg.MinDelta()
	if err != nil {
		return nil, timeframe.Config{}, err
	}

	// Ensure directory exists
	dir := filepath.Dir(cfg.DBPath.Value)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, timeframe.Config{}, fmt.Errorf("create db dir: %w", err)
	}
	s, err := store.New(store.Options{
		Driver:   cfg.DBDriver.Value,
		Path:     cfg.DBPath.Value,
		MinDelta: delta,
		Logger:   logger,
	})
	if err != nil {
		return nil, timeframe.Config{}, err
	}
	return s, tf, nil
}

func addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add [raw fact]",
		Short: "Add a fact, e.g. '12:00 - 14:14 foo@bar, notes #tag'",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, tf, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			fact, err := rawfact.ParseFact(strings.Join(args, " "), tf)
			if err != nil {
				return err
			}
			saved, err := s.SaveFact(*fact)
			if err != nil {
				return err
			}
			fmt.Printf("Added fact %d: %s\n", *saved.ID, saved)
			return nil
		},
	}
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start [raw fact]",
		Short: "Stop the current fact and start a new one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, tf, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			fact, err := rawfact.ParseFact(strings.Join(args, " "), tf)
			if err != nil {
				return err
			}

			stopped, saved, err := s.StartFact(*fact)
			if err != nil {
				return err
			}
			if stopped != nil {
				fmt.Printf("Stopped: %s\n", stopped)
			}
			fmt.Printf("Started fact %d: %s\n", *saved.ID, saved)
			return nil
		},
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop [time]",
		Short: "End the current fact, now or at the given time",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, tf, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			at := tf.CurrentTime()
			if len(args) == 1 {
				if at, err = timeframe.ResolveBound(args[0], tf, false); err != nil {
					return err
				}
			}
			fact, err := s.StopOngoingFact(at)
			if err != nil {
				return noCurrent(err)
			}
			fmt.Printf("Stopped: %s (%s)\n", fact, formatDuration(fact.Duration(at)))
			return nil
		},
	}
}

func cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Discard the current fact",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			fact, err := s.CancelOngoingFact()
			if err != nil {
				return noCurrent(err)
			}
			fmt.Printf("Cancelled: %s\n", fact)
			return nil
		},
	}
}

func currentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the current fact",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, tf, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			fact, err := s.GetOngoingFact()
			if errors.Is(err, store.ErrNotFound) {
				fmt.Println("No activity in progress.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("%s (%s)\n", fact, formatDuration(fact.Duration(tf.CurrentTime())))
			return nil
		},
	}
}

func noCurrent(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return errors.New("no activity in progress")
	}
	return err
}

// rangeFilter turns --from/--to flags into a fact filter
func rangeFilter(tf timeframe.Config, from, to string) (store.FactFilter, error) {
	var filter store.FactFilter
	if from != "" {
		t, err := timeframe.ResolveBound(from, tf, false)
		if err != nil {
			return filter, fmt.Errorf("--from: %w", err)
		}
		filter.Start = &t
	}
	if to != "" {
		t, err := timeframe.ResolveBound(to, tf, true)
		if err != nil {
			return filter, fmt.Errorf("--to: %w", err)
		}
		filter.End = &t
	}
	return filter, nil
}

func listCmd() *cobra.Command {
	var (
		from, to string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List facts, today by default",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, tf, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if from == "" && to == "" {
				from = defaultDay(tf)
			}
			filter, err := rangeFilter(tf, from, to)
			if err != nil {
				return err
			}
			filter.Limit = limit

			facts, err := s.ListFacts(filter)
			if err != nil {
				return err
			}
			printFacts(os.Stdout, facts, tf.CurrentTime())
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "start date or datetime")
	cmd.Flags().StringVar(&to, "to", "", "end date or datetime")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of facts")
	return cmd
}

// defaultDay is the tracking day in progress, which started yesterday when the
// clock is still before the day start.
func defaultDay(tf timeframe.Config) string {
	return tf.TrackingDay(tf.CurrentTime()).Format("2006-01-02")
}

func searchCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search facts by activity, category, description or tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, tf, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			filter, err := rangeFilter(tf, from, to)
			if err != nil {
				return err
			}
			filter.Search = args[0]

			facts, err := s.ListFacts(filter)
			if err != nil {
				return err
			}
			printFacts(os.Stdout, facts, tf.CurrentTime())
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "start date or datetime")
	cmd.Flags().StringVar(&to, "to", "", "end date or datetime")
	return cmd
}

func printFacts(w io.Writer, facts []domain.Fact, now time.Time) {
	if len(facts) == 0 {
		fmt.Fprintln(w, "No facts found.")
		return
	}
	var total time.Duration
	for _, f := range facts {
		d := f.Duration(now)
		total += d
		fmt.Fprintf(w, "%4d  %s  (%s)\n", *f.ID, f, formatDuration(d))
	}
	fmt.Fprintf(w, "\nTotal: %s\n", formatDuration(total))
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dmin", m)
	}
	return fmt.Sprintf("%dh %02dmin", h, m)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show fact details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, tf, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			f, err := s.GetFact(id)
			if err != nil {
				return err
			}

			fmt.Printf("ID:       %d\n", *f.ID)
			fmt.Printf("Activity: %s\n", f.Activity.Name)
			if f.Activity.Category != nil {
				fmt.Printf("Category: %s\n", f.Activity.Category.Name)
			}
			fmt.Printf("Start:    %s\n", f.Start.Format("2006-01-02 15:04"))
			if f.End != nil {
				fmt.Printf("End:      %s\n", f.End.Format("2006-01-02 15:04"))
			} else {
				fmt.Printf("End:      (ongoing)\n")
			}
			fmt.Printf("Duration: %s\n", formatDuration(f.Duration(tf.CurrentTime())))
			if f.Description != "" {
				fmt.Printf("Description:\n%s\n", f.Description)
			}
			if len(f.Tags) > 0 {
				fmt.Printf("\nTags:\n")
				for _, t := range f.Tags {
					fmt.Printf("  - %s\n", t.Name)
				}
			}
			return nil
		},
	}
}

func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [id]",
		Short: "Delete a fact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, _, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.RemoveFact(id); err != nil {
				return err
			}
			fmt.Printf("Removed fact %d\n", id)
			return nil
		},
	}
}

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List all categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			categories, err := s.ListCategories()
			if err != nil {
				return err
			}
			if len(categories) == 0 {
				fmt.Println("No categories yet. Use 'timelog add activity@category' to create one.")
				return nil
			}
			for _, c := range categories {
				fmt.Println(c.Name)
			}
			return nil
		},
	}
}

func activitiesCmd() *cobra.Command {
	var (
		category string
		search   string
	)

	cmd := &cobra.Command{
		Use:   "activities",
		Short: "List activities",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			filter := store.ActivityFilter{Search: search}
			if cmd.Flags().Changed("category") {
				filter.Category = &category
			}
			activities, err := s.ListActivities(filter)
			if err != nil {
				return err
			}
			if len(activities) == 0 {
				fmt.Println("No activities found.")
				return nil
			}
			for _, a := range activities {
				fmt.Println(a)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "only this category (empty for uncategorised)")
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by name")
	return cmd
}

func tagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List all tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			tags, err := s.ListTags()
			if err != nil {
				return err
			}
			if len(tags) == 0 {
				fmt.Println("No tags yet. Add '#tag' at the end of a description.")
				return nil
			}
			for _, t := range tags {
				fmt.Printf("#%s\n", t.Name)
			}
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var (
		format   string
		output   string
		from, to string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export facts as " + strings.Join(report.Formats(), ", "),
		RunE: func(cmd *cobra.Command, args []string) error {
			writer, err := report.New(format)
			if err != nil {
				return err
			}
			s, tf, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			filter, err := rangeFilter(tf, from, to)
			if err != nil {
				return err
			}
			facts, err := s.ListFacts(filter)
			if err != nil {
				return err
			}

			var w io.Writer = os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				w = f
			}
			if err := writer.WriteFacts(w, facts); err != nil {
				return fmt.Errorf("export %s: %w", format, err)
			}
			logger.Debug("exported facts", zap.String("format", format), zap.Int("count", len(facts)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "tsv", "output format")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&from, "from", "", "start date or datetime")
	cmd.Flags().StringVar(&to, "to", "", "end date or datetime")
	return cmd
}

func configCmd() *cobra.Command {
	var initFile bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			if initFile {
				if err := config.Save(cfg); err != nil {
					return err
				}
				fmt.Printf("Wrote %s\n", cfg.ConfigPath)
				return nil
			}

			fmt.Printf("config:         %s\n", cfg.ConfigPath)
			for _, row := range []struct {
				key string
				v   config.ResolvedValue
			}{
				{"db.driver", cfg.DBDriver},
				{"db.path", cfg.DBPath},
				{"day_start", cfg.DayStart},
				{"fact_min_delta", cfg.FactMinDelta},
			} {
				fmt.Printf("%-15s %s (%s)\n", row.key+":", row.v.Value, row.v.Source)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&initFile, "init", false, "write the resolved values to the config file")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, tf, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Printf("Starting server on %s\n", addr)
			return api.New(s, addr, tf, logger).Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "server address")
	return cmd
}
