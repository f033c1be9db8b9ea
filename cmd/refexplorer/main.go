package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/refexplorer/internal/cache"
	"github.com/TobiSchelling/refexplorer/internal/cache/boltstore"
	"github.com/TobiSchelling/refexplorer/internal/catalog"
	"github.com/TobiSchelling/refexplorer/internal/config"
	"github.com/TobiSchelling/refexplorer/internal/dashboard"
	"github.com/TobiSchelling/refexplorer/internal/database"
	"github.com/TobiSchelling/refexplorer/internal/explore"
	"github.com/TobiSchelling/refexplorer/internal/pipeline"
	"github.com/TobiSchelling/refexplorer/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "refexplorer",
	Short:   "Explore a Zotero reference collection",
	Long:    "refexplorer fetches a Zotero library, caches it locally and serves timeline, map, network and topic views of it.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			setLogFlags(verbose)
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		setLogFlags(verbose || cfg.Verbose())
		for _, f := range config.LoadEnv(config.EnvFiles()...) {
			log.Printf("Loaded environment from %s", f)
		}
		return nil
	},
}

func setLogFlags(debug bool) {
	if debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(geocodeCmd)
	rootCmd.AddCommand(cacheCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("refexplorer", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/refexplorer/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set the library id and the API key variable.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache and configuration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		pipe := pipeline.New(cfg, store)
		stats, err := pipe.Cache().Stats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Library: %s/%s\n", cfg.Catalog.LibraryType, cfg.Catalog.LibraryID)
		if pipe.Client().HasAPIKey() {
			fmt.Printf("API key: set (%s)\n", cfg.Catalog.APIKeyEnv)
		} else {
			fmt.Printf("API key: not set (%s)\n", cfg.Catalog.APIKeyEnv)
		}
		fmt.Printf("Cache: %s (%s)\n\n", cfg.CachePath(), cfg.Cache.Driver)

		fmt.Println("Catalog:")
		if !stats.HasSnapshot {
			fmt.Println("  No cached catalog. Run 'refexplorer fetch'.")
		} else {
			freshness := "stale"
			if stats.Fresh {
				freshness = "fresh"
			}
			fmt.Printf("  Items: %d\n", stats.ItemCount)
			fmt.Printf("  Fetched: %s (%s ago, %s)\n",
				stats.FetchedAt.Local().Format("2006-01-02 15:04"),
				time.Since(stats.FetchedAt).Round(time.Minute), freshness)
		}
		fmt.Println("\nGeocoder:")
		fmt.Printf("  Cached places: %d\n", stats.Coordinates)
		fmt.Printf("  Enabled: %v\n", cfg.Geocoder.Enabled)
		return nil
	},
}

// --- fetch command ---

var (
	dryRun       bool
	fetchGeocode bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the catalog and replace the cached copy",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		pipe := pipeline.New(cfg, store)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var result *pipeline.Result
		if dryRun {
			result = pipe.DryRun()
		} else {
			result = pipe.Run(ctx, fetchGeocode)
		}

		var failed error
		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
				failed = step.Err
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if len(result.ByType) > 0 {
			fmt.Println("\nItems by type:")
			for _, tc := range pipeline.SortedTypeCounts(result.ByType) {
				fmt.Printf("  %s: %d\n", tc.Type, tc.Count)
			}
		}
		if failed != nil {
			return failed
		}
		if !dryRun {
			fmt.Println("\nDone! Run 'refexplorer serve' to explore the collection.")
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
	fetchCmd.Flags().BoolVar(&fetchGeocode, "geocode", false, "Also resolve every place after fetching")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		pipe := pipeline.New(cfg, store)
		d := pipe.Dashboard()
		if err := d.Load(context.Background()); err != nil {
			// The dashboard shows the error; a manual refresh may still succeed.
			log.Printf("Starting without a catalog: %v", err)
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(d, pipe.Preview(), port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

// --- export command ---

var (
	exportFrom    int
	exportTo      int
	exportTypes   []string
	exportExclude []string
	exportQuery   string
)

var exportCmd = &cobra.Command{
	Use:       "export <timeline|map|network|topics>",
	Short:     "Print a view of the filtered catalog as JSON",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"timeline", "map", "network", "topics"},
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := dashboard.ParseView(args[0])
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		d := pipeline.New(cfg, store).Dashboard()
		if err := d.Load(ctx); err != nil {
			return err
		}
		if _, err := d.SetFilter(exportFilter(cmd, d.State())); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		switch view {
		case dashboard.ViewTimeline:
			enc.SetIndent("", "  ")
			return enc.Encode(d.Timeline())
		case dashboard.ViewNetwork:
			enc.SetIndent("", "  ")
			return enc.Encode(d.Network())
		case dashboard.ViewTopics:
			enc.SetIndent("", "  ")
			return enc.Encode(d.Topics())
		case dashboard.ViewMap:
			// One JSON line per marker, printed as places resolve.
			for ev := range d.Markers(ctx) {
				if !ev.Resolved {
					continue
				}
				if err := enc.Encode(ev.Marker); err != nil {
					return err
				}
			}
			return ctx.Err()
		}
		return nil
	},
}

// exportFilter turns the export flags into a filter update. --type limits the
// export to the named types; --exclude-type disables types.
func exportFilter(cmd *cobra.Command, st dashboard.State) dashboard.FilterUpdate {
	var u dashboard.FilterUpdate
	if cmd.Flags().Changed("from") {
		u.Min = &exportFrom
	}
	if cmd.Flags().Changed("to") {
		u.Max = &exportTo
	}
	if len(exportTypes) > 0 || len(exportExclude) > 0 {
		u.Types = make(map[string]bool, len(st.Types))
		if len(exportTypes) > 0 {
			for t := range st.Types {
				u.Types[t] = false
			}
			for _, t := range exportTypes {
				u.Types[t] = true
			}
		}
		for _, t := range exportExclude {
			u.Types[t] = false
		}
	}
	if exportQuery != "" {
		u.Query = &exportQuery
	}
	return u
}

func init() {
	exportCmd.Flags().IntVar(&exportFrom, "from", 0, "First year to include")
	exportCmd.Flags().IntVar(&exportTo, "to", 0, "Last year to include")
	exportCmd.Flags().StringSliceVar(&exportTypes, "type", nil, "Only include these item types")
	exportCmd.Flags().StringSliceVar(&exportExclude, "exclude-type", nil, "Exclude these item types")
	exportCmd.Flags().StringVarP(&exportQuery, "query", "q", "", "Fuzzy title/creator query")
}

// --- show command ---

var showCmd = &cobra.Command{
	Use:   "show <key|title>",
	Short: "Show the details of one item",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		d := pipeline.New(cfg, store).Dashboard()
		if err := d.Load(context.Background()); err != nil {
			return err
		}

		arg := strings.Join(args, " ")
		if item, ok := d.Item(arg); ok {
			printItem(item)
			return nil
		}

		matches := explore.Search(d.Items(), arg)
		if len(matches) == 0 {
			return fmt.Errorf("no item with key or title %q", arg)
		}
		sort.SliceStable(matches, func(i, j int) bool {
			return explore.Score(matches[i].Title, arg) < explore.Score(matches[j].Title, arg)
		})
		if len(matches) == 1 {
			printItem(matches[0])
			return nil
		}

		fmt.Printf("%d items match %q:\n", len(matches), arg)
		for i, it := range matches {
			if i == 10 {
				fmt.Printf("  ... and %d more\n", len(matches)-i)
				break
			}
			fmt.Printf("  [%s] %s\n", it.Key, it.Title)
		}
		return nil
	},
}

func printItem(it catalog.Item) {
	fmt.Printf("%s\n", it.Title)
	fmt.Printf("  Key: %s\n", it.Key)
	fmt.Printf("  Type: %s\n", it.Type)
	names := make([]string, 0, len(it.Creators))
	for _, c := range it.Creators {
		if n := c.FullName(); n != "" {
			names = append(names, n)
		}
	}
	if len(names) > 0 {
		fmt.Printf("  Creators: %s\n", strings.Join(names, ", "))
	}
	if it.Date != "" {
		fmt.Printf("  Date: %s\n", it.Date)
	}
	if it.Place != "" {
		fmt.Printf("  Place: %s\n", it.Place)
	}
	if it.URL != "" {
		fmt.Printf("  URL: %s\n", it.URL)
	}
	if len(it.Tags) > 0 {
		fmt.Printf("  Tags: %s\n", strings.Join(it.Tags, ", "))
	}
	if it.Abstract != "" {
		fmt.Printf("\n%s\n", it.Abstract)
	}
}

// --- geocode command ---

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Resolve every place in the cached catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		pipe := pipeline.New(cfg, store)
		d := pipe.Dashboard()
		if err := d.Load(ctx); err != nil {
			return err
		}

		places := pipeline.DistinctPlaces(d.Items())
		if len(places) == 0 {
			fmt.Println("No items carry a place.")
			return nil
		}
		fmt.Printf("Resolving %d places (about %d per second)...\n", len(places), int(cfg.Geocoder.RatePerSecond))

		resolved := 0
		for _, place := range places {
			coord, ok := pipe.Geocoder().Resolve(ctx, place)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !ok {
				fmt.Printf("  %s: not found\n", place)
				continue
			}
			resolved++
			fmt.Printf("  %s: %.4f, %.4f\n", place, coord.Lat, coord.Lon)
		}
		fmt.Printf("\nResolved %d of %d places.\n", resolved, len(places))
		return nil
	},
}

// --- cache command ---

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local cache",
}

var clearGeo bool

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop the cached catalog (and with --geo, the cached places)",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		c := cache.New(store, cfg.Cache.TTL)
		if err := c.Clear(clearGeo); err != nil {
			return err
		}
		if clearGeo {
			fmt.Println("Cleared cached catalog and places.")
		} else {
			fmt.Println("Cleared cached catalog. Cached places were kept.")
		}
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().BoolVar(&clearGeo, "geo", false, "Also drop cached place coordinates")
	cacheCmd.AddCommand(cacheClearCmd)
}

func openStore() (cache.Store, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	if cfg.Cache.Driver == config.DriverBolt {
		store, err := boltstore.Open(cfg.CachePath())
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	db, err := database.Open(cfg.CachePath())
	if err != nil {
		return nil, err
	}
	return db, nil
}
