package commands

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/openpaint/cloudsync/errors"
)

// CacheCmd groups asset cache maintenance.
var CacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and prune the local asset cache",
	Long: `Inspect and prune the local asset cache.

The cache never evicts on its own: every asset ever saved or loaded stays
available offline until pruned. Prune removes least-recently-used assets
until the cache fits the byte budget; evicted assets are re-downloaded on
the next load that needs them.

Examples:
  opsync cache stats
  opsync cache prune --max-bytes 524288000
  opsync cache prune    # uses cache.max_bytes from configuration`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show asset cache occupancy",
	RunE:  runCacheStats,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Evict least-recently-used assets down to a byte budget",
	RunE:  runCachePrune,
}

var (
	cacheMaxBytesFlag int64
	cacheJSONFlag     bool
)

func init() {
	CacheCmd.AddCommand(cacheStatsCmd)
	CacheCmd.AddCommand(cachePruneCmd)
	cacheStatsCmd.Flags().BoolVar(&cacheJSONFlag, "json", false, "Print stats as JSON")
	cachePruneCmd.Flags().Int64Var(&cacheMaxBytesFlag, "max-bytes", 0, "Byte budget (default: cache.max_bytes from configuration)")
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	stats, err := eng.cache.Stats(context.Background())
	if err != nil {
		return err
	}

	if cacheJSONFlag {
		return printJSON(stats)
	}

	pterm.Printf("Cache path: %s\n", eng.cfg.Cache.Path)
	pterm.Printf("Assets:     %d\n", stats.Entries)
	pterm.Printf("Total size: %s\n", formatBytes(stats.TotalBytes))
	return nil
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	maxBytes := cacheMaxBytesFlag
	if maxBytes <= 0 {
		maxBytes = eng.cfg.Cache.MaxBytes
	}
	if maxBytes <= 0 {
		return errors.New("no byte budget: pass --max-bytes or set cache.max_bytes")
	}

	removed, freed, err := eng.cache.Prune(context.Background(), maxBytes)
	if err != nil {
		return err
	}

	if removed == 0 {
		pterm.Info.Println("Cache already within budget")
		return nil
	}
	pterm.Success.Printf("Evicted %d assets, freed %s\n", removed, formatBytes(freed))
	return nil
}
