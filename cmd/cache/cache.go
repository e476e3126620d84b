package cache

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sagan/ptxseed/cmd"
	"github.com/sagan/ptxseed/cmd/common"
	"github.com/sagan/ptxseed/config"
	"github.com/sagan/ptxseed/util"
	"github.com/sagan/ptxseed/xseed"
)

var command = &cobra.Command{
	Use:   "cache",
	Short: "Show or clear cross-seed cache.",
	Long: `Show or clear cross-seed cache.
Cache has 3 sets of "site:id" and "site:pieces_hash" tags: success, error (retried later) and permanentError (never retried).`,
}

var showCommand = &cobra.Command{
	Use:   "show",
	Short: "Show cache.",
	Long:  `Show cache.`,
	Args:  cobra.MatchAll(cobra.ExactArgs(0), cobra.OnlyValidArgs),
	RunE:  show,
}

var clearCommand = &cobra.Command{
	Use:   "clear",
	Short: "Clear all 3 sets of cache.",
	Long:  `Clear all 3 sets of cache. Previously failed torrents will be tried again in next scan.`,
	Args:  cobra.MatchAll(cobra.ExactArgs(0), cobra.OnlyValidArgs),
	RunE:  clearCache,
}

var (
	showAll  = false
	showJson = false
)

func init() {
	showCommand.Flags().BoolVarP(&showAll, "all", "a", false, "Show all tags")
	showCommand.Flags().BoolVarP(&showJson, "json", "", false, "Show output in json format")
	command.AddCommand(showCommand, clearCommand)
	cmd.RootCmd.AddCommand(command)
}

func show(_ *cobra.Command, args []string) error {
	store, err := common.OpenStore()
	if err != nil {
		return err
	}
	defer store.Close()
	// show everything persisted, including expired error tags
	cache, err := store.LoadCache(time.Duration(1<<63 - 1))
	if err != nil {
		return err
	}
	if showJson {
		return util.PrintJson(cmd.RootCmd.OutOrStdout(), cache.Entries())
	}
	retryInterval := config.Get().Xseed.ErrorRetryIntervalValue
	entries := cache.Entries()
	for _, set := range xseed.CacheSets {
		fmt.Printf("%-16s  %d\n", set, cache.Len(set))
		if !showAll {
			continue
		}
		for _, entry := range entries {
			if entry.Kind != set {
				continue
			}
			fmt.Printf("  %-60s  %s\n", entry.Tag, humanize.Time(time.Unix(entry.CreatedAt, 0)))
		}
	}
	if retryInterval > 0 {
		fmt.Printf("Error tags are retried after %s\n", retryInterval)
	} else {
		fmt.Printf("Error tags are retried in next scan\n")
	}
	return nil
}

func clearCache(_ *cobra.Command, args []string) error {
	store, err := common.OpenStore()
	if err != nil {
		return err
	}
	defer store.Close()
	if err = store.ClearCache(); err != nil {
		return err
	}
	fmt.Printf("Cache cleared\n")
	return nil
}
