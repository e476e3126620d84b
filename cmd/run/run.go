package run

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sagan/ptxseed/cmd"
	"github.com/sagan/ptxseed/cmd/common"
	"github.com/sagan/ptxseed/xseed"
)

var command = &cobra.Command{
	Use:   "run",
	Short: "Run a cross-seed scan once.",
	Long: `Run a cross-seed scan once.
Completed torrents of clients are matched against sites by pieces hash, and matched torrents
are added to client paused. They are started by "poll" (or "daemon") after being verified.`,
	Args: cobra.MatchAll(cobra.ExactArgs(0), cobra.OnlyValidArgs),
	RunE: run,
}

var (
	dryRun      = false
	clearCache  = false
	clientNames []string
	siteNames   []string
)

func init() {
	command.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "Dry run. Do not add torrents to client, nor save cache")
	command.Flags().BoolVarP(&clearCache, "clear-cache", "", false, "Clear cache (success, error and permanent error) before scan")
	command.Flags().StringArrayVarP(&clientNames, "client", "c", nil, "Only scan these clients")
	command.Flags().StringArrayVarP(&siteNames, "site", "s", nil, "Only query these sites")
	cmd.RootCmd.AddCommand(command)
}

func run(_ *cobra.Command, args []string) error {
	engine, err := common.NewEngine(common.EngineOptions{
		ClientNames: clientNames,
		SiteNames:   siteNames,
		DryRun:      dryRun,
	})
	if err != nil {
		return err
	}
	defer engine.Close()
	ctx, cancel := common.SignalContext()
	defer cancel()
	summary, err := engine.RunScan(ctx, clearCache)
	if summary != nil {
		PrintSummary(summary)
	}
	if err != nil && common.IsCancelled(err) {
		fmt.Fprintf(os.Stderr, "Scan cancelled\n")
	}
	return err
}

func PrintSummary(summary *xseed.Summary) {
	fmt.Printf("Run %s (tag %s) finished in %s, started %s\n", summary.RunId, summary.Tag,
		summary.Duration.Round(time.Millisecond), humanize.Time(summary.StartTime))
	if summary.DryRun {
		fmt.Printf("(dry run)\n")
	}
	fmt.Printf("%-12s  %s\n", "Sources", humanize.Comma(summary.Sources))
	fmt.Printf("%-12s  %s\n", "Total", humanize.Comma(summary.Total))
	fmt.Printf("%-12s  %s\n", "New", humanize.Comma(summary.New))
	fmt.Printf("%-12s  %s\n", "Existing", humanize.Comma(summary.Existing))
	fmt.Printf("%-12s  %s\n", "Success", humanize.Comma(summary.Success))
	fmt.Printf("%-12s  %s\n", "Failed", humanize.Comma(summary.Failed))
	fmt.Printf("%-12s  %s\n", "Cached", humanize.Comma(summary.Cached))
	fmt.Printf("%-12s  %s\n", "QueryErrors", humanize.Comma(summary.QueryErrors))
}
