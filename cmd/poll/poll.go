package poll

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sagan/ptxseed/cmd"
	"github.com/sagan/ptxseed/cmd/common"
)

var command = &cobra.Command{
	Use:   "poll",
	Short: "Check pending cross-seed torrents and start the verified ones.",
	Long:  `Check pending cross-seed torrents and start the verified ones.`,
	Args:  cobra.MatchAll(cobra.ExactArgs(0), cobra.OnlyValidArgs),
	RunE:  poll,
}

func init() {
	cmd.RootCmd.AddCommand(command)
}

func poll(_ *cobra.Command, args []string) error {
	engine, err := common.NewEngine(common.EngineOptions{NoSites: true})
	if err != nil {
		return err
	}
	defer engine.Close()
	ctx, cancel := common.SignalContext()
	defer cancel()
	engine.Recheck.Poll(ctx)
	queue := engine.Recheck.Queue()
	pending := 0
	for _, ids := range queue {
		pending += len(ids)
	}
	fmt.Printf("%d torrents still pending recheck in %d clients\n", pending, len(queue))
	return ctx.Err()
}
