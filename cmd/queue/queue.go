package queue

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sagan/ptxseed/client"
	"github.com/sagan/ptxseed/cmd"
	"github.com/sagan/ptxseed/cmd/common"
	"github.com/sagan/ptxseed/constants"
	"github.com/sagan/ptxseed/util"
	"github.com/sagan/ptxseed/xseed"
)

var command = &cobra.Command{
	Use:   "queue",
	Short: "Show or edit the recheck queue.",
	Long: `Show or edit the recheck queue.
Added cross-seed torrents stay in queue until client reports them as verified and they are started.
A torrent that is deleted from client manually may need to be removed from queue.`,
}

var showCommand = &cobra.Command{
	Use:   "show",
	Short: "Show pending torrents of all clients.",
	Long: `Show pending torrents of all clients.
With --state, current state of pending torrents is fetched from clients.`,
	Args:  cobra.MatchAll(cobra.ExactArgs(0), cobra.OnlyValidArgs),
	RunE:  show,
}

var removeCommand = &cobra.Command{
	Use:   "remove {client} {infoHash}...",
	Short: "Remove torrents from the recheck queue of client.",
	Long: `Remove torrents from the recheck queue of client.
` + constants.HELP_INFOHASH_ARGS,
	Args:  cobra.MatchAll(cobra.MinimumNArgs(2), cobra.OnlyValidArgs),
	RunE:  remove,
}

var (
	showState = false
)

func init() {
	showCommand.Flags().BoolVarP(&showState, "state", "", false, "Fetch and show current state of pending torrents in client")
	command.AddCommand(showCommand, removeCommand)
	cmd.RootCmd.AddCommand(command)
}

func show(_ *cobra.Command, args []string) error {
	store, err := common.OpenStore()
	if err != nil {
		return err
	}
	defer store.Close()
	queue, err := store.LoadQueue()
	if err != nil {
		return err
	}
	if len(queue) == 0 {
		fmt.Printf("Recheck queue is empty\n")
		return nil
	}
	errorCnt := 0
	for _, clientName := range util.MapKeys(queue) {
		fmt.Printf("%s (%d)\n", clientName, len(queue[clientName]))
		if showState {
			if err := printClientState(clientName, queue[clientName]); err != nil {
				log.Errorf("Failed to get torrents of client %s: %v", clientName, err)
				errorCnt++
			}
			continue
		}
		for _, id := range queue[clientName] {
			fmt.Printf("  %s\n", id)
		}
	}
	if errorCnt > 0 {
		return fmt.Errorf("%d errors", errorCnt)
	}
	return nil
}

func remove(_ *cobra.Command, args []string) error {
	clientName := args[0]
	infoHashes := args[1:]
	if len(infoHashes) == 1 && infoHashes[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		infoHashes = strings.Fields(string(data))
	}
	for _, infoHash := range infoHashes {
		if !client.IsValidInfoHash(infoHash) {
			return fmt.Errorf("invalid info-hash %s", infoHash)
		}
	}
	store, err := common.OpenStore()
	if err != nil {
		return err
	}
	defer store.Close()
	queue, err := store.LoadQueue()
	if err != nil {
		return err
	}
	scheduler := xseed.NewScheduler(nil, queue, store)
	removed := scheduler.Remove(clientName, infoHashes...)
	fmt.Printf("Removed %d torrents from recheck queue of %s\n", removed, clientName)
	return nil
}

func printClientState(clientName string, ids []string) error {
	clientInstance, err := client.CreateClient(clientName)
	if err != nil {
		return err
	}
	defer clientInstance.Close()
	torrents, err := clientInstance.GetTorrents(context.Background(), ids)
	if err != nil {
		return err
	}
	client.PrintTorrents(torrents)
	if missing := len(ids) - len(torrents); missing > 0 {
		fmt.Printf("(%d torrents not found in client)\n", missing)
	}
	fmt.Printf("\n")
	return nil
}
