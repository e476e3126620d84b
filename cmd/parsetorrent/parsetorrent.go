package parsetorrent

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sagan/ptxseed/cmd"
	"github.com/sagan/ptxseed/util/torrentutil"
)

var command = &cobra.Command{
	Use:     "parsetorrent {file.torrent}...",
	Aliases: []string{"parse"},
	Short:   "Parse torrent files and show their info hash and pieces hash.",
	Long: `Parse torrent files and show their info hash and pieces hash.
Use "-" as filename to read torrent from stdin.`,
	Args: cobra.MatchAll(cobra.MinimumNArgs(1), cobra.OnlyValidArgs),
	RunE: parsetorrent,
}

var (
	showAll  = false
	showJson = false
)

func init() {
	command.Flags().BoolVarP(&showAll, "all", "a", false, "Show all info")
	command.Flags().BoolVarP(&showJson, "json", "", false, "Show output in json format")
	cmd.RootCmd.AddCommand(command)
}

func parsetorrent(_ *cobra.Command, args []string) error {
	if slices.Contains(args, "-") && term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf(`"-" arg can not be used when stdin is a terminal`)
	}
	errorCnt := int64(0)

	for _, torrentFilename := range args {
		var record *torrentutil.TorrentRecord
		var err error
		if torrentFilename == "-" {
			var torrentContent []byte
			if torrentContent, err = io.ReadAll(os.Stdin); err == nil {
				record, err = torrentutil.Parse(torrentContent)
			}
		} else {
			record, err = torrentutil.LoadFromPath(torrentFilename)
		}
		if err != nil {
			log.Errorf("Failed to parse %s: %v", torrentFilename, err)
			errorCnt++
			continue
		}
		if showJson {
			bytes, err := json.Marshal(record)
			if err != nil {
				log.Errorf("Failed to marshal info json of %s: %v", torrentFilename, err)
				errorCnt++
				continue
			}
			fmt.Println(string(bytes))
			continue
		}
		record.Print(torrentFilename, showAll)
	}
	if errorCnt > 0 {
		return fmt.Errorf("%d errors", errorCnt)
	}
	return nil
}
