package versioncmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/sagan/ptxseed/cmd"
	"github.com/sagan/ptxseed/util"
	"github.com/sagan/ptxseed/version"
)

var command = &cobra.Command{
	Use:   "version",
	Short: "Display ptxseed version.",
	Long:  `Display ptxseed version.`,
	Args:  cobra.MatchAll(cobra.ExactArgs(0), cobra.OnlyValidArgs),
	RunE:  versioncmd,
}

func init() {
	cmd.RootCmd.AddCommand(command)
}

func versioncmd(_ *cobra.Command, args []string) error {
	fmt.Printf("ptxseed %s\n", version.Version)
	fmt.Printf("- os/type: %s\n", runtime.GOOS)
	fmt.Printf("- os/arch: %s\n", runtime.GOARCH)
	fmt.Printf("- go/version: %s\n", runtime.Version())
	fmt.Printf("- config/default_http_request_headers:\n")
	for _, name := range util.MapKeys(util.CHROME_HTTP_REQUEST_HEADERS) {
		fmt.Printf("  %s: %s\n", name, util.CHROME_HTTP_REQUEST_HEADERS[name])
	}
	return nil
}
