package sites

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sagan/ptxseed/cmd"
	"github.com/sagan/ptxseed/config"
	"github.com/sagan/ptxseed/site/tpl"
	"github.com/sagan/ptxseed/util"
)

var command = &cobra.Command{
	Use:   "sites",
	Short: "Show configured sites, or the built-in site directory.",
	Long:  `Show configured sites, or the built-in site directory (--tpl).`,
	Args:  cobra.MatchAll(cobra.ExactArgs(0), cobra.OnlyValidArgs),
	RunE:  sites,
}

var (
	showTpl = false
)

func init() {
	command.Flags().BoolVarP(&showTpl, "tpl", "", false, "Show built-in site directory instead")
	cmd.RootCmd.AddCommand(command)
}

func sites(_ *cobra.Command, args []string) error {
	if showTpl {
		fmt.Printf("%-15s  %-15s  %-30s  %s\n", "Name", "Aliases", "Url", "Comment")
		for _, name := range tpl.SITENAMES {
			siteTpl := tpl.SITES[name]
			fmt.Printf("%-15s  %-15s  %-30s  ", name, strings.Join(siteTpl.Aliases, ","), siteTpl.Url)
			util.PrintStringInWidth(siteTpl.Comment, 20, false)
			fmt.Printf("\n")
		}
		return nil
	}
	configData := config.Get()
	fmt.Printf("%-15s  %-10s  %-7s  %-4s  %-50s  %s\n", "Name", "Type", "Passkey", "Gap", "Api", "Directory")
	for _, siteConfig := range configData.Sites {
		passkey := "✓"
		if siteConfig.Passkey == "" {
			passkey = "✕"
		}
		directory := strings.Join(tpl.FindSiteTypesByDomain(util.GetUrlDomain(siteConfig.Url)), ",")
		fmt.Printf("%-15s  %-10s  %-7s  %-4s  %-50s  %s\n",
			siteConfig.GetName(),
			siteConfig.Type,
			passkey,
			fmt.Sprintf("%ds", siteConfig.QueryGap),
			siteConfig.ParseSiteUrl(siteConfig.ApiPath),
			directory,
		)
	}
	return nil
}
