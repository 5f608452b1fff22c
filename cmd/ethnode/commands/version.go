package commands

import (
	"fmt"
	"runtime"

	"github.com/DOIDFoundation/ethnode/network"
	"github.com/DOIDFoundation/ethnode/version"
	"github.com/cometbft/cometbft/libs/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	VersionCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show protocol and library versions")
}

// VersionCmd prints build information.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Version:", version.VersionWithMeta())
		if version.Commit != "" {
			fmt.Println("Git Commit:", version.Commit)
		}
		if version.Date != "" {
			fmt.Println("Git Commit Date:", version.Date)
		}
		if verbose {
			fmt.Println("Protocol Version:", network.ProtocolVersion)
			fmt.Println("Home:", viper.GetString(cli.HomeFlag))
		}
		fmt.Println("Architecture:", runtime.GOARCH)
		fmt.Println("Go Version:", runtime.Version())
		fmt.Println("Operating System:", runtime.GOOS)
	},
}
