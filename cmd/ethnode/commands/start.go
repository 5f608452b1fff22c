package commands

import (
	"fmt"
	"time"

	"github.com/DOIDFoundation/ethnode/flags"
	"github.com/DOIDFoundation/ethnode/node"
	"github.com/cometbft/cometbft/libs/os"
	"github.com/spf13/cobra"
)

// addFlags exposes configuration options for starting a node.
func addFlags(cmd *cobra.Command) {
	cmd.Flags().String(flags.DB_Engine, "goleveldb", "database backend: goleveldb | cleveldb | boltdb | rocksdb | badgerdb | memdb")
	cmd.Flags().Uint64(flags.Chain_ID, 1337, "chain id used for transaction signatures")
	cmd.Flags().Int64(flags.State_Keep, 0, "number of recent state versions to keep, 0 keeps all")

	cmd.Flags().String(flags.RPC_Addr, "127.0.0.1:8545", "JSON-RPC listen address")
	cmd.Flags().Bool(flags.Eth_PendingReceipts, true, "answer receipt queries for transactions in the pending block")
	cmd.Flags().Bool(flags.Eth_WorkNumber, true, "append the block number to eth_getWork results")

	cmd.Flags().Bool(flags.Mine_Enabled, false, "seal blocks with the built-in CPU miner")
	cmd.Flags().Int(flags.Mine_Threads, 1, "number of CPU mining threads")
	cmd.Flags().String(flags.Mine_Author, "", "address credited with mined blocks, required for mining")
	cmd.Flags().Duration(flags.Mine_Recommit, 3*time.Second, "interval to rebuild the pending block")
	cmd.Flags().String(flags.Mine_GasPrice, "", "minimum gas price of mined transactions")

	cmd.Flags().StringSlice(flags.Accounts, nil, "addresses reported by eth_accounts")
	cmd.Flags().String(flags.Solc_Path, "solc", "path of the solidity compiler")
	cmd.Flags().Duration(flags.Solc_Timeout, 30*time.Second, "timeout of a single compilation")
	cmd.Flags().String(flags.Dapps_Dir, "", "directory of fetched dapps, defaults to <home>/dapps")
	cmd.Flags().Int(flags.Dapps_CacheSize, 20, "number of dapps kept on disk")
}

// StartCmd is the command that allows the CLI to start a node.
var StartCmd = &cobra.Command{
	Use:     "start",
	Aliases: []string{"node", "run"},
	Short:   "Run the node",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := node.NewNode(logger)
		if err != nil {
			return fmt.Errorf("failed to create node: %w", err)
		}

		if err := n.Start(); err != nil {
			return fmt.Errorf("failed to start node: %w", err)
		}

		logger.Info("started node", "rpc", n.RPC().Addr())

		// Stop upon receiving SIGTERM or CTRL-C.
		os.TrapSignal(logger, func() {
			if n.IsRunning() {
				if err := n.Stop(); err != nil {
					logger.Error("unable to stop the node", "error", err)
				}
			}
		})

		// Run forever.
		select {}
	},
}

func init() {
	addFlags(StartCmd)
}
