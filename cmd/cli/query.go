package cli

import (
	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/lib"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "query the dex rpc",
}

var (
	height, startHeight, pageNumber, perPage, state = uint64(0), uint64(0), 0, 0, ""
)

func init() {
	queryCmd.PersistentFlags().Uint64Var(&height, "height", 0, "historical height for the query, 0 is latest")
	queryCmd.PersistentFlags().Uint64Var(&startHeight, "start-height", 0, "starting height for queries with a range")
	queryCmd.PersistentFlags().IntVar(&pageNumber, "page-number", 0, "page number on a paginated call")
	queryCmd.PersistentFlags().IntVar(&perPage, "per-page", 0, "number of items per page on a paginated call")
	queryCmd.PersistentFlags().StringVar(&state, "state", "", "opened, closed or withdrawn: only positions in this state")
	queryCmd.AddCommand(heightCmd)
	queryCmd.AddCommand(batchOutputCmd)
	queryCmd.AddCommand(batchOutputsCmd)
	queryCmd.AddCommand(spreadCmd)
	queryCmd.AddCommand(positionCmd)
	queryCmd.AddCommand(positionsCmd)
	queryCmd.AddCommand(executionsCmd)
	queryCmd.AddCommand(arbExecutionCmd)
	queryCmd.AddCommand(auctionCmd)
	queryCmd.AddCommand(auctionsCmd)
	queryCmd.AddCommand(vcbBalanceCmd)
	queryCmd.AddCommand(swapCmd)
	queryCmd.AddCommand(eventsCmd)
	queryCmd.AddCommand(stateCmd)
}

var (
	heightCmd = &cobra.Command{
		Use:   "height",
		Short: "query the last committed height",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Height())
		},
	}

	batchOutputCmd = &cobra.Command{
		Use:   "batch-output <asset> <asset> --height=1",
		Short: "query the clearing result of a pair at a block",
		Args:  cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.BatchOutput(height, argToAsset(args[0]), argToAsset(args[1])))
		},
	}

	batchOutputsCmd = &cobra.Command{
		Use:   "batch-outputs --height=1",
		Short: "query every clearing result of a block",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.BatchOutputs(height))
		},
	}

	spreadCmd = &cobra.Command{
		Use:   "spread <start_asset> <end_asset> --height=1",
		Short: "query the best offers of a pair and the price of buying end with start",
		Args:  cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Spread(height, dex.DirectedTradingPair{Start: argToAsset(args[0]), End: argToAsset(args[1])}))
		},
	}

	positionCmd = &cobra.Command{
		Use:   "position <id> --height=1",
		Short: "query a liquidity position",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Position(height, args[0]))
		},
	}

	positionsCmd = &cobra.Command{
		Use:   "positions [asset] [asset] --height=1 --per-page=10 --page-number=1 --state=opened",
		Short: "query the positions of the book, optionally of a single pair",
		Run: func(cmd *cobra.Command, args []string) {
			var asset1, asset2 *dex.AssetId
			if len(args) >= 2 {
				a, b := argToAsset(args[0]), argToAsset(args[1])
				asset1, asset2 = &a, &b
			}
			writeToConsole(client.Positions(height, getPageParams(), asset1, asset2, state))
		},
	}

	executionsCmd = &cobra.Command{
		Use:   "executions --height=1 --start-height=1 --per-page=10 --page-number=1",
		Short: "query the routed executions of a block, or of a range if start height is set",
		Run: func(cmd *cobra.Command, args []string) {
			if startHeight != 0 {
				writeToConsole(client.ExecutionsRange(startHeight, height))
				return
			}
			writeToConsole(client.Executions(height, getPageParams()))
		},
	}

	arbExecutionCmd = &cobra.Command{
		Use:   "arb-execution --height=1",
		Short: "query the arbitrage execution of a block",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.ArbExecution(height))
		},
	}

	auctionCmd = &cobra.Command{
		Use:   "auction <id> --height=1",
		Short: "query a dutch auction",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Auction(height, args[0]))
		},
	}

	auctionsCmd = &cobra.Command{
		Use:   "auctions --height=1 --per-page=10 --page-number=1",
		Short: "query every dutch auction",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Auctions(height, getPageParams()))
		},
	}

	vcbBalanceCmd = &cobra.Command{
		Use:   "vcb-balance [asset] --height=1",
		Short: "query the circuit breaker balance of an asset, or of every asset",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 0 {
				writeToConsole(client.VCBBalances(height))
				return
			}
			writeToConsole(client.VCBBalance(height, argToAsset(args[0])))
		},
	}

	swapCmd = &cobra.Command{
		Use:   "swap <commitment> --height=1",
		Short: "query a swap and its claim status",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			c, err := dex.CommitmentFromString(args[0])
			if err != nil {
				l.Fatal(err.Error())
			}
			writeToConsole(client.Swap(height, c))
		},
	}

	eventsCmd = &cobra.Command{
		Use:   "events --height=1 --per-page=10 --page-number=1",
		Short: "query the events of a block",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Events(height, getPageParams()))
		},
	}

	stateCmd = &cobra.Command{
		Use:   "state",
		Short: "export the latest committed state",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.State())
		},
	}
)

var (
	routing = ""
)

func init() {
	simulateCmd.Flags().Uint64Var(&height, "height", 0, "historical height of the book, 0 is latest")
	simulateCmd.Flags().StringVar(&routing, "routing", "", "single-hop or empty for the default multi hop search")
}

var simulateCmd = &cobra.Command{
	Use:   "simulate <amount> <input_asset> <target_asset> --routing=single-hop",
	Short: "simulate a trade against the book without changing it",
	Args:  cobra.MinimumNArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		amount, err := lib.ParseAmount(args[0])
		if err != nil {
			l.Fatal(err.Error())
		}
		writeToConsole(client.SimulateTrade(height, dex.NewValue(argToAsset(args[1]), amount), argToAsset(args[2]), routing))
	},
}

// argToAsset() parses a hex asset id, anything else is a denomination
func argToAsset(arg string) dex.AssetId {
	if id, err := dex.AssetIdFromString(arg); err == nil {
		return id
	}
	return dex.AssetIdFromDenom(arg)
}

func getPageParams() lib.PageParams {
	return lib.PageParams{PageNumber: pageNumber, PerPage: perPage}
}
