package cli

import (
	"path/filepath"

	"github.com/canopy-network/canopy-dex/fsm"
	"github.com/canopy-network/canopy-dex/lib"
	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "admin only operations for the node",
}

var (
	sign bool
)

func init() {
	adminCmd.PersistentFlags().BoolVar(&sign, "sign", false, "bind every action without a proof to the configured chain id before submitting")
	adminCmd.AddCommand(blockCmd)
	adminCmd.AddCommand(configCmd)
	adminCmd.AddCommand(resourceUsageCmd)
}

var (
	blockCmd = &cobra.Command{
		Use:   "block <block.json> --sign",
		Short: "apply and commit a block of transactions read from a json file",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			block, err := readBlockFile(args[0])
			if err != nil {
				l.Fatal(err.Error())
			}
			if sign {
				if err = signBlock(config.ChainId, block); err != nil {
					l.Fatal(err.Error())
				}
			}
			writeToConsole(client.ApplyBlock(block))
		},
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "query the configuration of the node",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Config())
		},
	}

	resourceUsageCmd = &cobra.Command{
		Use:   "resource-usage",
		Short: "query the process and host resources of the node",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.ResourceUsage())
		},
	}
)

// readBlockFile() reads a block from a json file
func readBlockFile(path string) (*fsm.Block, lib.ErrorI) {
	block := new(fsm.Block)
	if err := lib.NewJSONFromFile(block, filepath.Dir(path), filepath.Base(path)); err != nil {
		return nil, err
	}
	return block, nil
}

// signBlock() fills in the missing action proofs of every transaction
func signBlock(chainId string, block *fsm.Block) lib.ErrorI {
	for _, tx := range block.Transactions {
		if tx == nil {
			continue
		}
		proofs := make([]lib.HexBytes, len(tx.Actions))
		copy(proofs, tx.Proofs)
		for i, a := range tx.Actions {
			if len(proofs[i]) != 0 {
				continue
			}
			proof, err := fsm.SignAction(chainId, a)
			if err != nil {
				return err
			}
			proofs[i] = proof
		}
		tx.Proofs = proofs
	}
	return nil
}
