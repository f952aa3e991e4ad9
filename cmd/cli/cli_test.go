package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/fsm"
	"github.com/canopy-network/canopy-dex/lib"
	"github.com/stretchr/testify/require"
)

func TestInitializeDataDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dex")
	c := InitializeDataDirectory(dir, lib.NewNullLogger())
	require.Equal(t, dir, c.DataDirPath)
	require.Equal(t, lib.DefaultChainId, c.ChainId)
	// the default genesis is an empty, valid book
	genesis, err := fsm.ReadGenesisFromFile(filepath.Join(dir, lib.GenesisFilePath))
	require.NoError(t, err)
	require.Empty(t, genesis.Positions)
	require.Empty(t, genesis.Auctions)
	// an edited config survives a second initialization
	c.ChainId = "edited"
	require.NoError(t, c.WriteToFile(filepath.Join(dir, lib.ConfigFilePath)))
	require.Equal(t, "edited", InitializeDataDirectory(dir, lib.NewNullLogger()).ChainId)
}

func TestArgToAsset(t *testing.T) {
	denom := dex.AssetIdFromDenom("ugm")
	tests := []struct {
		name     string
		detail   string
		arg      string
		expected dex.AssetId
	}{
		{name: "hex", detail: "a hex encoded asset id is parsed", arg: denom.String(), expected: denom},
		{name: "denom", detail: "anything else is a denomination", arg: "ugm", expected: denom},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, argToAsset(test.arg))
		})
	}
}

func TestReadAndSignBlock(t *testing.T) {
	end := &dex.DutchAuctionEnd{AuctionId: dex.AuctionId{1}}
	signed, err := fsm.SignAction("other", end)
	require.NoError(t, err)
	block := &fsm.Block{Height: 3, Transactions: []*dex.Transaction{{Actions: []dex.Action{end, end}, Proofs: []lib.HexBytes{signed}}}}
	bz, err := lib.MarshalJSONIndent(block)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "block.json")
	require.NoError(t, os.WriteFile(path, bz, os.ModePerm))
	got, err := readBlockFile(path)
	require.NoError(t, err)
	require.EqualValues(t, 3, got.Height)
	require.NoError(t, signBlock("dex-test", got))
	proofs := got.Transactions[0].Proofs
	require.Len(t, proofs, 2)
	// an existing proof is kept, a missing one is bound to the chain
	require.Equal(t, signed, proofs[0])
	require.NoError(t, fsm.BindingVerifier{}.VerifyAction("dex-test", end, proofs[1]))
	_, err = readBlockFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
