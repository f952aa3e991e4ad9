package fsm

import (
	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/lib"
)

/* Key.go contains prefix keys logic for the underlying store*/

var (
	positionPrefix        = []byte{1}  // store key prefix for positions by id
	priceIndexPrefix      = []byte{2}  // store key prefix for the per direction price index of tradable positions
	auctionPrefix         = []byte{3}  // store key prefix for dutch auctions by id
	auctionTriggerPrefix  = []byte{4}  // store key prefix for scheduled auction triggers by height
	auctionPositionPrefix = []byte{5}  // store key prefix for positions owned by an auction
	vcbPrefix             = []byte{6}  // store key prefix for the value circuit breaker balances
	swapPrefix            = []byte{7}  // store key prefix for swap records by commitment
	swapHeightPrefix      = []byte{8}  // store key prefix for swaps by the height they were submitted
	batchOutputPrefix     = []byte{9}  // store key prefix for batch swap output data by height and pair
	executionPrefix       = []byte{10} // store key prefix for routed executions by height and direction
	arbExecutionPrefix    = []byte{11} // store key prefix for arbitrage executions by height
	arbReservePrefix      = []byte{12} // store key prefix for the arbitrage surplus reserve
	commitmentPrefix      = []byte{13} // store key prefix for the commitment set
	commitmentLeafPrefix  = []byte{14} // store key prefix for the ordered commitment leaves
	commitmentCountPrefix = []byte{15} // store key prefix for the number of commitment leaves
	txPrefix              = []byte{16} // store key prefix for applied transaction hashes
	eventPrefix           = []byte{17} // store key prefix for block events
)

/*
- Prefixes are used to allow 'grouping' and organization in a schemaless key-value database environment

- Iterating over a prefix enables operations over groups of similar datastructures (positions, triggers etc.)

- Length prefixed append is used to be able to easily separate the segments of a key

- BigEndianEncoding is used for uint64 and the fixed point price keys to accommodate the 'lexicographical' sorting nature of the key-value database
*/

func PositionPrefix() []byte           { return lib.JoinLenPrefix(positionPrefix) }
func AuctionPrefix() []byte            { return lib.JoinLenPrefix(auctionPrefix) }
func AuctionTriggerPrefix() []byte     { return lib.JoinLenPrefix(auctionTriggerPrefix) }
func VCBPrefix() []byte                { return lib.JoinLenPrefix(vcbPrefix) }
func ArbReservePrefix() []byte         { return lib.JoinLenPrefix(arbReservePrefix) }
func ArbExecutionPrefix() []byte       { return lib.JoinLenPrefix(arbExecutionPrefix) }
func CommitmentLeafPrefix() []byte     { return lib.JoinLenPrefix(commitmentLeafPrefix) }
func KeyForCommitmentCount() []byte    { return lib.JoinLenPrefix(commitmentCountPrefix) }
func KeyForTx(hash string) []byte      { return lib.JoinLenPrefix(txPrefix, []byte(hash)) }
func SwapHeightPrefix(h uint64) []byte { return lib.JoinLenPrefix(swapHeightPrefix, formatUint64(h)) }
func BatchOutputPrefix(h uint64) []byte {
	return lib.JoinLenPrefix(batchOutputPrefix, formatUint64(h))
}
func ExecutionPrefix(h uint64) []byte { return lib.JoinLenPrefix(executionPrefix, formatUint64(h)) }
func EventPrefix(h uint64) []byte     { return lib.JoinLenPrefix(eventPrefix, formatUint64(h)) }
func KeyForArbExecution(h uint64) []byte {
	return lib.JoinLenPrefix(arbExecutionPrefix, formatUint64(h))
}
func KeyForPosition(id dex.PositionId) []byte { return lib.JoinLenPrefix(positionPrefix, id.Bytes()) }
func KeyForAuction(id dex.AuctionId) []byte   { return lib.JoinLenPrefix(auctionPrefix, id.Bytes()) }
func KeyForVCB(a dex.AssetId) []byte          { return lib.JoinLenPrefix(vcbPrefix, a.Bytes()) }
func KeyForArbReserve(a dex.AssetId) []byte   { return lib.JoinLenPrefix(arbReservePrefix, a.Bytes()) }
func KeyForSwap(c dex.Commitment) []byte      { return lib.JoinLenPrefix(swapPrefix, c.Bytes()) }
func KeyForCommitment(c dex.Commitment) []byte {
	return lib.JoinLenPrefix(commitmentPrefix, c.Bytes())
}
func KeyForCommitmentLeaf(index uint64) []byte {
	return lib.JoinLenPrefix(commitmentLeafPrefix, formatUint64(index))
}
func KeyForAuctionPosition(id dex.PositionId) []byte {
	return lib.JoinLenPrefix(auctionPositionPrefix, id.Bytes())
}
func KeyForAuctionTrigger(height uint64, id dex.AuctionId) []byte {
	return lib.JoinLenPrefix(auctionTriggerPrefix, formatUint64(height), id.Bytes())
}
func KeyForSwapHeight(height uint64, c dex.Commitment) []byte {
	return lib.JoinLenPrefix(swapHeightPrefix, formatUint64(height), c.Bytes())
}
func KeyForBatchOutput(height uint64, pair dex.TradingPair) []byte {
	return lib.JoinLenPrefix(batchOutputPrefix, formatUint64(height), pair.Bytes())
}
func KeyForExecution(height uint64, d dex.DirectedTradingPair) []byte {
	return lib.JoinLenPrefix(executionPrefix, formatUint64(height), d.Bytes())
}
func KeyForEvent(height uint64, index int) []byte {
	return lib.JoinLenPrefix(eventPrefix, formatUint64(height), formatUint64(uint64(index)))
}

// PriceIndexPrefix() groups the tradable positions of a direction, cheapest first
func PriceIndexPrefix(d dex.DirectedTradingPair) []byte {
	return lib.JoinLenPrefix(priceIndexPrefix, d.Bytes())
}

// KeyForPriceIndex() orders a position within its direction by price key and then by id
func KeyForPriceIndex(d dex.DirectedTradingPair, priceKey [dex.PriceKeySize]byte, id dex.PositionId) []byte {
	return lib.JoinLenPrefix(priceIndexPrefix, d.Bytes(), priceKey[:], id.Bytes())
}

// PositionIdFromPriceIndexKey() extracts the position id segment of a price index key
func PositionIdFromPriceIndexKey(k []byte) (dex.PositionId, lib.ErrorI) {
	segments := lib.DecodeLengthPrefixed(k)
	if len(segments) != 4 {
		return dex.PositionId{}, ErrInvalidKey(k)
	}
	return dex.NewPositionId(segments[3])
}

// AuctionTriggerFromKey() extracts the height and auction id segments of a trigger key
func AuctionTriggerFromKey(k []byte) (height uint64, id dex.AuctionId, err lib.ErrorI) {
	segments := lib.DecodeLengthPrefixed(k)
	if len(segments) != 3 {
		return 0, id, ErrInvalidKey(k)
	}
	id, err = dex.NewAuctionId(segments[2])
	return lib.BytesToUint64(segments[1]), id, err
}

// AssetFromKey() extracts the asset id segment of a per asset balance key
func AssetFromKey(k []byte) (dex.AssetId, lib.ErrorI) {
	segments := lib.DecodeLengthPrefixed(k)
	if len(segments) != 2 {
		return dex.AssetId{}, ErrInvalidKey(k)
	}
	return dex.NewAssetId(segments[1])
}

func formatUint64(u uint64) []byte { return lib.Uint64ToBytes(u) }
