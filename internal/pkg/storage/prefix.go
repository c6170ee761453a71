package storage

import (
	"github.com/google/orderedcode"
)

// index keys are orderedcode tuples, so positions sort by (height, index)
// inside a creator or account asset prefix
const (
	TXPOS_PREFIX     = "txpos"     //trx hash -> position
	COMMITTED_PREFIX = "committed" //committed trx hash
	REJECTED_PREFIX  = "rejected"  //rejected trx hash
	CREATOR_PREFIX   = "creator"   //creator, position
	ACCASSET_PREFIX  = "accasset"  //account, asset, position
	HEIGHT_KEY       = "height"    //last committed block height
)

func GetTxPositionKey(hash string) ([]byte, error) {
	return orderedcode.Append(nil, TXPOS_PREFIX, hash)
}

func GetCommittedKey(hash string) ([]byte, error) {
	return orderedcode.Append(nil, COMMITTED_PREFIX, hash)
}

func GetRejectedKey(hash string) ([]byte, error) {
	return orderedcode.Append(nil, REJECTED_PREFIX, hash)
}

func GetCreatorPrefix(creator string) ([]byte, error) {
	return orderedcode.Append(nil, CREATOR_PREFIX, creator)
}

func GetCreatorKey(creator string, pos TxPosition) ([]byte, error) {
	return orderedcode.Append(nil, CREATOR_PREFIX, creator, pos.Height, pos.Index)
}

func GetAccountAssetPrefix(accountId, assetId string) ([]byte, error) {
	return orderedcode.Append(nil, ACCASSET_PREFIX, accountId, assetId)
}

func GetAccountAssetKey(accountId, assetId string, pos TxPosition) ([]byte, error) {
	return orderedcode.Append(nil, ACCASSET_PREFIX, accountId, assetId, pos.Height, pos.Index)
}

func GetHeightKey() ([]byte, error) {
	return orderedcode.Append(nil, HEIGHT_KEY)
}

func encodePosition(pos TxPosition) ([]byte, error) {
	return orderedcode.Append(nil, pos.Height, pos.Index)
}

func decodePosition(b []byte) (TxPosition, error) {
	var pos TxPosition
	_, err := orderedcode.Parse(string(b), &pos.Height, &pos.Index)
	return pos, err
}

// positionSuffix parses the trailing (height, index) of a key built from
// prefix
func positionSuffix(key []byte, prefix []byte) (TxPosition, error) {
	return decodePosition(key[len(prefix):])
}
