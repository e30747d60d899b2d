package lending

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
)

var (
	marketPrefix   = []byte("lending/market/")
	configPrefix   = []byte("lending/config/")
	sharesPrefix   = []byte("lending/shares/")
	borrowPrefix   = []byte("lending/borrow/")
	enteredPrefix  = []byte("lending/entered/")
	operatorPrefix = []byte("lending/operator/")
	creditPrefix   = []byte("lending/credit/")
	accountPrefix  = []byte("lending/account/")
	ledgerPrefix   = []byte("lending/")
)

func marketKey(assetID string) []byte {
	return append(append([]byte(nil), marketPrefix...), assetID...)
}

func configKey(assetID string) []byte {
	return append(append([]byte(nil), configPrefix...), assetID...)
}

func positionKey(prefix []byte, assetID string, user common.Address) []byte {
	buf := make([]byte, 0, len(prefix)+len(assetID)+1+common.AddressLength*2)
	buf = append(buf, prefix...)
	buf = append(buf, assetID...)
	buf = append(buf, '/')
	buf = append(buf, user.Hex()...)
	return buf
}

func userKey(prefix []byte, user common.Address) []byte {
	buf := make([]byte, 0, len(prefix)+common.AddressLength*2)
	buf = append(buf, prefix...)
	buf = append(buf, user.Hex()...)
	return buf
}

// splitPositionKey recovers (assetID, user) from a position key.
func splitPositionKey(prefix, key []byte) (string, common.Address, bool) {
	rest := bytes.TrimPrefix(key, prefix)
	idx := bytes.LastIndexByte(rest, '/')
	if idx < 0 {
		return "", common.Address{}, false
	}
	addr := common.HexToAddress(string(rest[idx+1:]))
	return string(rest[:idx]), addr, true
}
