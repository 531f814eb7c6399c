package presale

import "fmt"

var (
	saleKeyBytes      = []byte("presale/sale")
	catalogPrefix     = []byte("presale/catalog")
	tokenURLPrefix    = []byte("presale/token-url")
	whitelistPrefix   = []byte("presale/whitelist")
	holdingsPrefix    = []byte("presale/holdings/")
	itemMintersPrefix = []byte("presale/item-minters/")
)

func holdingsKey(addr [20]byte) []byte {
	key := make([]byte, len(holdingsPrefix)+len(addr))
	copy(key, holdingsPrefix)
	copy(key[len(holdingsPrefix):], addr[:])
	return key
}

func itemMintersKey(itemID uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", itemMintersPrefix, itemID))
}
