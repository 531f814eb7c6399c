package presale

import "github.com/ethereum/go-ethereum/rlp"

func encodeCatalogItem(item *CatalogItem) ([]byte, error) {
	return rlp.EncodeToBytes(item)
}

func decodeCatalogItem(raw []byte, out *CatalogItem) error {
	return rlp.DecodeBytes(raw, out)
}
