package events

import "math/big"

const (
	// TypePresaleRegistered is emitted when an address joins the whitelist.
	TypePresaleRegistered = "presale.whitelist.registered"
	// TypePresaleItemAdded is emitted when the owner appends a catalog item.
	TypePresaleItemAdded = "presale.catalog.added"
	// TypePresaleWindowUpdated is emitted when the sale window is replaced.
	TypePresaleWindowUpdated = "presale.window.updated"
	// TypePresaleMinted is emitted whenever a mint completes.
	TypePresaleMinted = "presale.token.minted"
)

// PresaleRegistered records a successful whitelist registration.
type PresaleRegistered struct {
	Address [20]byte
}

func (PresaleRegistered) EventType() string { return TypePresaleRegistered }

// PresaleItemAdded records a new catalog entry and its assigned index.
type PresaleItemAdded struct {
	Index uint64
	URL   string
	Price *big.Int
}

func (PresaleItemAdded) EventType() string { return TypePresaleItemAdded }

// PresaleWindowUpdated records a replacement of the sale window.
type PresaleWindowUpdated struct {
	StartTime uint64
	EndTime   uint64
}

func (PresaleWindowUpdated) EventType() string { return TypePresaleWindowUpdated }

// PresaleMinted records a completed mint with the payment that funded it.
type PresaleMinted struct {
	TokenID uint64
	ItemID  uint64
	Minter  [20]byte
	Payment *big.Int
}

func (PresaleMinted) EventType() string { return TypePresaleMinted }
