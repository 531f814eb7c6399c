package presale

import "math/big"

// CatalogItem is one presale-purchasable entry. The URL and price share one
// index by construction, so their correspondence can never drift.
type CatalogItem struct {
	URL   string
	Price *big.Int
}

// Listing is the catalog projection returned to query layers.
type Listing struct {
	URL   string   `json:"url"`
	Price *big.Int `json:"price"`
	ID    uint64   `json:"id"`
}

// Holding is one minted token held by a participant.
type Holding struct {
	URL string `json:"url"`
	ID  uint64 `json:"id"`
}

// Summary is the aggregate presale snapshot.
type Summary struct {
	Owner         [20]byte `json:"owner"`
	StartTime     uint64   `json:"startAt"`
	EndTime       uint64   `json:"endAt"`
	CatalogLength uint64   `json:"catalogLength"`
	MintedCount   uint64   `json:"mintedCount"`
}

// SaleState holds the scalar presale record: the sale window, the running
// token counter and the accumulated owner balance. MintedCount and
// OwnerBalance only ever grow; a zero/zero window means the window was never
// configured.
type SaleState struct {
	StartTime    uint64
	EndTime      uint64
	MintedCount  uint64
	OwnerBalance *big.Int
}

func newSaleState() *SaleState {
	return &SaleState{OwnerBalance: big.NewInt(0)}
}

func (s *SaleState) normalize() *SaleState {
	if s.OwnerBalance == nil {
		s.OwnerBalance = big.NewInt(0)
	}
	return s
}

// SetWindow replaces the sale window. The start must precede the end; a failed
// call leaves the prior window untouched.
func (s *SaleState) SetWindow(start, end uint64) error {
	if start >= end {
		return ErrInvalidWindow
	}
	s.StartTime = start
	s.EndTime = end
	return nil
}

// Credit adds a payment to the accumulated owner balance. Payments only ever
// credit, refunds are not modeled.
func (s *SaleState) Credit(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	s.OwnerBalance = new(big.Int).Add(s.OwnerBalance, amount)
	return nil
}

// NextTokenID increments the mint counter and returns it. The counter is
// incremented before use, so the first token ever minted carries ID 1.
func (s *SaleState) NextTokenID() uint64 {
	s.MintedCount++
	return s.MintedCount
}
