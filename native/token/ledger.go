package token

import (
	"errors"
	"fmt"
)

var (
	ErrTokenExists   = errors.New("token: token id already minted")
	ErrTokenNotFound = errors.New("token: token id not found")
	ErrNotTokenOwner = errors.New("token: caller does not own token")
	ErrZeroAddress   = errors.New("token: zero address")
)

var (
	ownerPrefix    = []byte("token/owner/")
	approvedPrefix = []byte("token/approved/")
	balancePrefix  = []byte("token/balance/")
	supplyKeyBytes = []byte("token/supply")
)

type ledgerState interface {
	KVPut(key []byte, value interface{}) error
	KVGet(key []byte, out interface{}) (bool, error)
}

// Ledger is a minimal non-fungible token ledger over the key-value state. It
// tracks per-token ownership, per-address balances and the total supply; the
// presale engine only relies on Mint, everything else serves transfers after
// the sale.
type Ledger struct {
	st     ledgerState
	name   string
	symbol string
}

// NewLedger creates a token ledger backed by the provided state.
func NewLedger(st ledgerState, name, symbol string) *Ledger {
	return &Ledger{st: st, name: name, symbol: symbol}
}

func (l *Ledger) Name() string   { return l.name }
func (l *Ledger) Symbol() string { return l.symbol }

func ownerKey(tokenID uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", ownerPrefix, tokenID))
}

func approvedKey(tokenID uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", approvedPrefix, tokenID))
}

func balanceKey(addr [20]byte) []byte {
	key := make([]byte, len(balancePrefix)+len(addr))
	copy(key, balancePrefix)
	copy(key[len(balancePrefix):], addr[:])
	return key
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

func (l *Ledger) setBalance(addr [20]byte, balance uint64) error {
	return l.st.KVPut(balanceKey(addr), balance)
}

// Mint assigns ownership of a fresh token ID. Minting an ID that already has
// an owner fails with ErrTokenExists; the presale engine never reuses IDs so
// the error only surfaces on caller bugs.
func (l *Ledger) Mint(owner [20]byte, tokenID uint64) error {
	if isZeroAddress(owner) {
		return ErrZeroAddress
	}
	var existing []byte
	ok, err := l.st.KVGet(ownerKey(tokenID), &existing)
	if err != nil {
		return err
	}
	if ok {
		return ErrTokenExists
	}
	if err := l.st.KVPut(ownerKey(tokenID), owner[:]); err != nil {
		return err
	}
	balance, err := l.BalanceOf(owner)
	if err != nil {
		return err
	}
	if err := l.setBalance(owner, balance+1); err != nil {
		return err
	}
	supply, err := l.TotalSupply()
	if err != nil {
		return err
	}
	return l.st.KVPut(supplyKeyBytes, supply+1)
}

// OwnerOf returns the current owner of the token.
func (l *Ledger) OwnerOf(tokenID uint64) ([20]byte, error) {
	var owner [20]byte
	var raw []byte
	ok, err := l.st.KVGet(ownerKey(tokenID), &raw)
	if err != nil {
		return owner, err
	}
	if !ok || len(raw) != len(owner) {
		return owner, ErrTokenNotFound
	}
	copy(owner[:], raw)
	return owner, nil
}

// BalanceOf returns the number of tokens held by addr.
func (l *Ledger) BalanceOf(addr [20]byte) (uint64, error) {
	var balance uint64
	ok, err := l.st.KVGet(balanceKey(addr), &balance)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return balance, nil
}

// TotalSupply returns the number of tokens minted so far.
func (l *Ledger) TotalSupply() (uint64, error) {
	var supply uint64
	ok, err := l.st.KVGet(supplyKeyBytes, &supply)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return supply, nil
}

// Approve lets the token owner authorise a spender for a single token. The
// approval is cleared on transfer.
func (l *Ledger) Approve(caller, spender [20]byte, tokenID uint64) error {
	owner, err := l.OwnerOf(tokenID)
	if err != nil {
		return err
	}
	if owner != caller {
		return ErrNotTokenOwner
	}
	return l.st.KVPut(approvedKey(tokenID), spender[:])
}

// Approved returns the approved spender for the token, if any.
func (l *Ledger) Approved(tokenID uint64) ([20]byte, bool, error) {
	var spender [20]byte
	var raw []byte
	ok, err := l.st.KVGet(approvedKey(tokenID), &raw)
	if err != nil {
		return spender, false, err
	}
	if !ok || len(raw) != len(spender) || isZeroAddress(sliceToAddr(raw)) {
		return spender, false, nil
	}
	copy(spender[:], raw)
	return spender, true, nil
}

// Transfer moves the token from its current owner to the recipient. The
// caller must be the owner or the approved spender.
func (l *Ledger) Transfer(caller, to [20]byte, tokenID uint64) error {
	if isZeroAddress(to) {
		return ErrZeroAddress
	}
	owner, err := l.OwnerOf(tokenID)
	if err != nil {
		return err
	}
	if owner != caller {
		spender, ok, err := l.Approved(tokenID)
		if err != nil {
			return err
		}
		if !ok || spender != caller {
			return ErrNotTokenOwner
		}
	}
	if err := l.st.KVPut(ownerKey(tokenID), to[:]); err != nil {
		return err
	}
	var cleared [20]byte
	if err := l.st.KVPut(approvedKey(tokenID), cleared[:]); err != nil {
		return err
	}
	fromBalance, err := l.BalanceOf(owner)
	if err != nil {
		return err
	}
	if fromBalance > 0 {
		if err := l.setBalance(owner, fromBalance-1); err != nil {
			return err
		}
	}
	toBalance, err := l.BalanceOf(to)
	if err != nil {
		return err
	}
	return l.setBalance(to, toBalance+1)
}

func sliceToAddr(raw []byte) [20]byte {
	var addr [20]byte
	copy(addr[:], raw)
	return addr
}
