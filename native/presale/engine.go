package presale

import (
	"math/big"
	"time"

	"nftpresale/core/events"
	"nftpresale/core/state"
)

const catalogIndexMissing = "no catalog item at this index"

type engineState interface {
	KVPut(key []byte, value interface{}) error
	KVGet(key []byte, out interface{}) (bool, error)
}

// TokenMinter is the capability the engine needs from the token ledger. The
// engine never reuses token IDs and invokes the minter before committing any
// of its own state, so a rejected delegation aborts the whole mint.
type TokenMinter interface {
	Mint(owner [20]byte, tokenID uint64) error
}

// Engine orchestrates the presale: it validates eligibility, enforces
// one-mint-per-item-per-address, assigns sequential token IDs and keeps the
// catalog, whitelist and holdings collections consistent.
//
// The engine assumes serialized execution: every operation runs to completion
// with no interleaving. Callers (core.Node) hold a single lock around each
// externally triggered operation; validation always happens before the first
// mutation, so a failed operation leaves prior state untouched.
type Engine struct {
	st            engineState
	minter        TokenMinter
	emitter       events.Emitter
	owner         [20]byte
	enforceWindow bool
	nowFn         func() uint64
}

// NewEngine constructs a presale engine over the given state and token ledger.
func NewEngine(st engineState, minter TokenMinter) *Engine {
	return &Engine{
		st:      st,
		minter:  minter,
		emitter: events.NoopEmitter{},
		nowFn: func() uint64 {
			return uint64(time.Now().Unix())
		},
	}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetOwner configures the privileged owner identity.
func (e *Engine) SetOwner(owner [20]byte) { e.owner = owner }

// Owner returns the configured owner identity.
func (e *Engine) Owner() [20]byte { return e.owner }

// SetWindowEnforcement toggles time gating of mints. The gate is off by
// default: the window is recorded and queryable either way, enabling the gate
// only ever rejects more mints.
func (e *Engine) SetWindowEnforcement(enabled bool) { e.enforceWindow = enabled }

// WindowEnforced reports whether mints are gated by the sale window.
func (e *Engine) WindowEnforced() bool { return e.enforceWindow }

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() uint64) {
	if now == nil {
		e.nowFn = func() uint64 { return uint64(time.Now().Unix()) }
		return
	}
	e.nowFn = now
}

func (e *Engine) catalog() *state.IndexedMap {
	return state.NewIndexedMap(e.st, catalogPrefix)
}

func (e *Engine) tokenURLs() *state.IndexedMap {
	return state.NewIndexedMap(e.st, tokenURLPrefix)
}

func (e *Engine) whitelist() *state.AddressSet {
	return state.NewAddressSet(e.st, whitelistPrefix)
}

func (e *Engine) holdings(addr [20]byte) *state.IntSet {
	return state.NewIntSet(e.st, holdingsKey(addr))
}

func (e *Engine) itemMinters(itemID uint64) *state.AddressSet {
	return state.NewAddressSet(e.st, itemMintersKey(itemID))
}

func (e *Engine) loadSale() (*SaleState, error) {
	sale := new(SaleState)
	ok, err := e.st.KVGet(saleKeyBytes, sale)
	if err != nil {
		return nil, err
	}
	if !ok {
		return newSaleState(), nil
	}
	return sale.normalize(), nil
}

func (e *Engine) saveSale(sale *SaleState) error {
	return e.st.KVPut(saleKeyBytes, sale)
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) requireOwner(caller [20]byte) error {
	if caller != e.owner {
		return ErrNotOwner
	}
	return nil
}

func requireNonZero(caller [20]byte) error {
	if caller == ([20]byte{}) {
		return ErrZeroAddress
	}
	return nil
}

func (e *Engine) loadItem(itemID uint64) (*CatalogItem, error) {
	raw, err := e.catalog().Get(itemID, catalogIndexMissing)
	if err != nil {
		return nil, err
	}
	item := new(CatalogItem)
	if err := decodeCatalogItem(raw, item); err != nil {
		return nil, err
	}
	return item, nil
}

// SetWindow replaces the presale window. Owner only; the start must precede
// the end. A rejected window leaves the previous one in place.
func (e *Engine) SetWindow(caller [20]byte, start, end uint64) error {
	if e == nil || e.st == nil {
		return ErrNilState
	}
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	sale, err := e.loadSale()
	if err != nil {
		return err
	}
	if err := sale.SetWindow(start, end); err != nil {
		return err
	}
	if err := e.saveSale(sale); err != nil {
		return err
	}
	e.emit(events.PresaleWindowUpdated{StartTime: start, EndTime: end})
	return nil
}

// AddCatalogItem appends one purchasable entry to the catalog and returns the
// assigned index. Owner only; the URL must be non-empty and the price strictly
// positive.
func (e *Engine) AddCatalogItem(caller [20]byte, url string, price *big.Int) (uint64, error) {
	if e == nil || e.st == nil {
		return 0, ErrNilState
	}
	if err := e.requireOwner(caller); err != nil {
		return 0, err
	}
	if url == "" {
		return 0, ErrEmptyURL
	}
	if price == nil || price.Sign() <= 0 {
		return 0, ErrNonPositivePrice
	}
	encoded, err := encodeCatalogItem(&CatalogItem{URL: url, Price: new(big.Int).Set(price)})
	if err != nil {
		return 0, err
	}
	index, err := e.catalog().Append(encoded)
	if err != nil {
		return 0, err
	}
	e.emit(events.PresaleItemAdded{Index: index, URL: url, Price: new(big.Int).Set(price)})
	return index, nil
}

// Register adds the caller to the whitelist. Registering twice fails with
// ErrAlreadyRegistered and changes nothing.
func (e *Engine) Register(caller [20]byte) error {
	if e == nil || e.st == nil {
		return ErrNilState
	}
	if err := requireNonZero(caller); err != nil {
		return err
	}
	wl := e.whitelist()
	member, err := wl.Contains(caller)
	if err != nil {
		return err
	}
	if member {
		return ErrAlreadyRegistered
	}
	if err := wl.Append(caller); err != nil {
		return err
	}
	e.emit(events.PresaleRegistered{Address: caller})
	return nil
}

// Mint issues the next token for the given catalog item to the caller. All
// checks run before the first mutation; on success every collection is
// updated and the token ledger records the new ownership.
func (e *Engine) Mint(caller [20]byte, itemID uint64, payment *big.Int) (uint64, error) {
	if e == nil || e.st == nil {
		return 0, ErrNilState
	}
	if err := requireNonZero(caller); err != nil {
		return 0, err
	}
	if payment == nil || payment.Sign() < 0 {
		return 0, ErrInvalidAmount
	}
	sale, err := e.loadSale()
	if err != nil {
		return 0, err
	}
	if e.enforceWindow {
		now := e.nowFn()
		if now <= sale.StartTime {
			return 0, ErrSaleNotStarted
		}
		if now > sale.EndTime {
			return 0, ErrSaleEnded
		}
	}
	minted, err := e.itemMinters(itemID).Contains(caller)
	if err != nil {
		return 0, err
	}
	if minted {
		return 0, ErrAlreadyMinted
	}
	member, err := e.whitelist().Contains(caller)
	if err != nil {
		return 0, err
	}
	if !member {
		return 0, ErrNotWhitelisted
	}
	item, err := e.loadItem(itemID)
	if err != nil {
		return 0, err
	}
	if item.Price.Cmp(payment) != 0 {
		return 0, ErrPriceMismatch
	}

	if err := sale.Credit(payment); err != nil {
		return 0, err
	}
	tokenID := sale.NextTokenID()
	// Delegate to the token ledger before persisting anything: a rejected
	// delegation must leave the counters and collections untouched.
	if e.minter != nil {
		if err := e.minter.Mint(caller, tokenID); err != nil {
			return 0, err
		}
	}
	if err := e.saveSale(sale); err != nil {
		return 0, err
	}
	if err := e.holdings(caller).Append(tokenID); err != nil {
		return 0, err
	}
	if err := e.itemMinters(itemID).Append(caller); err != nil {
		return 0, err
	}
	// Snapshot the URL: later catalog edits must not change minted tokens.
	// Token IDs are dense and one-based, so token N lands at append index N-1.
	if _, err := e.tokenURLs().Append([]byte(item.URL)); err != nil {
		return 0, err
	}
	e.emit(events.PresaleMinted{
		TokenID: tokenID,
		ItemID:  itemID,
		Minter:  caller,
		Payment: new(big.Int).Set(payment),
	})
	return tokenID, nil
}

// --- Read-only projections ---

// Window returns the configured sale window. Zero/zero means unset.
func (e *Engine) Window() (uint64, uint64, error) {
	sale, err := e.loadSale()
	if err != nil {
		return 0, 0, err
	}
	return sale.StartTime, sale.EndTime, nil
}

// OwnerBalance returns the accumulated payment balance.
func (e *Engine) OwnerBalance() (*big.Int, error) {
	sale, err := e.loadSale()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(sale.OwnerBalance), nil
}

// MintedCount returns the number of tokens minted so far.
func (e *Engine) MintedCount() (uint64, error) {
	sale, err := e.loadSale()
	if err != nil {
		return 0, err
	}
	return sale.MintedCount, nil
}

// CatalogLength returns the number of catalog items.
func (e *Engine) CatalogLength() (uint64, error) {
	return e.catalog().Len()
}

// CatalogItemURL returns the URL recorded for the given catalog index.
func (e *Engine) CatalogItemURL(index uint64) (string, error) {
	item, err := e.loadItem(index)
	if err != nil {
		return "", err
	}
	return item.URL, nil
}

// CatalogListing returns every catalog item with its index, in order.
func (e *Engine) CatalogListing() ([]Listing, error) {
	length, err := e.catalog().Len()
	if err != nil {
		return nil, err
	}
	listing := make([]Listing, 0, length)
	for i := uint64(0); i < length; i++ {
		item, err := e.loadItem(i)
		if err != nil {
			return nil, err
		}
		listing = append(listing, Listing{URL: item.URL, Price: item.Price, ID: i})
	}
	return listing, nil
}

// TokenURL returns the URL snapshot taken when the token was minted.
func (e *Engine) TokenURL(tokenID uint64) (string, error) {
	if tokenID == 0 {
		return "", &state.NotFoundError{Msg: "no token with this id"}
	}
	raw, err := e.tokenURLs().Get(tokenID-1, "no token with this id")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// HoldingsCount returns how many tokens the address minted. An address that
// never minted fails with ErrNoHoldings; absence is deliberately distinct
// from an empty result.
func (e *Engine) HoldingsCount(addr [20]byte) (uint64, error) {
	length, err := e.holdings(addr).Len()
	if err != nil {
		return 0, err
	}
	if length == 0 {
		return 0, ErrNoHoldings
	}
	return length, nil
}

// Holdings returns the tokens the address minted with their URL snapshots.
// Like HoldingsCount it fails with ErrNoHoldings when the address never
// minted.
func (e *Engine) Holdings(addr [20]byte) ([]Holding, error) {
	tokens := e.holdings(addr)
	length, err := tokens.Len()
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, ErrNoHoldings
	}
	held := make([]Holding, 0, length)
	for i := uint64(0); i < length; i++ {
		tokenID, err := tokens.At(i)
		if err != nil {
			return nil, err
		}
		url, err := e.TokenURL(tokenID)
		if err != nil {
			return nil, err
		}
		held = append(held, Holding{URL: url, ID: tokenID})
	}
	return held, nil
}

// IsWhitelisted reports whitelist membership. Linear scan over the registry.
func (e *Engine) IsWhitelisted(addr [20]byte) (bool, error) {
	return e.whitelist().Contains(addr)
}

// WhitelistMembers returns all registered addresses in insertion order.
func (e *Engine) WhitelistMembers() ([][20]byte, error) {
	return e.whitelist().Values()
}

// Summary returns the aggregate presale snapshot.
func (e *Engine) Summary() (*Summary, error) {
	sale, err := e.loadSale()
	if err != nil {
		return nil, err
	}
	catalogLen, err := e.catalog().Len()
	if err != nil {
		return nil, err
	}
	return &Summary{
		Owner:         e.owner,
		StartTime:     sale.StartTime,
		EndTime:       sale.EndTime,
		CatalogLength: catalogLen,
		MintedCount:   sale.MintedCount,
	}, nil
}
