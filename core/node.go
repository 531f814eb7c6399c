package core

import (
	"log/slog"
	"math/big"
	"sync"

	"nftpresale/core/events"
	nhstate "nftpresale/core/state"
	"nftpresale/crypto"
	"nftpresale/native/presale"
	"nftpresale/native/token"
	"nftpresale/observability/metrics"
	"nftpresale/storage"
)

// NodeConfig carries the ledger parameters the node is booted with.
type NodeConfig struct {
	Owner         [20]byte
	TokenName     string
	TokenSymbol   string
	EnforceWindow bool
}

// Node owns the storage handle, the state manager and the engines, and
// serializes every externally triggered operation behind a single lock. The
// collection invariants (dense indices, monotonic counters, no double mint)
// rely on this single-writer discipline; the node never runs two state
// transitions concurrently.
type Node struct {
	db     storage.Database
	state  *nhstate.Manager
	ledger *token.Ledger
	engine *presale.Engine
	logger *slog.Logger

	stateMu sync.Mutex
}

// NewNode wires the state manager, token ledger and presale engine over the
// provided database.
func NewNode(db storage.Database, cfg NodeConfig, logger *slog.Logger) *Node {
	if logger == nil {
		logger = slog.Default()
	}
	manager := nhstate.NewManager(db)
	ledger := token.NewLedger(manager, cfg.TokenName, cfg.TokenSymbol)
	engine := presale.NewEngine(manager, ledger)
	engine.SetOwner(cfg.Owner)
	engine.SetWindowEnforcement(cfg.EnforceWindow)
	node := &Node{
		db:     db,
		state:  manager,
		ledger: ledger,
		engine: engine,
		logger: logger,
	}
	engine.SetEmitter(node)
	return node
}

// Emit implements events.Emitter by logging emitted ledger events.
func (n *Node) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	n.logger.Info("ledger event", "type", evt.EventType())
}

// Engine exposes the presale engine for tests and tooling.
func (n *Node) Engine() *presale.Engine { return n.engine }

// Ledger exposes the token ledger for read-only queries.
func (n *Node) Ledger() *token.Ledger { return n.ledger }

// Close releases the storage handle.
func (n *Node) Close() {
	n.db.Close()
}

// --- State transitions ---

// Register adds the caller to the whitelist.
func (n *Node) Register(caller [20]byte) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if err := n.engine.Register(caller); err != nil {
		return err
	}
	metrics.Presale().ObserveRegistration()
	n.logger.Info("whitelist registration",
		"address", crypto.MustNewAddress(crypto.PresalePrefix, caller[:]).String())
	return nil
}

// Mint issues the next token of the given catalog item to the caller.
func (n *Node) Mint(caller [20]byte, itemID uint64, payment *big.Int) (uint64, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	tokenID, err := n.engine.Mint(caller, itemID, payment)
	if err != nil {
		metrics.Presale().ObserveMintFailure(presale.Classify(err).String())
		return 0, err
	}
	metrics.Presale().ObserveMint()
	if balance, balErr := n.engine.OwnerBalance(); balErr == nil {
		f, _ := new(big.Float).SetInt(balance).Float64()
		metrics.Presale().SetOwnerBalance(f)
	}
	n.logger.Info("token minted",
		"tokenId", tokenID,
		"itemId", itemID,
		"minter", crypto.MustNewAddress(crypto.PresalePrefix, caller[:]).String())
	return tokenID, nil
}

// AddCatalogItem appends a catalog entry. Owner only.
func (n *Node) AddCatalogItem(caller [20]byte, url string, price *big.Int) (uint64, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	index, err := n.engine.AddCatalogItem(caller, url, price)
	if err != nil {
		return 0, err
	}
	if length, lenErr := n.engine.CatalogLength(); lenErr == nil {
		metrics.Presale().SetCatalogSize(length)
	}
	n.logger.Info("catalog item added", "index", index, "url", url)
	return index, nil
}

// SetWindow replaces the presale window. Owner only.
func (n *Node) SetWindow(caller [20]byte, start, end uint64) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if err := n.engine.SetWindow(caller, start, end); err != nil {
		return err
	}
	n.logger.Info("presale window updated", "start", start, "end", end)
	return nil
}

// --- Read-only queries ---
//
// Queries take the same lock as transitions: reads must never observe a
// partially applied operation.

// Owner returns the configured contract owner.
func (n *Node) Owner() [20]byte {
	return n.engine.Owner()
}

// Window returns the configured sale window.
func (n *Node) Window() (uint64, uint64, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.engine.Window()
}

// OwnerBalance returns the accumulated payment balance.
func (n *Node) OwnerBalance() (*big.Int, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.engine.OwnerBalance()
}

// MintedCount returns the number of minted tokens.
func (n *Node) MintedCount() (uint64, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.engine.MintedCount()
}

// CatalogLength returns the number of catalog items.
func (n *Node) CatalogLength() (uint64, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.engine.CatalogLength()
}

// CatalogListing returns all catalog items in index order.
func (n *Node) CatalogListing() ([]presale.Listing, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.engine.CatalogListing()
}

// CatalogItemURL returns the URL stored at the given catalog index.
func (n *Node) CatalogItemURL(index uint64) (string, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.engine.CatalogItemURL(index)
}

// HoldingsCount returns how many tokens the address minted.
func (n *Node) HoldingsCount(addr [20]byte) (uint64, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.engine.HoldingsCount(addr)
}

// Holdings returns the tokens the address minted.
func (n *Node) Holdings(addr [20]byte) ([]presale.Holding, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.engine.Holdings(addr)
}

// IsWhitelisted reports whitelist membership.
func (n *Node) IsWhitelisted(addr [20]byte) (bool, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.engine.IsWhitelisted(addr)
}

// WhitelistMembers returns the whitelist in insertion order.
func (n *Node) WhitelistMembers() ([][20]byte, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.engine.WhitelistMembers()
}

// Summary returns the aggregate presale snapshot.
func (n *Node) Summary() (*presale.Summary, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.engine.Summary()
}

// TokenURL returns the URL snapshot recorded for the token at mint time.
func (n *Node) TokenURL(tokenID uint64) (string, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.engine.TokenURL(tokenID)
}

// TokenOwner returns the current owner of the token.
func (n *Node) TokenOwner(tokenID uint64) ([20]byte, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.ledger.OwnerOf(tokenID)
}
