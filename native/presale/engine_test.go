package presale_test

import (
	"errors"
	"math/big"
	"testing"

	"nftpresale/core/events"
	"nftpresale/core/state"
	"nftpresale/native/presale"
	"nftpresale/native/token"
	"nftpresale/storage"
)

type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(e events.Event) {
	c.events = append(c.events, e)
}

func addr(last byte) [20]byte {
	var a [20]byte
	a[19] = last
	return a
}

var owner = addr(0xAA)

func newTestEngine(t *testing.T) (*presale.Engine, *token.Ledger) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	manager := state.NewManager(db)
	ledger := token.NewLedger(manager, "PresaleToken", "PST")
	engine := presale.NewEngine(manager, ledger)
	engine.SetOwner(owner)
	return engine, ledger
}

func addItem(t *testing.T, engine *presale.Engine, url string, price int64) uint64 {
	t.Helper()
	index, err := engine.AddCatalogItem(owner, url, big.NewInt(price))
	if err != nil {
		t.Fatalf("add catalog item %s: %v", url, err)
	}
	return index
}

func register(t *testing.T, engine *presale.Engine, caller [20]byte) {
	t.Helper()
	if err := engine.Register(caller); err != nil {
		t.Fatalf("register: %v", err)
	}
}

func TestAddCatalogItemAssignsDenseIndices(t *testing.T) {
	engine, _ := newTestEngine(t)

	urls := []string{"a.png", "b.png", "c.png"}
	prices := []int64{10, 20, 30}
	for i := range urls {
		index := addItem(t, engine, urls[i], prices[i])
		if index != uint64(i) {
			t.Fatalf("expected index %d, got %d", i, index)
		}
	}

	length, err := engine.CatalogLength()
	if err != nil {
		t.Fatalf("catalog length: %v", err)
	}
	if length != uint64(len(urls)) {
		t.Fatalf("expected catalog length %d, got %d", len(urls), length)
	}

	listing, err := engine.CatalogListing()
	if err != nil {
		t.Fatalf("catalog listing: %v", err)
	}
	for i, item := range listing {
		if item.URL != urls[i] || item.Price.Int64() != prices[i] || item.ID != uint64(i) {
			t.Fatalf("listing %d mismatch: %+v", i, item)
		}
	}

	for i := range urls {
		url, err := engine.CatalogItemURL(uint64(i))
		if err != nil {
			t.Fatalf("catalog url %d: %v", i, err)
		}
		if url != urls[i] {
			t.Fatalf("expected url %q, got %q", urls[i], url)
		}
	}
}

func TestAddCatalogItemValidation(t *testing.T) {
	engine, _ := newTestEngine(t)

	if _, err := engine.AddCatalogItem(addr(1), "a.png", big.NewInt(10)); !errors.Is(err, presale.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := engine.AddCatalogItem(owner, "", big.NewInt(10)); !errors.Is(err, presale.ErrEmptyURL) {
		t.Fatalf("expected ErrEmptyURL, got %v", err)
	}
	if _, err := engine.AddCatalogItem(owner, "a.png", big.NewInt(0)); !errors.Is(err, presale.ErrNonPositivePrice) {
		t.Fatalf("expected ErrNonPositivePrice for zero price, got %v", err)
	}
	if _, err := engine.AddCatalogItem(owner, "a.png", big.NewInt(-5)); !errors.Is(err, presale.ErrNonPositivePrice) {
		t.Fatalf("expected ErrNonPositivePrice for negative price, got %v", err)
	}
	if _, err := engine.AddCatalogItem(owner, "a.png", nil); !errors.Is(err, presale.ErrNonPositivePrice) {
		t.Fatalf("expected ErrNonPositivePrice for nil price, got %v", err)
	}

	length, err := engine.CatalogLength()
	if err != nil {
		t.Fatalf("catalog length: %v", err)
	}
	if length != 0 {
		t.Fatalf("expected empty catalog after failed calls, got %d", length)
	}
}

func TestRegisterTwiceFails(t *testing.T) {
	engine, _ := newTestEngine(t)
	alice := addr(1)

	register(t, engine, alice)

	member, err := engine.IsWhitelisted(alice)
	if err != nil {
		t.Fatalf("is whitelisted: %v", err)
	}
	if !member {
		t.Fatal("expected alice to be whitelisted")
	}

	if err := engine.Register(alice); !errors.Is(err, presale.ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}

	// Membership is unchanged by the failed second call.
	member, err = engine.IsWhitelisted(alice)
	if err != nil {
		t.Fatalf("is whitelisted: %v", err)
	}
	if !member {
		t.Fatal("expected alice to stay whitelisted")
	}
	members, err := engine.WhitelistMembers()
	if err != nil {
		t.Fatalf("whitelist members: %v", err)
	}
	if len(members) != 1 || members[0] != alice {
		t.Fatalf("unexpected whitelist: %v", members)
	}
}

func TestMintRequiresWhitelist(t *testing.T) {
	engine, _ := newTestEngine(t)
	addItem(t, engine, "a.png", 10)
	alice := addr(1)

	_, err := engine.Mint(alice, 0, big.NewInt(10))
	if !errors.Is(err, presale.ErrNotWhitelisted) {
		t.Fatalf("expected ErrNotWhitelisted, got %v", err)
	}

	assertNoMintState(t, engine, alice)
}

func TestMintRequiresExactPayment(t *testing.T) {
	engine, _ := newTestEngine(t)
	addItem(t, engine, "a.png", 10)
	alice := addr(1)
	register(t, engine, alice)

	for _, payment := range []int64{9, 11, 0} {
		_, err := engine.Mint(alice, 0, big.NewInt(payment))
		if !errors.Is(err, presale.ErrPriceMismatch) {
			t.Fatalf("payment %d: expected ErrPriceMismatch, got %v", payment, err)
		}
	}

	assertNoMintState(t, engine, alice)
}

func assertNoMintState(t *testing.T, engine *presale.Engine, minter [20]byte) {
	t.Helper()
	balance, err := engine.OwnerBalance()
	if err != nil {
		t.Fatalf("owner balance: %v", err)
	}
	if balance.Sign() != 0 {
		t.Fatalf("expected zero owner balance, got %s", balance)
	}
	count, err := engine.MintedCount()
	if err != nil {
		t.Fatalf("minted count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected zero minted count, got %d", count)
	}
	if _, err := engine.HoldingsCount(minter); !errors.Is(err, presale.ErrNoHoldings) {
		t.Fatalf("expected ErrNoHoldings, got %v", err)
	}
}

func TestMintDoubleMintSameItemFails(t *testing.T) {
	engine, _ := newTestEngine(t)
	addItem(t, engine, "a.png", 10)
	alice := addr(1)
	register(t, engine, alice)

	tokenID, err := engine.Mint(alice, 0, big.NewInt(10))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if tokenID != 1 {
		t.Fatalf("expected token id 1, got %d", tokenID)
	}

	if _, err := engine.Mint(alice, 0, big.NewInt(10)); !errors.Is(err, presale.ErrAlreadyMinted) {
		t.Fatalf("expected ErrAlreadyMinted, got %v", err)
	}

	// State is unchanged from the successful first mint.
	count, err := engine.HoldingsCount(alice)
	if err != nil {
		t.Fatalf("holdings count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected holdings count 1, got %d", count)
	}
	balance, err := engine.OwnerBalance()
	if err != nil {
		t.Fatalf("owner balance: %v", err)
	}
	if balance.Int64() != 10 {
		t.Fatalf("expected owner balance 10, got %s", balance)
	}
}

func TestMintUnknownItemFails(t *testing.T) {
	engine, _ := newTestEngine(t)
	alice := addr(1)
	register(t, engine, alice)

	_, err := engine.Mint(alice, 3, big.NewInt(10))
	if err == nil {
		t.Fatal("expected error for unknown item")
	}
	var notFound *state.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %T: %v", err, err)
	}
	assertNoMintState(t, engine, alice)
}

func TestMintAssignsSequentialTokenIDs(t *testing.T) {
	engine, ledger := newTestEngine(t)
	addItem(t, engine, "a.png", 10)
	addItem(t, engine, "b.png", 20)

	alice, bob := addr(1), addr(2)
	register(t, engine, alice)
	register(t, engine, bob)

	mints := []struct {
		caller  [20]byte
		item    uint64
		payment int64
	}{
		{alice, 0, 10},
		{bob, 0, 10},
		{alice, 1, 20},
		{bob, 1, 20},
	}
	for i, m := range mints {
		tokenID, err := engine.Mint(m.caller, m.item, big.NewInt(m.payment))
		if err != nil {
			t.Fatalf("mint %d: %v", i, err)
		}
		// IDs are 1, 2, ..., N with no gaps, across participants and items.
		if tokenID != uint64(i+1) {
			t.Fatalf("mint %d: expected token id %d, got %d", i, i+1, tokenID)
		}
		tokenOwner, err := ledger.OwnerOf(tokenID)
		if err != nil {
			t.Fatalf("owner of %d: %v", tokenID, err)
		}
		if tokenOwner != m.caller {
			t.Fatalf("token %d: unexpected owner", tokenID)
		}
	}

	balance, err := engine.OwnerBalance()
	if err != nil {
		t.Fatalf("owner balance: %v", err)
	}
	if balance.Int64() != 10+10+20+20 {
		t.Fatalf("expected accumulated balance 60, got %s", balance)
	}
	count, err := engine.MintedCount()
	if err != nil {
		t.Fatalf("minted count: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected minted count 4, got %d", count)
	}
}

func TestMintExampleScenario(t *testing.T) {
	engine, _ := newTestEngine(t)
	emitter := &capturingEmitter{}
	engine.SetEmitter(emitter)

	index := addItem(t, engine, "a.png", 10)
	if index != 0 {
		t.Fatalf("expected index 0, got %d", index)
	}

	x := addr(1)
	register(t, engine, x)

	tokenID, err := engine.Mint(x, 0, big.NewInt(10))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if tokenID != 1 {
		t.Fatalf("expected token id 1, got %d", tokenID)
	}

	holdings, err := engine.Holdings(x)
	if err != nil {
		t.Fatalf("holdings: %v", err)
	}
	if len(holdings) != 1 || holdings[0].URL != "a.png" || holdings[0].ID != 1 {
		t.Fatalf("unexpected holdings: %+v", holdings)
	}

	balance, err := engine.OwnerBalance()
	if err != nil {
		t.Fatalf("owner balance: %v", err)
	}
	if balance.Int64() != 10 {
		t.Fatalf("expected owner balance 10, got %s", balance)
	}

	if _, err := engine.Mint(x, 0, big.NewInt(10)); !errors.Is(err, presale.ErrAlreadyMinted) {
		t.Fatalf("expected ErrAlreadyMinted, got %v", err)
	}
	holdings, err = engine.Holdings(x)
	if err != nil {
		t.Fatalf("holdings after failed mint: %v", err)
	}
	if len(holdings) != 1 {
		t.Fatalf("holdings changed after failed mint: %+v", holdings)
	}

	var sawMint bool
	for _, evt := range emitter.events {
		if evt.EventType() == events.TypePresaleMinted {
			sawMint = true
		}
	}
	if !sawMint {
		t.Fatal("expected a mint event")
	}
}

func TestTokenURLSnapshotSurvivesCatalogGrowth(t *testing.T) {
	engine, _ := newTestEngine(t)
	addItem(t, engine, "a.png", 10)
	alice := addr(1)
	register(t, engine, alice)

	if _, err := engine.Mint(alice, 0, big.NewInt(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	// Growing the catalog afterwards must not affect the recorded URL.
	addItem(t, engine, "b.png", 20)

	url, err := engine.TokenURL(1)
	if err != nil {
		t.Fatalf("token url: %v", err)
	}
	if url != "a.png" {
		t.Fatalf("expected snapshot url a.png, got %q", url)
	}

	if _, err := engine.TokenURL(2); err == nil {
		t.Fatal("expected error for unminted token id")
	}
	if _, err := engine.TokenURL(0); err == nil {
		t.Fatal("expected error for token id 0")
	}
}

func TestHoldingsAbsentVersusEmpty(t *testing.T) {
	engine, _ := newTestEngine(t)
	alice := addr(1)

	// Never minted: the queries fail rather than returning empty results.
	if _, err := engine.Holdings(alice); !errors.Is(err, presale.ErrNoHoldings) {
		t.Fatalf("expected ErrNoHoldings, got %v", err)
	}
	if _, err := engine.HoldingsCount(alice); !errors.Is(err, presale.ErrNoHoldings) {
		t.Fatalf("expected ErrNoHoldings, got %v", err)
	}
}

func TestSetWindowValidation(t *testing.T) {
	engine, _ := newTestEngine(t)

	if err := engine.SetWindow(addr(1), 100, 200); !errors.Is(err, presale.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := engine.SetWindow(owner, 200, 100); !errors.Is(err, presale.ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
	if err := engine.SetWindow(owner, 100, 100); !errors.Is(err, presale.ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow for equal bounds, got %v", err)
	}

	start, end, err := engine.Window()
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if start != 0 || end != 0 {
		t.Fatalf("expected unset window after failed calls, got %d/%d", start, end)
	}

	if err := engine.SetWindow(owner, 100, 200); err != nil {
		t.Fatalf("set window: %v", err)
	}
	// A later valid window fully replaces the prior one.
	if err := engine.SetWindow(owner, 300, 400); err != nil {
		t.Fatalf("replace window: %v", err)
	}
	start, end, err = engine.Window()
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if start != 300 || end != 400 {
		t.Fatalf("expected window 300/400, got %d/%d", start, end)
	}
}

func TestMintWindowGateDisabledByDefault(t *testing.T) {
	engine, _ := newTestEngine(t)
	addItem(t, engine, "a.png", 10)
	alice := addr(1)
	register(t, engine, alice)

	if err := engine.SetWindow(owner, 100, 200); err != nil {
		t.Fatalf("set window: %v", err)
	}
	engine.SetNowFunc(func() uint64 { return 500 }) // after the window

	// The gate is off by default; the configured window does not block mints.
	if _, err := engine.Mint(alice, 0, big.NewInt(10)); err != nil {
		t.Fatalf("mint with gate disabled: %v", err)
	}
}

func TestMintWindowGateEnforced(t *testing.T) {
	engine, _ := newTestEngine(t)
	addItem(t, engine, "a.png", 10)
	alice := addr(1)
	register(t, engine, alice)

	engine.SetWindowEnforcement(true)
	if err := engine.SetWindow(owner, 100, 200); err != nil {
		t.Fatalf("set window: %v", err)
	}

	engine.SetNowFunc(func() uint64 { return 50 })
	if _, err := engine.Mint(alice, 0, big.NewInt(10)); !errors.Is(err, presale.ErrSaleNotStarted) {
		t.Fatalf("expected ErrSaleNotStarted, got %v", err)
	}

	engine.SetNowFunc(func() uint64 { return 500 })
	if _, err := engine.Mint(alice, 0, big.NewInt(10)); !errors.Is(err, presale.ErrSaleEnded) {
		t.Fatalf("expected ErrSaleEnded, got %v", err)
	}

	engine.SetNowFunc(func() uint64 { return 150 })
	if _, err := engine.Mint(alice, 0, big.NewInt(10)); err != nil {
		t.Fatalf("mint inside window: %v", err)
	}
}

func TestSummary(t *testing.T) {
	engine, _ := newTestEngine(t)
	addItem(t, engine, "a.png", 10)
	addItem(t, engine, "b.png", 20)
	alice := addr(1)
	register(t, engine, alice)
	if err := engine.SetWindow(owner, 100, 200); err != nil {
		t.Fatalf("set window: %v", err)
	}
	if _, err := engine.Mint(alice, 0, big.NewInt(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	summary, err := engine.Summary()
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Owner != owner {
		t.Fatal("unexpected summary owner")
	}
	if summary.StartTime != 100 || summary.EndTime != 200 {
		t.Fatalf("unexpected summary window: %d/%d", summary.StartTime, summary.EndTime)
	}
	if summary.CatalogLength != 2 {
		t.Fatalf("unexpected catalog length: %d", summary.CatalogLength)
	}
	if summary.MintedCount != 1 {
		t.Fatalf("unexpected minted count: %d", summary.MintedCount)
	}
}

func TestRegisterRejectsZeroAddress(t *testing.T) {
	engine, _ := newTestEngine(t)

	if err := engine.Register([20]byte{}); !errors.Is(err, presale.ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}
	members, err := engine.WhitelistMembers()
	if err != nil {
		t.Fatalf("whitelist members: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("unexpected whitelist: %v", members)
	}
}

func TestMintRejectsZeroAddress(t *testing.T) {
	engine, _ := newTestEngine(t)
	addItem(t, engine, "a.png", 10)

	var zero [20]byte
	if _, err := engine.Mint(zero, 0, big.NewInt(10)); !errors.Is(err, presale.ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}

	count, err := engine.MintedCount()
	if err != nil {
		t.Fatalf("minted count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected zero minted count, got %d", count)
	}
	balance, err := engine.OwnerBalance()
	if err != nil {
		t.Fatalf("owner balance: %v", err)
	}
	if balance.Sign() != 0 {
		t.Fatalf("expected zero owner balance, got %s", balance)
	}
}

type failingMinter struct{}

func (failingMinter) Mint([20]byte, uint64) error {
	return errors.New("ledger unavailable")
}

func TestMintFailedDelegationLeavesStateUntouched(t *testing.T) {
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	manager := state.NewManager(db)
	ledger := token.NewLedger(manager, "PresaleToken", "PST")
	alice := addr(1)

	broken := presale.NewEngine(manager, failingMinter{})
	broken.SetOwner(owner)
	addItem(t, broken, "a.png", 10)
	register(t, broken, alice)

	if _, err := broken.Mint(alice, 0, big.NewInt(10)); err == nil {
		t.Fatal("expected mint to fail when the ledger rejects it")
	}

	// The failed delegation must not commit any presale state.
	count, err := broken.MintedCount()
	if err != nil {
		t.Fatalf("minted count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected zero minted count, got %d", count)
	}
	balance, err := broken.OwnerBalance()
	if err != nil {
		t.Fatalf("owner balance: %v", err)
	}
	if balance.Sign() != 0 {
		t.Fatalf("expected zero owner balance, got %s", balance)
	}
	if _, err := broken.HoldingsCount(alice); !errors.Is(err, presale.ErrNoHoldings) {
		t.Fatalf("expected ErrNoHoldings, got %v", err)
	}
	if _, err := broken.TokenURL(1); err == nil {
		t.Fatal("expected no url snapshot after failed mint")
	}

	// A working engine over the same state still assigns token ID 1 and the
	// URL snapshot lines up with it.
	engine := presale.NewEngine(manager, ledger)
	engine.SetOwner(owner)
	tokenID, err := engine.Mint(alice, 0, big.NewInt(10))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if tokenID != 1 {
		t.Fatalf("expected token id 1, got %d", tokenID)
	}
	url, err := engine.TokenURL(tokenID)
	if err != nil {
		t.Fatalf("token url: %v", err)
	}
	if url != "a.png" {
		t.Fatalf("expected url a.png, got %q", url)
	}
	holdings, err := engine.Holdings(alice)
	if err != nil {
		t.Fatalf("holdings: %v", err)
	}
	if len(holdings) != 1 || holdings[0].ID != 1 || holdings[0].URL != "a.png" {
		t.Fatalf("unexpected holdings: %+v", holdings)
	}
}

func TestMintInvalidPayment(t *testing.T) {
	engine, _ := newTestEngine(t)
	addItem(t, engine, "a.png", 10)
	alice := addr(1)
	register(t, engine, alice)

	if _, err := engine.Mint(alice, 0, nil); !errors.Is(err, presale.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for nil payment, got %v", err)
	}
	if _, err := engine.Mint(alice, 0, big.NewInt(-1)); !errors.Is(err, presale.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative payment, got %v", err)
	}
	assertNoMintState(t, engine, alice)
}
