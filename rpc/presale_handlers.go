package rpc

import (
	"math/big"
	"net/http"
	"strings"

	"nftpresale/crypto"
)

type setWindowParams struct {
	Caller    string `json:"caller"`
	StartTime uint64 `json:"startTime"`
	EndTime   uint64 `json:"endTime"`
}

type addCatalogItemParams struct {
	Caller string `json:"caller"`
	URL    string `json:"url"`
	Price  string `json:"price"`
}

type registerParams struct {
	Caller string `json:"caller"`
}

type mintParams struct {
	Caller  string `json:"caller"`
	ItemID  uint64 `json:"itemId"`
	Payment string `json:"payment"`
}

type indexParams struct {
	Index uint64 `json:"index"`
}

type addressParams struct {
	Address string `json:"address"`
}

type tokenParams struct {
	TokenID uint64 `json:"tokenId"`
}

type windowResult struct {
	StartTime uint64 `json:"startTime"`
	EndTime   uint64 `json:"endTime"`
}

type listingResult struct {
	URL   string `json:"url"`
	Price string `json:"price"`
	ID    uint64 `json:"id"`
}

type holdingResult struct {
	URL string `json:"url"`
	ID  uint64 `json:"id"`
}

type mintResult struct {
	TokenID uint64 `json:"tokenId"`
}

type addItemResult struct {
	Index uint64 `json:"index"`
}

type summaryResult struct {
	Owner         string `json:"owner"`
	StartTime     uint64 `json:"startAt"`
	EndTime       uint64 `json:"endAt"`
	CatalogLength uint64 `json:"catalogLength"`
	MintedCount   uint64 `json:"mintedCount"`
}

func parseCaller(value string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Array(), nil
}

func parseAmount(value string) (*big.Int, bool) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	return amount, ok
}

func formatAddress(addr [20]byte) string {
	return crypto.MustNewAddress(crypto.PresalePrefix, addr[:]).String()
}

func (s *Server) handleSetWindow(w http.ResponseWriter, req *RPCRequest) {
	var params setWindowParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	caller, err := parseCaller(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	if err := s.node.SetWindow(caller, params.StartTime, params.EndTime); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, windowResult{StartTime: params.StartTime, EndTime: params.EndTime})
}

func (s *Server) handleAddCatalogItem(w http.ResponseWriter, req *RPCRequest) {
	var params addCatalogItemParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	caller, err := parseCaller(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	price, ok := parseAmount(params.Price)
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "price must be a base-10 integer")
		return
	}
	index, err := s.node.AddCatalogItem(caller, params.URL, price)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, addItemResult{Index: index})
}

func (s *Server) handleRegister(w http.ResponseWriter, req *RPCRequest) {
	var params registerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	caller, err := parseCaller(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	if err := s.node.Register(caller); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleMint(w http.ResponseWriter, req *RPCRequest) {
	var params mintParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	caller, err := parseCaller(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	payment, ok := parseAmount(params.Payment)
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "payment must be a base-10 integer")
		return
	}
	tokenID, err := s.node.Mint(caller, params.ItemID, payment)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, mintResult{TokenID: tokenID})
}

func (s *Server) handleGetOwner(w http.ResponseWriter, req *RPCRequest) {
	writeResult(w, req.ID, formatAddress(s.node.Owner()))
}

func (s *Server) handleGetWindow(w http.ResponseWriter, req *RPCRequest) {
	start, end, err := s.node.Window()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, windowResult{StartTime: start, EndTime: end})
}

func (s *Server) handleGetOwnerBalance(w http.ResponseWriter, req *RPCRequest) {
	balance, err := s.node.OwnerBalance()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, balance.String())
}

func (s *Server) handleGetMintedCount(w http.ResponseWriter, req *RPCRequest) {
	count, err := s.node.MintedCount()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, count)
}

func (s *Server) handleGetCatalogLength(w http.ResponseWriter, req *RPCRequest) {
	length, err := s.node.CatalogLength()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, length)
}

func (s *Server) handleGetCatalog(w http.ResponseWriter, req *RPCRequest) {
	listing, err := s.node.CatalogListing()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	results := make([]listingResult, 0, len(listing))
	for _, item := range listing {
		results = append(results, listingResult{URL: item.URL, Price: item.Price.String(), ID: item.ID})
	}
	writeResult(w, req.ID, results)
}

func (s *Server) handleGetCatalogItemURL(w http.ResponseWriter, req *RPCRequest) {
	var params indexParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	url, err := s.node.CatalogItemURL(params.Index)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, url)
}

func (s *Server) handleGetHoldingsCount(w http.ResponseWriter, req *RPCRequest) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	addr, err := parseCaller(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	count, err := s.node.HoldingsCount(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, count)
}

func (s *Server) handleGetHoldings(w http.ResponseWriter, req *RPCRequest) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	addr, err := parseCaller(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	holdings, err := s.node.Holdings(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	results := make([]holdingResult, 0, len(holdings))
	for _, holding := range holdings {
		results = append(results, holdingResult{URL: holding.URL, ID: holding.ID})
	}
	writeResult(w, req.ID, results)
}

func (s *Server) handleGetWhitelist(w http.ResponseWriter, req *RPCRequest) {
	members, err := s.node.WhitelistMembers()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	results := make([]string, 0, len(members))
	for _, member := range members {
		results = append(results, formatAddress(member))
	}
	writeResult(w, req.ID, results)
}

func (s *Server) handleGetSummary(w http.ResponseWriter, req *RPCRequest) {
	summary, err := s.node.Summary()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, summaryResult{
		Owner:         formatAddress(summary.Owner),
		StartTime:     summary.StartTime,
		EndTime:       summary.EndTime,
		CatalogLength: summary.CatalogLength,
		MintedCount:   summary.MintedCount,
	})
}

func (s *Server) handleGetTokenURL(w http.ResponseWriter, req *RPCRequest) {
	var params tokenParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	url, err := s.node.TokenURL(params.TokenID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, url)
}

func (s *Server) handleGetTokenOwner(w http.ResponseWriter, req *RPCRequest) {
	var params tokenParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	owner, err := s.node.TokenOwner(params.TokenID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatAddress(owner))
}
