package rpc

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nftpresale/core"
	"nftpresale/native/presale"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeNotFound       = -32004
	codeConflict       = -32009
)

// Server exposes the presale ledger over JSON-RPC 2.0. Owner operations are
// additionally gated by a bearer token when PRESALE_RPC_TOKEN is set.
type Server struct {
	node      *core.Node
	authToken string
}

func NewServer(node *core.Node) *Server {
	return &Server{
		node:      node,
		authToken: strings.TrimSpace(os.Getenv("PRESALE_RPC_TOKEN")),
	}
}

// Start serves JSON-RPC on addr. The Prometheus scrape endpoint shares the
// listener under /metrics.
func (s *Server) Start(addr string) error {
	fmt.Printf("Starting JSON-RPC server on %s\n", addr)
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: &RPCError{Code: code, Message: message}}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// errorCode maps an engine error to its JSON-RPC error code using the
// presale error taxonomy.
func errorCode(err error) int {
	switch presale.Classify(err) {
	case presale.KindAuthorization:
		return codeUnauthorized
	case presale.KindValidation:
		return codeInvalidParams
	case presale.KindConflict:
		return codeConflict
	case presale.KindNotFound, presale.KindOutOfRange:
		return codeNotFound
	default:
		return codeServerError
	}
}

func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	status := http.StatusBadRequest
	code := errorCode(err)
	switch code {
	case codeUnauthorized:
		status = http.StatusForbidden
	case codeNotFound:
		status = http.StatusNotFound
	case codeServerError:
		status = http.StatusInternalServerError
	}
	writeError(w, status, id, code, err.Error())
}

func (s *Server) authorized(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	return header == "Bearer "+s.authToken
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, nil, codeInvalidRequest, "POST required")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "unable to read request body")
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload")
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported JSON-RPC version")
		return
	}

	switch req.Method {
	// Owner operations.
	case "presale_setWindow":
		if !s.authorized(r) {
			writeError(w, http.StatusForbidden, req.ID, codeUnauthorized, "missing or invalid auth token")
			return
		}
		s.handleSetWindow(w, &req)
	case "presale_addCatalogItem":
		if !s.authorized(r) {
			writeError(w, http.StatusForbidden, req.ID, codeUnauthorized, "missing or invalid auth token")
			return
		}
		s.handleAddCatalogItem(w, &req)
	// Participant operations.
	case "presale_register":
		s.handleRegister(w, &req)
	case "presale_mint":
		s.handleMint(w, &req)
	// Read-only queries.
	case "presale_getOwner":
		s.handleGetOwner(w, &req)
	case "presale_getWindow":
		s.handleGetWindow(w, &req)
	case "presale_getOwnerBalance":
		s.handleGetOwnerBalance(w, &req)
	case "presale_getMintedCount":
		s.handleGetMintedCount(w, &req)
	case "presale_getCatalogLength":
		s.handleGetCatalogLength(w, &req)
	case "presale_getCatalog":
		s.handleGetCatalog(w, &req)
	case "presale_getCatalogItemURL":
		s.handleGetCatalogItemURL(w, &req)
	case "presale_getHoldingsCount":
		s.handleGetHoldingsCount(w, &req)
	case "presale_getHoldings":
		s.handleGetHoldings(w, &req)
	case "presale_getWhitelist":
		s.handleGetWhitelist(w, &req)
	case "presale_getSummary":
		s.handleGetSummary(w, &req)
	case "presale_getTokenURL":
		s.handleGetTokenURL(w, &req)
	case "presale_getTokenOwner":
		s.handleGetTokenOwner(w, &req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) == 0 {
		return fmt.Errorf("params required")
	}
	return json.Unmarshal(req.Params[0], out)
}
