package stub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"edu-voting/internal/evm"
)

// NewServer serves node over HTTP JSON-RPC (eth_chainId, eth_call,
// eth_getTransactionReceipt). The caller closes the server.
func NewServer(node *Node) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, rpcErr := dispatch(r, node, req.Method, req.Params)

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func dispatch(r *http.Request, node *Node, method string, params []json.RawMessage) (interface{}, *evm.RPCError) {
	ctx := r.Context()

	switch method {
	case "eth_chainId":
		chain, err := node.ChainID(ctx)
		if err != nil {
			return nil, &evm.RPCError{Code: -32000, Message: err.Error()}
		}
		return hexutil.Uint64(chain), nil

	case "eth_call":
		var arg struct {
			To   common.Address `json:"to"`
			Data hexutil.Bytes  `json:"data"`
		}
		if len(params) == 0 || json.Unmarshal(params[0], &arg) != nil {
			return nil, &evm.RPCError{Code: -32602, Message: "invalid params"}
		}
		out, err := node.CallContract(ctx, evm.CallMsg{To: arg.To, Data: arg.Data})
		if err != nil {
			return nil, &evm.RPCError{Code: 3, Message: err.Error()}
		}
		return hexutil.Bytes(out), nil

	case "eth_getTransactionReceipt":
		var hash common.Hash
		if len(params) == 0 || json.Unmarshal(params[0], &hash) != nil {
			return nil, &evm.RPCError{Code: -32602, Message: "invalid params"}
		}
		receipt, _ := node.TransactionReceipt(ctx, hash)
		if receipt == nil {
			return nil, nil
		}
		return map[string]interface{}{
			"transactionHash": receipt.TxHash,
			"blockNumber":     hexutil.Uint64(receipt.BlockNumber),
			"status":          hexutil.Uint64(receipt.Status),
			"gasUsed":         hexutil.Uint64(receipt.GasUsed),
			"logs":            []interface{}{},
		}, nil
	}

	return nil, &evm.RPCError{Code: -32601, Message: "method not found: " + method}
}
