package evm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// idleServer accepts a connection and drains it until closed.
func idleServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSClient_Connect(t *testing.T) {
	server := idleServer(t)
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), nil, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if client.closed.Load() {
		t.Error("client should not be closed")
	}
}

func TestWSClient_SubscribeLogs(t *testing.T) {
	contract := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	topic := common.HexToHash("0x4d99b957a2bc29a30ebd96a7be8e68fe50a3c701db28a91436490b7d53870ca4")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()

		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}

		var req struct {
			ID     uint64            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}

		if req.Method != "eth_subscribe" {
			t.Errorf("expected eth_subscribe, got %s", req.Method)
		}
		var kind string
		json.Unmarshal(req.Params[0], &kind)
		if kind != "logs" {
			t.Errorf("expected logs subscription, got %s", kind)
		}

		if err := c.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  "0xcd0c3e8af590364c09d0fa6a1210faf5",
		}); err != nil {
			t.Errorf("write response: %v", err)
			return
		}

		time.Sleep(50 * time.Millisecond)
		if err := c.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "eth_subscription",
			"params": map[string]interface{}{
				"subscription": "0xcd0c3e8af590364c09d0fa6a1210faf5",
				"result": map[string]interface{}{
					"address":         contract.Hex(),
					"topics":          []string{topic.Hex()},
					"data":            "0x",
					"blockNumber":     "0x64",
					"transactionHash": common.HexToHash("0xfeed").Hex(),
					"logIndex":        "0x1",
					"removed":         false,
				},
			},
		}); err != nil {
			t.Errorf("write notification: %v", err)
			return
		}

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, err := client.SubscribeLogs(ctx, LogsFilter{
		Addresses: []common.Address{contract},
		Topics:    [][]common.Hash{{topic}},
	})
	if err != nil {
		t.Fatalf("SubscribeLogs: %v", err)
	}

	select {
	case log := <-ch:
		if log.Address != contract {
			t.Errorf("expected address %s, got %s", contract.Hex(), log.Address.Hex())
		}
		if len(log.Topics) != 1 || log.Topics[0] != topic {
			t.Errorf("unexpected topics %v", log.Topics)
		}
		if log.BlockNumber != 100 {
			t.Errorf("expected block 100, got %d", log.BlockNumber)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for log")
	}
}

func TestWSClient_Close(t *testing.T) {
	server := idleServer(t)
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), nil, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	if !client.closed.Load() {
		t.Error("client should be closed")
	}

	// Double close should be safe
	if err := client.Close(); err != nil {
		t.Errorf("double Close: %v", err)
	}
}

func TestWSClient_SubscribeAfterClose(t *testing.T) {
	server := idleServer(t)
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), nil, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	client.Close()

	if _, err := client.SubscribeLogs(context.Background(), LogsFilter{}); err == nil {
		t.Error("expected error subscribing after close")
	}
}

func TestWSClient_SubscribeTimeout(t *testing.T) {
	server := idleServer(t)
	defer server.Close()

	cfg := DefaultWSConfig()
	cfg.SubscribeTimeout = 100 * time.Millisecond

	client, err := NewWSClient(context.Background(), wsURL(server), &cfg, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if _, err := client.SubscribeLogs(context.Background(), LogsFilter{}); err == nil {
		t.Error("expected subscription timeout")
	}

	client.mu.Lock()
	pending := len(client.pending)
	client.mu.Unlock()
	if pending != 0 {
		t.Errorf("expected no pending subscriptions, got %d", pending)
	}
}

// scriptedServer answers eth_subscribe with reply(id) and records every method seen.
func scriptedServer(t *testing.T, reply func(id uint64) map[string]interface{}, methods chan<- string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var req struct {
				ID     uint64 `json:"id"`
				Method string `json:"method"`
			}
			if err := json.Unmarshal(msg, &req); err != nil {
				continue
			}
			methods <- req.Method
			if req.Method == "eth_subscribe" {
				if err := c.WriteJSON(reply(req.ID)); err != nil {
					return
				}
			}
		}
	}))
}

func TestWSClient_SubscribeErrorResponse(t *testing.T) {
	methods := make(chan string, 8)
	server := scriptedServer(t, func(id uint64) map[string]interface{} {
		return map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      id,
			"error":   map[string]interface{}{"code": -32601, "message": "subscriptions not supported"},
		}
	}, methods)
	defer server.Close()

	cfg := DefaultWSConfig()
	cfg.SubscribeTimeout = 5 * time.Second

	client, err := NewWSClient(context.Background(), wsURL(server), &cfg, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	start := time.Now()
	_, err = client.SubscribeLogs(context.Background(), LogsFilter{})
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != -32601 {
		t.Fatalf("expected RPC error -32601, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("error response should fail the subscription without waiting for the timeout")
	}
}

func TestWSClient_ContextCancelUnsubscribes(t *testing.T) {
	methods := make(chan string, 8)
	server := scriptedServer(t, func(id uint64) map[string]interface{} {
		return map[string]interface{}{"jsonrpc": "2.0", "id": id, "result": "0x1"}
	}, methods)
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), nil, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := client.SubscribeLogs(ctx, LogsFilter{})
	if err != nil {
		t.Fatalf("SubscribeLogs: %v", err)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}

	seen := map[string]bool{}
	deadline := time.After(2 * time.Second)
	for !seen["eth_unsubscribe"] {
		select {
		case m := <-methods:
			seen[m] = true
		case <-deadline:
			t.Fatalf("eth_unsubscribe not sent, saw %v", seen)
		}
	}
}

func TestLogsFilter_Params(t *testing.T) {
	addr := common.HexToAddress("0x01")
	topic := common.HexToHash("0x02")

	params := LogsFilter{
		Addresses: []common.Address{addr},
		Topics:    [][]common.Hash{{topic}, nil},
	}.filterParams()

	if _, ok := params["address"]; !ok {
		t.Error("expected address key")
	}
	topics, ok := params["topics"].([]interface{})
	if !ok || len(topics) != 2 {
		t.Fatalf("expected 2 topic positions, got %v", params["topics"])
	}
	if topics[1] != nil {
		t.Errorf("expected wildcard at position 1, got %v", topics[1])
	}
}
