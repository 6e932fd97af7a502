package evm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Log is a contract event log.
type Log struct {
	Address     common.Address
	Topics      []common.Hash
	Data        []byte
	BlockNumber uint64
	TxHash      common.Hash
	Index       uint
	Removed     bool // true when the log was dropped by a reorg
}

// LogsFilter defines subscription filter for logs.
type LogsFilter struct {
	// Addresses restricts logs to these contracts.
	Addresses []common.Address
	// Topics is a positional topic filter; each position is an OR-set.
	Topics [][]common.Hash
}

// logResult is the raw JSON shape of a log object.
type logResult struct {
	Address     common.Address `json:"address"`
	Topics      []common.Hash  `json:"topics"`
	Data        hexutil.Bytes  `json:"data"`
	BlockNumber hexutil.Uint64 `json:"blockNumber"`
	TxHash      common.Hash    `json:"transactionHash"`
	Index       hexutil.Uint   `json:"logIndex"`
	Removed     bool           `json:"removed"`
}

func (l *logResult) toLog() Log {
	return Log{
		Address:     l.Address,
		Topics:      l.Topics,
		Data:        l.Data,
		BlockNumber: uint64(l.BlockNumber),
		TxHash:      l.TxHash,
		Index:       uint(l.Index),
		Removed:     l.Removed,
	}
}

// filterParams converts a LogsFilter into the JSON-RPC filter object.
func (f LogsFilter) filterParams() map[string]interface{} {
	params := make(map[string]interface{})
	if len(f.Addresses) > 0 {
		params["address"] = f.Addresses
	}
	if len(f.Topics) > 0 {
		topics := make([]interface{}, len(f.Topics))
		for i, set := range f.Topics {
			if len(set) == 0 {
				topics[i] = nil
				continue
			}
			topics[i] = set
		}
		params["topics"] = topics
	}
	return params
}
