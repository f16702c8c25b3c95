// Package parser consumes raw transactions in slot order and emits swap,
// liquidity-pool, and authority events.
package parser

import (
	"encoding/json"
	"time"
)

// txPayload mirrors the parts of a getTransaction result the parsers read.
// The payload is stored verbatim by the resolver; everything else in it is
// ignored here.
type txPayload struct {
	Slot        int64   `json:"slot"`
	BlockTime   *int64  `json:"blockTime"`
	Meta        *txMeta `json:"meta"`
	Transaction *txBody `json:"transaction"`
}

type txMeta struct {
	Err               interface{}    `json:"err"`
	PreTokenBalances  []tokenBalance `json:"preTokenBalances"`
	PostTokenBalances []tokenBalance `json:"postTokenBalances"`
}

type tokenBalance struct {
	AccountIndex int           `json:"accountIndex"`
	Mint         string        `json:"mint"`
	Owner        string        `json:"owner"`
	UITokenAmt   uiTokenAmount `json:"uiTokenAmount"`
}

type uiTokenAmount struct {
	UIAmount *float64 `json:"uiAmount"`
	Amount   string   `json:"amount"`
	Decimals int      `json:"decimals"`
}

type txBody struct {
	Message *txMessage `json:"message"`
}

type txMessage struct {
	AccountKeys  []string        `json:"accountKeys"`
	Instructions []txInstruction `json:"instructions"`
}

type txInstruction struct {
	ProgramIDIndex int `json:"programIdIndex"`
}

// decodePayload parses one stored payload. A payload that fails to decode is
// treated as having nothing to emit.
func decodePayload(raw json.RawMessage) (*txPayload, error) {
	var p txPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// accountKeys returns the transaction's account keys, or nil.
func (p *txPayload) accountKeys() []string {
	if p.Transaction == nil || p.Transaction.Message == nil {
		return nil
	}
	return p.Transaction.Message.AccountKeys
}

// matchProgram returns the first account key referenced as an instruction
// program or present in the key list that belongs to the given set.
func (p *txPayload) matchProgram(programs map[string]struct{}) string {
	keys := p.accountKeys()
	if len(keys) == 0 {
		return ""
	}

	if p.Transaction.Message != nil {
		for _, ins := range p.Transaction.Message.Instructions {
			if ins.ProgramIDIndex >= 0 && ins.ProgramIDIndex < len(keys) {
				if _, ok := programs[keys[ins.ProgramIDIndex]]; ok {
					return keys[ins.ProgramIDIndex]
				}
			}
		}
	}

	for _, key := range keys {
		if _, ok := programs[key]; ok {
			return key
		}
	}
	return ""
}

// timestamp converts blockTime to a UTC instant, falling back to now when
// the node did not report one.
func (p *txPayload) timestamp() time.Time {
	if p.BlockTime != nil && *p.BlockTime > 0 {
		return time.Unix(*p.BlockTime, 0).UTC()
	}
	return time.Now().UTC()
}
