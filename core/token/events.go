package token

import (
	"math/big"
	"strconv"
	"time"
)

type EventType string

const (
	EventMint EventType = "Mint"
	EventSell EventType = "Sell"
	// EventBurn is a transfer to the zero address.
	EventBurn EventType = "Burn"
)

// Event is a sale-level action observed on chain or submitted by this client.
type Event struct {
	Type        EventType              `json:"type"`
	Account     string                 `json:"account"`
	Tokens      *big.Int               `json:"tokens"`
	BNB         *big.Int               `json:"bnb"`
	TxHash      string                 `json:"tx_hash"`
	BlockNumber uint64                 `json:"block_number"`
	LogIndex    uint                   `json:"log_index"`
	Timestamp   time.Time              `json:"timestamp"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Price returns the effective BNB-per-token price paid or received,
// bnb * 1e18 / tokens. Zero tokens yields zero.
func (e Event) Price() *big.Int {
	if e.Tokens == nil || e.BNB == nil || e.Tokens.Sign() == 0 {
		return new(big.Int)
	}
	p := new(big.Int).Mul(e.BNB, One)
	return p.Quo(p, e.Tokens)
}

// Key uniquely identifies an on-chain event.
func (e Event) Key() string {
	return e.TxHash + ":" + strconv.FormatUint(uint64(e.LogIndex), 10)
}
