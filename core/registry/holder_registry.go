package registry

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/Shivam-Patel-G/qatar-sale/core/token"
)

const holderPrefix = "holder:"

// HolderInfo aggregates everything seen on chain for one address.
type HolderInfo struct {
	Address     string    `json:"address"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	FirstTxHash string    `json:"first_tx_hash,omitempty"`
	LastBlock   uint64    `json:"last_block"`

	MintCount    int64    `json:"mint_count"`
	SellCount    int64    `json:"sell_count"`
	TokensMinted *big.Int `json:"tokens_minted"`
	TokensSold   *big.Int `json:"tokens_sold"`
	BNBSpent     *big.Int `json:"bnb_spent"`
	BNBReceived  *big.Int `json:"bnb_received"`
	// Burns are reported apart from NetTokens: a sell that burns the
	// seller's tokens is already counted in TokensSold.
	BurnCount    int64    `json:"burn_count"`
	TokensBurned *big.Int `json:"tokens_burned"`
}

// NetTokens is minted minus sold, floored at zero.
func (h *HolderInfo) NetTokens() *big.Int {
	n := new(big.Int).Sub(h.TokensMinted, h.TokensSold)
	if n.Sign() < 0 {
		return new(big.Int)
	}
	return n
}

func (h *HolderInfo) clone() *HolderInfo {
	c := *h
	c.TokensMinted = new(big.Int).Set(h.TokensMinted)
	c.TokensSold = new(big.Int).Set(h.TokensSold)
	c.BNBSpent = new(big.Int).Set(h.BNBSpent)
	c.BNBReceived = new(big.Int).Set(h.BNBReceived)
	c.TokensBurned = new(big.Int).Set(h.TokensBurned)
	return &c
}

func newHolder(address string, seen time.Time) *HolderInfo {
	return &HolderInfo{
		Address:      address,
		FirstSeen:    seen,
		LastSeen:     seen,
		TokensMinted: new(big.Int),
		TokensSold:   new(big.Int),
		BNBSpent:     new(big.Int),
		BNBReceived:  new(big.Int),
		TokensBurned: new(big.Int),
	}
}

// HolderRegistry tracks every address that has minted or sold.
type HolderRegistry struct {
	holders map[string]*HolderInfo
	db      *leveldb.DB
	mutex   sync.RWMutex
	logger  *logrus.Logger
}

// Open opens (or creates) a LevelDB registry at path.
func Open(path string, logger *logrus.Logger) (*HolderRegistry, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open holder registry: %w", err)
	}
	return NewHolderRegistry(db, logger), nil
}

// NewHolderRegistry loads existing holders from db.
func NewHolderRegistry(db *leveldb.DB, logger *logrus.Logger) *HolderRegistry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	hr := &HolderRegistry{
		holders: make(map[string]*HolderInfo),
		db:      db,
		logger:  logger,
	}
	hr.loadFromDatabase()
	hr.logger.Infof("✅ Holder registry initialized with %d holders", len(hr.holders))
	return hr
}

func (hr *HolderRegistry) Close() error {
	return hr.db.Close()
}

// HandleEvent records a sale event. It lets the registry follow the
// history listener directly.
func (hr *HolderRegistry) HandleEvent(ev token.Event) error {
	return hr.Record(ev)
}

// Record folds one mint or sell into the holder's aggregate.
func (hr *HolderRegistry) Record(ev token.Event) error {
	if ev.Account == "" {
		return fmt.Errorf("event %s has no account", ev.Key())
	}
	address := strings.ToLower(ev.Account)
	seen := ev.Timestamp
	if seen.IsZero() {
		seen = time.Now().UTC()
	}

	hr.mutex.Lock()
	defer hr.mutex.Unlock()

	h, ok := hr.holders[address]
	if !ok {
		h = newHolder(address, seen)
		hr.holders[address] = h
	}
	if seen.Before(h.FirstSeen) {
		h.FirstSeen = seen
	}
	if seen.After(h.LastSeen) {
		h.LastSeen = seen
	}
	if h.FirstTxHash == "" {
		h.FirstTxHash = ev.TxHash
	}
	if ev.BlockNumber > h.LastBlock {
		h.LastBlock = ev.BlockNumber
	}

	switch ev.Type {
	case token.EventMint:
		h.MintCount++
		addTo(h.TokensMinted, ev.Tokens)
		addTo(h.BNBSpent, ev.BNB)
	case token.EventSell:
		h.SellCount++
		addTo(h.TokensSold, ev.Tokens)
		addTo(h.BNBReceived, ev.BNB)
	case token.EventBurn:
		h.BurnCount++
		addTo(h.TokensBurned, ev.Tokens)
	}

	if err := hr.saveHolderToDatabase(h); err != nil {
		hr.logger.Errorf("❌ Failed to save holder %s to database: %v", address, err)
		return err
	}
	return nil
}

func addTo(dst, v *big.Int) {
	if v != nil {
		dst.Add(dst, v)
	}
}

// GetHolder returns a copy of an address's aggregate.
func (hr *HolderRegistry) GetHolder(address string) (*HolderInfo, bool) {
	hr.mutex.RLock()
	defer hr.mutex.RUnlock()

	h, ok := hr.holders[strings.ToLower(address)]
	if !ok {
		return nil, false
	}
	return h.clone(), true
}

// HolderCount is the number of addresses with a positive net position.
func (hr *HolderRegistry) HolderCount() int {
	hr.mutex.RLock()
	defer hr.mutex.RUnlock()

	n := 0
	for _, h := range hr.holders {
		if h.NetTokens().Sign() > 0 {
			n++
		}
	}
	return n
}

// TopHolders returns up to n holders by net tokens, largest first.
func (hr *HolderRegistry) TopHolders(n int) []*HolderInfo {
	hr.mutex.RLock()
	out := make([]*HolderInfo, 0, len(hr.holders))
	for _, h := range hr.holders {
		out = append(out, h.clone())
	}
	hr.mutex.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		c := out[i].NetTokens().Cmp(out[j].NetTokens())
		if c != 0 {
			return c > 0
		}
		return out[i].Address < out[j].Address
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// GetActiveHolders returns holders seen within since.
func (hr *HolderRegistry) GetActiveHolders(since time.Duration) []*HolderInfo {
	hr.mutex.RLock()
	defer hr.mutex.RUnlock()

	cutoff := time.Now().Add(-since)
	var active []*HolderInfo
	for _, h := range hr.holders {
		if h.LastSeen.After(cutoff) {
			active = append(active, h.clone())
		}
	}
	return active
}

func (hr *HolderRegistry) saveHolderToDatabase(h *HolderInfo) error {
	data, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return hr.db.Put([]byte(holderPrefix+h.Address), data, nil)
}

func (hr *HolderRegistry) loadFromDatabase() {
	iter := hr.db.NewIterator(util.BytesPrefix([]byte(holderPrefix)), nil)
	defer iter.Release()

	for iter.Next() {
		var h HolderInfo
		if err := json.Unmarshal(iter.Value(), &h); err != nil {
			hr.logger.Warnf("⚠️ Skipping corrupt holder record %s: %v", iter.Key(), err)
			continue
		}
		for _, p := range []**big.Int{&h.TokensMinted, &h.TokensSold, &h.BNBSpent, &h.BNBReceived, &h.TokensBurned} {
			if *p == nil {
				*p = new(big.Int)
			}
		}
		hr.holders[h.Address] = &h
	}
	if err := iter.Error(); err != nil {
		hr.logger.Errorf("❌ Error loading holder registry: %v", err)
	}
}

// GetStats returns registry statistics.
func (hr *HolderRegistry) GetStats() map[string]interface{} {
	hr.mutex.RLock()
	defer hr.mutex.RUnlock()

	active := 0
	cutoff := time.Now().Add(-24 * time.Hour)
	minted := new(big.Int)
	burned := new(big.Int)
	for _, h := range hr.holders {
		if h.LastSeen.After(cutoff) {
			active++
		}
		minted.Add(minted, h.TokensMinted)
		burned.Add(burned, h.TokensBurned)
	}
	return map[string]interface{}{
		"known_addresses": len(hr.holders),
		"active_24h":      active,
		"tokens_minted":   minted.String(),
		"tokens_burned":   burned.String(),
	}
}
