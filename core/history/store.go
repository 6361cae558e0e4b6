// Package history keeps the on-chain mint and sell record of each account.
package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/Shivam-Patel-G/qatar-sale/core/token"
)

var (
	bucketEvents   = []byte("events")
	bucketAccounts = []byte("accounts")
	bucketMeta     = []byte("meta")
	keyLastBlock   = []byte("last_block")
)

// Purchase is one history row.
type Purchase struct {
	token.Event
	UnitPrice *big.Int `json:"unit_price"`
}

// Summary aggregates an account's mints.
type Summary struct {
	Account      string   `json:"account"`
	Count        int      `json:"count"`
	TotalTokens  *big.Int `json:"total_tokens"`
	TotalBNB     *big.Int `json:"total_bnb"`
	AveragePrice *big.Int `json:"average_price"`
}

// Store persists events in bbolt: one bucket keyed by tx:log, and one
// nested bucket per account indexing them by block.
type Store struct {
	db *bbolt.DB
}

func OpenStore(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketEvents, bucketAccounts, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create history buckets: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func indexKey(block uint64, logIndex uint) []byte {
	k := make([]byte, 12)
	binary.BigEndian.PutUint64(k, block)
	binary.BigEndian.PutUint32(k[8:], uint32(logIndex))
	return k
}

// Put stores events, skipping any already present. It returns the ones
// that were new.
func (s *Store) Put(events ...token.Event) ([]token.Event, error) {
	var added []token.Event
	err := s.db.Update(func(tx *bbolt.Tx) error {
		evb := tx.Bucket(bucketEvents)
		accb := tx.Bucket(bucketAccounts)
		for _, ev := range events {
			key := []byte(ev.Key())
			if evb.Get(key) != nil {
				continue
			}
			raw, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			if err := evb.Put(key, raw); err != nil {
				return err
			}
			ab, err := accb.CreateBucketIfNotExists([]byte(strings.ToLower(ev.Account)))
			if err != nil {
				return err
			}
			if err := ab.Put(indexKey(ev.BlockNumber, ev.LogIndex), key); err != nil {
				return err
			}
			added = append(added, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// History returns an account's events newest block first. With no types
// given, every event type is returned. limit <= 0 means no limit.
func (s *Store) History(account string, limit int, types ...token.EventType) ([]Purchase, error) {
	want := make(map[token.EventType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}

	var out []Purchase
	err := s.db.View(func(tx *bbolt.Tx) error {
		ab := tx.Bucket(bucketAccounts).Bucket([]byte(strings.ToLower(account)))
		if ab == nil {
			return nil
		}
		evb := tx.Bucket(bucketEvents)
		c := ab.Cursor()
		for k, ref := c.Last(); k != nil; k, ref = c.Prev() {
			raw := evb.Get(ref)
			if raw == nil {
				continue
			}
			var ev token.Event
			if err := json.Unmarshal(raw, &ev); err != nil {
				return fmt.Errorf("decode %s: %w", ref, err)
			}
			if len(want) > 0 && !want[ev.Type] {
				continue
			}
			out = append(out, Purchase{Event: ev, UnitPrice: ev.Price()})
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// The index already orders by block; this keeps ties stable by log index.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber > out[j].BlockNumber
		}
		return out[i].LogIndex > out[j].LogIndex
	})
	return out, nil
}

// Summarize totals an account's mints. AveragePrice is
// sum(bnb) * 1e18 / sum(tokens), zero with no purchases.
func (s *Store) Summarize(account string) (*Summary, error) {
	rows, err := s.History(account, 0, token.EventMint)
	if err != nil {
		return nil, err
	}
	return Summarize(account, rows), nil
}

func Summarize(account string, rows []Purchase) *Summary {
	sum := &Summary{
		Account:      account,
		TotalTokens:  new(big.Int),
		TotalBNB:     new(big.Int),
		AveragePrice: new(big.Int),
	}
	for _, r := range rows {
		if r.Tokens != nil {
			sum.TotalTokens.Add(sum.TotalTokens, r.Tokens)
		}
		if r.BNB != nil {
			sum.TotalBNB.Add(sum.TotalBNB, r.BNB)
		}
		sum.Count++
	}
	sum.AveragePrice = token.Event{Tokens: sum.TotalTokens, BNB: sum.TotalBNB}.Price()
	return sum
}

// LastBlock is the highest block fully scanned, zero if none.
func (s *Store) LastBlock() (uint64, error) {
	var n uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketMeta).Get(keyLastBlock)
		if len(v) == 8 {
			n = binary.BigEndian.Uint64(v)
		}
		return nil
	})
	return n, err
}

func (s *Store) SetLastBlock(n uint64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		v := make([]byte, 8)
		binary.BigEndian.PutUint64(v, n)
		return tx.Bucket(bucketMeta).Put(keyLastBlock, v)
	})
}

// Count returns the number of stored events.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketEvents).Stats().KeyN
		return nil
	})
	return n, err
}
