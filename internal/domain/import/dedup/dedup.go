// Package dedup decides which parsed statement rows are already in the ledger.
// A row's identity is a content hash of its account, date, amount and the first
// descriptionRunes runes of its normalized description.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/FACorreiaa/statement-import/internal/domain/import/normalizer"
	"github.com/FACorreiaa/statement-import/internal/domain/import/parser"
)

// descriptionRunes is how much of the description takes part in the key. Two
// rows that agree on their first descriptionRunes runes collide on purpose: banks
// truncate long narratives differently between statement and feed.
const descriptionRunes = 50

// Key is the hex-encoded SHA-256 dedup key of a transaction.
type Key string

// GenerateKey derives the dedup key of a transaction. It is pure: the same
// inputs always give the same key.
func GenerateKey(accountID string, date time.Time, amountMinor int64, description string) Key {
	var b strings.Builder
	b.WriteString(accountID)
	b.WriteByte('|')
	b.WriteString(normalizer.Midnight(date).Format("2006-01-02"))
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(amountMinor, 10))
	b.WriteByte('|')
	b.WriteString(normalizeDescription(description))

	sum := sha256.Sum256([]byte(b.String()))
	return Key(hex.EncodeToString(sum[:]))
}

// KeyOf is GenerateKey for a parsed transaction.
func KeyOf(accountID string, tx parser.ParsedTransaction) Key {
	return GenerateKey(accountID, tx.Date, tx.AmountMinor, tx.Description)
}

func normalizeDescription(desc string) string {
	return normalizer.Truncate(strings.ToLower(normalizer.CleanDescription(desc)), descriptionRunes)
}

// KeySet is an immutable set of dedup keys.
type KeySet struct {
	keys map[Key]struct{}
}

// NewKeySet builds a set from precomputed keys, such as those stored by the
// ledger at import time.
func NewKeySet(keys ...Key) KeySet {
	m := make(map[Key]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return KeySet{keys: m}
}

// BuildKeySet computes the keys of an account's existing transactions.
func BuildKeySet(accountID string, existing []parser.ParsedTransaction) KeySet {
	m := make(map[Key]struct{}, len(existing))
	for _, tx := range existing {
		m[KeyOf(accountID, tx)] = struct{}{}
	}
	return KeySet{keys: m}
}

// Contains reports whether k is in the set.
func (s KeySet) Contains(k Key) bool {
	_, ok := s.keys[k]
	return ok
}

// Len returns the number of keys.
func (s KeySet) Len() int { return len(s.keys) }

// Keys returns the keys in sorted order.
func (s KeySet) Keys() []Key {
	out := make([]Key, 0, len(s.keys))
	for k := range s.keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// With returns a new set holding the keys of s and other.
func (s KeySet) With(other KeySet) KeySet {
	m := make(map[Key]struct{}, len(s.keys)+len(other.keys))
	for k := range s.keys {
		m[k] = struct{}{}
	}
	for k := range other.keys {
		m[k] = struct{}{}
	}
	return KeySet{keys: m}
}

func (s KeySet) clone() map[Key]struct{} {
	m := make(map[Key]struct{}, len(s.keys))
	for k := range s.keys {
		m[k] = struct{}{}
	}
	return m
}

// Candidate is an incoming transaction paired with its dedup key.
type Candidate struct {
	Transaction parser.ParsedTransaction `json:"transaction"`
	Key         Key                      `json:"key"`
}

// Partition splits incoming rows into new and already-seen ones. Keys holds the
// existing keys plus the keys of every unique row.
type Partition struct {
	Unique     []Candidate `json:"unique"`
	Duplicates []Candidate `json:"duplicates"`
	Keys       KeySet      `json:"-"`
}

// FilterDuplicates walks incoming in order. A row is a duplicate when its key is
// in existing or was produced by an earlier row of the same batch, so the first
// occurrence always wins. existing is never modified.
func FilterDuplicates(accountID string, incoming []parser.ParsedTransaction, existing KeySet) Partition {
	seen := existing.clone()
	p := Partition{
		Unique:     make([]Candidate, 0, len(incoming)),
		Duplicates: []Candidate{},
	}

	for _, tx := range incoming {
		c := Candidate{Transaction: tx, Key: KeyOf(accountID, tx)}
		if _, dup := seen[c.Key]; dup {
			p.Duplicates = append(p.Duplicates, c)
			continue
		}
		seen[c.Key] = struct{}{}
		p.Unique = append(p.Unique, c)
	}

	p.Keys = KeySet{keys: seen}
	return p
}
