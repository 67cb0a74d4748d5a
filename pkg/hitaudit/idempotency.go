package hitaudit

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/hitcounter/internal/hitevents"
)

// seenSet remembers recent event fingerprints so Kafka redeliveries are
// counted once.
type seenSet struct {
	lru *lru.Cache[uint64, struct{}]
}

func newSeenSet(size int) *seenSet {
	if size <= 0 {
		size = 8192
	}
	c, _ := lru.New[uint64, struct{}](size)
	return &seenSet{lru: c}
}

// Redeliveries carry identical payloads, and every increment of a key yields
// a distinct value.
func fingerprint(ev hitevents.Event) uint64 {
	return xxhash.Sum64String(ev.Key + "\x00" + strconv.FormatInt(ev.Value, 10) + "\x00" + ev.RequestID)
}

// firstSight reports whether ev was not seen before, and records it.
func (s *seenSet) firstSight(ev hitevents.Event) bool {
	seen, _ := s.lru.ContainsOrAdd(fingerprint(ev), struct{}{})
	return !seen
}
