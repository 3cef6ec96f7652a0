package envelope

import (
	"context"
	"strconv"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"
)

// ErrReplayed is returned when a signature has already been accepted.
var ErrReplayed = errors.New("envelope: transaction replayed")

// Guard remembers accepted signatures for a while.
type Guard interface {
	// Claim marks sig as seen, or returns ErrReplayed if it already was.
	Claim(ctx context.Context, sig []byte) error
}

func guardKey(sig []byte) string {
	return "agora:tx:" + strconv.FormatUint(xxh3.Hash(sig), 16)
}

// MemoryGuard keeps seen signatures in process.
type MemoryGuard struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

func (g *MemoryGuard) Claim(_ context.Context, sig []byte) error {
	if err := g.cache.Add(guardKey(sig), struct{}{}, g.ttl); err != nil {
		return ErrReplayed
	}
	return nil
}

// MemcachedGuard shares seen signatures between server instances.
type MemcachedGuard struct {
	mc  *memcache.Client
	ttl time.Duration
}

func NewMemcachedGuard(mc *memcache.Client, ttl time.Duration) *MemcachedGuard {
	return &MemcachedGuard{mc: mc, ttl: ttl}
}

func (g *MemcachedGuard) Claim(_ context.Context, sig []byte) error {
	err := g.mc.Add(&memcache.Item{
		Key:        guardKey(sig),
		Value:      []byte{1},
		Expiration: int32(g.ttl / time.Second),
	})
	if errors.Is(err, memcache.ErrNotStored) {
		return ErrReplayed
	}
	if err != nil {
		return errors.Wrap(err, "memcached replay guard")
	}
	return nil
}
