package helpers

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prysmaticlabs/epochengine/config/features"
	types "github.com/prysmaticlabs/epochengine/consensus-types/primitives"
	"github.com/prysmaticlabs/epochengine/crypto/hash"
	"github.com/prysmaticlabs/epochengine/encoding/bytesutil"
)

// maxShuffledListSize defines the max number of shuffled lists the cache holds.
// Two epochs are live at any time and the next one is usually computed ahead.
const maxShuffledListSize = 4

// shuffleKey identifies a shuffling by its seed and the root of the active indices
// it permutes. Registries with the same seed and size but different active sets
// map to different keys.
type shuffleKey struct {
	seed        [32]byte
	indicesRoot [32]byte
}

func newShuffleKey(seed [32]byte, activeIndices []types.ValidatorIndex) shuffleKey {
	buf := make([]byte, 0, 8*len(activeIndices))
	for _, idx := range activeIndices {
		buf = append(buf, bytesutil.Bytes8(uint64(idx))...)
	}
	return shuffleKey{seed: seed, indicesRoot: hash.Hash(buf)}
}

// ShuffledIndicesCache memoises shuffled active index lists per seed and active set.
type ShuffledIndicesCache struct {
	cache *lru.Cache[shuffleKey, []types.ValidatorIndex]
	lock  sync.Mutex
}

var shuffledIndicesCache = NewShuffledIndicesCache()

// NewShuffledIndicesCache creates a new shuffled validators cache for storing/accessing shuffled validator indices.
func NewShuffledIndicesCache() *ShuffledIndicesCache {
	c, err := lru.New[shuffleKey, []types.ValidatorIndex](maxShuffledListSize)
	if err != nil {
		// Only a non positive size errors.
		panic(err)
	}
	return &ShuffledIndicesCache{cache: c}
}

// Get returns the cached shuffling of the active indices under the seed, if present.
func (c *ShuffledIndicesCache) Get(seed [32]byte, activeIndices []types.ValidatorIndex) ([]types.ValidatorIndex, bool) {
	key := newShuffleKey(seed, activeIndices)
	c.lock.Lock()
	defer c.lock.Unlock()
	list, ok := c.cache.Get(key)
	if ok {
		shuffledIndicesCacheHit.Inc()
	} else {
		shuffledIndicesCacheMiss.Inc()
	}
	return list, ok
}

// Add stores the shuffling of the active indices under the seed, evicting the least
// recently used one when full.
func (c *ShuffledIndicesCache) Add(seed [32]byte, activeIndices, shuffled []types.ValidatorIndex) {
	key := newShuffleKey(seed, activeIndices)
	c.lock.Lock()
	defer c.lock.Unlock()
	c.cache.Add(key, shuffled)
}

// Len returns the number of cached shufflings.
func (c *ShuffledIndicesCache) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.cache.Len()
}

// ClearShuffledValidatorCache clears the shuffled indices cache from scratch.
func ClearShuffledValidatorCache() {
	shuffledIndicesCache = NewShuffledIndicesCache()
}

// ClearAllCaches clears all the helpers caches from scratch.
func ClearAllCaches() {
	ClearShuffledValidatorCache()
}

// shuffledIndices returns the committee ordering of the active indices for a seed.
// The returned slice is shared with the cache and must not be modified.
func shuffledIndices(activeIndices []types.ValidatorIndex, seed [32]byte) ([]types.ValidatorIndex, error) {
	useCache := !features.Get().DisableCommitteeCache
	if useCache {
		if list, ok := shuffledIndicesCache.Get(seed, activeIndices); ok {
			return list, nil
		}
	}
	list, err := UnshuffleList(activeIndices, seed)
	if err != nil {
		return nil, err
	}
	if useCache {
		shuffledIndicesCache.Add(seed, activeIndices, list)
	}
	return list, nil
}
