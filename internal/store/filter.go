// Package store persists content records in SQLite, fronted by a Bloom
// filter existence check and an LRU read cache.
package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// IDFilter answers "was this id ever written?" probabilistically. A negative
// answer is definite and lets lookups skip the database; a positive answer
// may be a false positive and falls through to the query.
type IDFilter struct {
	bloom             *bloom.BloomFilter
	mutex             sync.RWMutex
	capacity          uint
	falsePositiveRate float64
}

// NewIDFilter creates a filter sized for the expected id count.
func NewIDFilter(capacity int, falsePositiveRate float64) *IDFilter {
	if capacity <= 0 {
		capacity = 1
	}
	return &IDFilter{
		bloom:             bloom.NewWithEstimates(uint(capacity), falsePositiveRate),
		capacity:          uint(capacity),
		falsePositiveRate: falsePositiveRate,
	}
}

// Add records an id.
func (f *IDFilter) Add(id string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.bloom.AddString(id)
}

// MayContain reports whether the id may have been added. False means the id
// was definitely never added.
func (f *IDFilter) MayContain(id string) bool {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return f.bloom.TestString(id)
}

// Load rebuilds the filter from the given ids.
func (f *IDFilter) Load(ids []string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.bloom = bloom.NewWithEstimates(f.capacity, f.falsePositiveRate)
	for _, id := range ids {
		if id != "" {
			f.bloom.AddString(id)
		}
	}
}
