package db

import (
	"fmt"
	"sync"
	"time"

	"famfin-server/src/models"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"
)

const reportTTL = 6 * time.Hour

// Cache wraps ristretto and remembers which keys belong to which family, so
// everything derived from a family's ledger can be dropped when it changes.
type Cache struct {
	store *ristretto.Cache

	mu          sync.Mutex
	familyKeys  map[uuid.UUID]map[string]struct{}
	generations map[uuid.UUID]uint64
}

func NewCache() (*Cache, error) {
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000, // number of keys to track frequency of
		MaxCost:     10000,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	return &Cache{
		store:       store,
		familyKeys:  make(map[uuid.UUID]map[string]struct{}),
		generations: make(map[uuid.UUID]uint64),
	}, nil
}

func (c *Cache) Get(key string) (interface{}, bool) {
	return c.store.Get(key)
}

// Set stores a value that is not tied to a family. Writes become visible
// asynchronously; call Wait when a read must observe them.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.store.SetWithTTL(key, value, 1, ttl)
}

func (c *Cache) Wait() {
	c.store.Wait()
}

func reportKey(familyID uuid.UUID, window int) string {
	return fmt.Sprintf("report:%s:%d", familyID, window)
}

func (c *Cache) GetReport(familyID uuid.UUID, window int) (*models.InsightReport, bool) {
	v, ok := c.store.Get(reportKey(familyID, window))
	if !ok {
		return nil, false
	}
	report, ok := v.(*models.InsightReport)
	return report, ok
}

// Generation changes every time the family is invalidated. Take it before
// loading the data a report is computed from.
func (c *Cache) Generation(familyID uuid.UUID) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[familyID]
}

// SetReport stores a report computed at the given generation. It reports
// false and stores nothing if the family was invalidated since.
func (c *Cache) SetReport(familyID uuid.UUID, window int, generation uint64, report *models.InsightReport) bool {
	key := reportKey(familyID, window)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[familyID] != generation {
		return false
	}
	keys, ok := c.familyKeys[familyID]
	if !ok {
		keys = make(map[string]struct{})
		c.familyKeys[familyID] = keys
	}
	keys[key] = struct{}{}
	c.store.SetWithTTL(key, report, 1, reportTTL)
	return true
}

// InvalidateFamily drops every cached report of the family.
func (c *Cache) InvalidateFamily(familyID uuid.UUID) {
	c.mu.Lock()
	c.generations[familyID]++
	keys := c.familyKeys[familyID]
	delete(c.familyKeys, familyID)
	c.mu.Unlock()
	for key := range keys {
		c.store.Del(key)
	}
}

func (c *Cache) Close() {
	c.store.Close()
}
