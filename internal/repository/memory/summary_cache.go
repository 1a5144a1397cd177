package memory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"leadqualify-be/internal/entity"
)

// SummaryCache keeps recently used page summaries in memory so a busy
// conversation does not re-read the summary row on every turn.
type SummaryCache struct {
	cache *cache.Cache
}

func NewSummaryCache() *SummaryCache {
	// Default expiration of 1 hour, purge sweep every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &SummaryCache{
		cache: c,
	}
}

func summaryKey(tenantId uuid.UUID, pageURL string) string {
	return fmt.Sprintf("%s|%s", tenantId, pageURL)
}

func (r *SummaryCache) Save(summary *entity.StructuredSummary) {
	r.cache.Set(summaryKey(summary.TenantId, summary.PageURL), summary, cache.DefaultExpiration)
}

func (r *SummaryCache) Get(tenantId uuid.UUID, pageURL string) (*entity.StructuredSummary, bool) {
	if x, found := r.cache.Get(summaryKey(tenantId, pageURL)); found {
		return x.(*entity.StructuredSummary), true
	}
	return nil, false
}

// Invalidate drops the cached summary after a re-enrichment.
func (r *SummaryCache) Invalidate(tenantId uuid.UUID, pageURL string) {
	r.cache.Delete(summaryKey(tenantId, pageURL))
}
