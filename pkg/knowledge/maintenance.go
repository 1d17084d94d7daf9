package knowledge

import (
	"sync"
	"time"
)

// MaintenanceCache tracks when knowledge maintenance last ran per workspace,
// so expensive maintenance is skipped for a TTL window. It replaces ambient
// global "already processed" state with an explicit, injectable cache.
type MaintenanceCache struct {
	mu   sync.Mutex
	ttl  time.Duration
	last map[string]time.Time
}

// NewMaintenanceCache creates a cache with the given TTL. Maintenance for a
// workspace runs at most once per TTL window.
func NewMaintenanceCache(ttl time.Duration) *MaintenanceCache {
	return &MaintenanceCache{
		ttl:  ttl,
		last: make(map[string]time.Time),
	}
}

// ShouldRun reports whether maintenance is due for the workspace and, when it
// is, records now as the last run time.
func (c *MaintenanceCache) ShouldRun(workspace string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if last, ok := c.last[workspace]; ok && now.Sub(last) < c.ttl {
		return false
	}
	c.last[workspace] = now
	return true
}

// Invalidate clears the cached run time for a workspace, forcing the next
// ShouldRun to return true.
func (c *MaintenanceCache) Invalidate(workspace string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.last, workspace)
}

// Maintain performs knowledge-store maintenance for a workspace. Currently
// prunes links whose thread was removed.
func (i *Ingestor) Maintain(workspace string) error {
	pruned, err := i.store.PruneOrphanKnowledgeLinks(workspace)
	if err != nil {
		return err
	}
	if pruned > 0 {
		i.logger.Info("pruned %d orphan knowledge links for workspace %s", pruned, workspace)
	}
	return nil
}
