package targetcache

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"worksched/internal/sched/model"
	"worksched/internal/sched/provider"
)

// Cache holds, per spatial domain, every provider's current target pool.
// Pools are rebuilt wholesale on the provider's refresh interval and read
// unchanged between refreshes; entries that went stale in the meantime are
// filtered lazily by validators at selection time, never here.
//
// Single-threaded per domain, like everything else in the scheduler.
type Cache struct {
	reg            *provider.Registry
	defaultRefresh uint64
	log            zerolog.Logger

	domains map[string]*domainRecord
}

type domainRecord struct {
	lists       map[string][]model.Target
	lastRefresh map[string]uint64
	hasTargets  bool
	lastUseTick uint64
}

func New(reg *provider.Registry, defaultRefreshTicks uint64, log zerolog.Logger) *Cache {
	if defaultRefreshTicks == 0 {
		defaultRefreshTicks = 1
	}
	return &Cache{
		reg:            reg,
		defaultRefresh: defaultRefreshTicks,
		log:            log,
		domains:        map[string]*domainRecord{},
	}
}

// Refresh rebuilds every provider pool whose interval has elapsed for this
// domain. Gating is per domain+provider, not per agent, so the cost is
// amortized across all agents sharing the domain. A discovery failure is
// logged and leaves that provider's pool empty for the cycle; the next
// interval retries.
func (c *Cache) Refresh(env provider.DiscoverEnv, domainID string, nowTick uint64) {
	rec := c.domains[domainID]
	if rec == nil {
		rec = &domainRecord{
			lists:       map[string][]model.Target{},
			lastRefresh: map[string]uint64{},
		}
		c.domains[domainID] = rec
	}
	rec.lastUseTick = nowTick

	for _, p := range c.reg.Providers() {
		interval := p.RefreshTicks
		if interval == 0 {
			interval = c.defaultRefresh
		}
		if last, seen := rec.lastRefresh[p.ID]; seen && nowTick-last < interval {
			continue
		}
		rec.lastRefresh[p.ID] = nowTick

		targets, err := discover(env, p, domainID)
		if err != nil {
			c.log.Warn().Str("domain", domainID).Str("provider", p.ID).Err(err).
				Msg("target discovery failed; pool empty for this cycle")
			rec.lists[p.ID] = nil
			continue
		}
		rec.lists[p.ID] = targets
	}

	rec.hasTargets = false
	for _, l := range rec.lists {
		if len(l) > 0 {
			rec.hasTargets = true
			break
		}
	}
}

func discover(env provider.DiscoverEnv, p *provider.Provider, domainID string) (targets []model.Target, err error) {
	defer func() {
		if r := recover(); r != nil {
			targets = nil
			err = fmt.Errorf("discovery panic: %v", r)
		}
	}()
	return p.Discover(env, domainID)
}

// TargetsFor returns the cached pool unchanged. Callers must not mutate it.
func (c *Cache) TargetsFor(domainID, providerID string) []model.Target {
	rec := c.domains[domainID]
	if rec == nil {
		return nil
	}
	return rec.lists[providerID]
}

// HasTargets is the cheap global skip: false when no provider has any pool
// in this domain (or the domain has never been refreshed).
func (c *Cache) HasTargets(domainID string) bool {
	rec := c.domains[domainID]
	return rec != nil && rec.hasTargets
}

// Touch bumps the domain's last-use tick without refreshing.
func (c *Cache) Touch(domainID string, nowTick uint64) {
	if rec := c.domains[domainID]; rec != nil {
		rec.lastUseTick = nowTick
	}
}

// LastUse reports when the domain was last refreshed or touched.
func (c *Cache) LastUse(domainID string) (uint64, bool) {
	rec := c.domains[domainID]
	if rec == nil {
		return 0, false
	}
	return rec.lastUseTick, true
}

// Domains lists tracked domains in stable order.
func (c *Cache) Domains() []string {
	out := make([]string, 0, len(c.domains))
	for id := range c.domains {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Trim cuts any pool above max down to max entries and returns how many
// targets were dropped. Pools are rebuilt wholesale on the next refresh, so
// dropping the tail is safe.
func (c *Cache) Trim(domainID string, max int) int {
	rec := c.domains[domainID]
	if rec == nil || max < 1 {
		return 0
	}
	dropped := 0
	for id, l := range rec.lists {
		if len(l) > max {
			dropped += len(l) - max
			rec.lists[id] = l[:max]
		}
	}
	return dropped
}

// Invalidate evicts one domain entirely (domain removed or regenerated).
func (c *Cache) Invalidate(domainID string) { delete(c.domains, domainID) }

// Reset wipes all domains (world reload).
func (c *Cache) Reset() { c.domains = map[string]*domainRecord{} }
