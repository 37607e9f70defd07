package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds every knob the scheduler reads. Zero fields are filled in by
// Normalize so partial files stay valid.
type Tuning struct {
	Seed int64 `yaml:"seed"`

	// Ascending squared-distance bands for the spatial bucketer.
	BucketThresholdsSq []int `yaml:"bucket_thresholds_sq"`

	// Reachability cache: per-domain entry cap and max entry age in ticks.
	ReachCacheCapacity int    `yaml:"reach_cache_capacity"`
	ReachMaxAgeTicks   uint64 `yaml:"reach_max_age_ticks"`

	// Target cache refresh interval used by providers that do not set one.
	DefaultRefreshTicks uint64 `yaml:"default_refresh_ticks"`

	// Lifecycle sweep cadence, idle-domain eviction threshold, and the trim
	// limit applied to oversized per-provider target lists.
	SweepEveryTicks      uint64 `yaml:"sweep_every_ticks"`
	DomainIdleEvictTicks uint64 `yaml:"domain_idle_evict_ticks"`
	MaxCachedTargets     int    `yaml:"max_cached_targets"`

	// Sliding-window size for the per-provider success tracker.
	TrackerWindow int `yaml:"tracker_window"`
}

func Default() Tuning {
	return Tuning{
		Seed:                 1337,
		BucketThresholdsSq:   []int{100, 400, 2500, 10000},
		ReachCacheCapacity:   256,
		ReachMaxAgeTicks:     2500,
		DefaultRefreshTicks:  250,
		SweepEveryTicks:      5000,
		DomainIdleEvictTicks: 30000,
		MaxCachedTargets:     512,
		TrackerWindow:        32,
	}
}

// Load reads a tuning file. An empty path yields defaults.
func Load(path string) (Tuning, error) {
	t := Default()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) Normalize() {
	d := Default()
	if len(t.BucketThresholdsSq) == 0 {
		t.BucketThresholdsSq = append([]int(nil), d.BucketThresholdsSq...)
	}
	if t.ReachCacheCapacity == 0 {
		t.ReachCacheCapacity = d.ReachCacheCapacity
	}
	if t.ReachMaxAgeTicks == 0 {
		t.ReachMaxAgeTicks = d.ReachMaxAgeTicks
	}
	if t.DefaultRefreshTicks == 0 {
		t.DefaultRefreshTicks = d.DefaultRefreshTicks
	}
	if t.SweepEveryTicks == 0 {
		t.SweepEveryTicks = d.SweepEveryTicks
	}
	if t.DomainIdleEvictTicks == 0 {
		t.DomainIdleEvictTicks = d.DomainIdleEvictTicks
	}
	if t.MaxCachedTargets == 0 {
		t.MaxCachedTargets = d.MaxCachedTargets
	}
	if t.TrackerWindow == 0 {
		t.TrackerWindow = d.TrackerWindow
	}
}

func (t Tuning) Validate() error {
	prev := 0
	for i, th := range t.BucketThresholdsSq {
		if th <= prev {
			return fmt.Errorf("bucket_thresholds_sq must be positive and strictly ascending (index %d)", i)
		}
		prev = th
	}
	if t.ReachCacheCapacity < 1 {
		return fmt.Errorf("reach_cache_capacity must be >= 1")
	}
	if t.MaxCachedTargets < 1 {
		return fmt.Errorf("max_cached_targets must be >= 1")
	}
	if t.TrackerWindow < 1 {
		return fmt.Errorf("tracker_window must be >= 1")
	}
	if t.SweepEveryTicks < t.DefaultRefreshTicks {
		return fmt.Errorf("sweep_every_ticks must not be shorter than default_refresh_ticks")
	}
	return nil
}
