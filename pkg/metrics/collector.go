package metrics

import (
	"sync"
	"time"

	"github.com/cuemby/cityfix/pkg/log"
	"github.com/cuemby/cityfix/pkg/storage"
	"github.com/cuemby/cityfix/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultCollectInterval is how often the collector refreshes gauges
const DefaultCollectInterval = 15 * time.Second

// DropCounter reports how many events the broker failed to deliver
type DropCounter interface {
	Dropped() uint64
}

// Collector periodically refreshes gauges from the store and keeps the
// storage health component current
type Collector struct {
	store    storage.Store
	broker   DropCounter
	interval time.Duration
	logger   zerolog.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCollector creates a new metrics collector; broker may be nil
func NewCollector(store storage.Store, broker DropCounter, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = DefaultCollectInterval
	}
	return &Collector{
		store:    store,
		broker:   broker,
		interval: interval,
		logger:   log.WithComponent("metrics"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		// Collect immediately on start
		c.Collect()

		for {
			select {
			case <-ticker.C:
				c.Collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Collect runs one collection pass
func (c *Collector) Collect() {
	if err := c.store.Ping(); err != nil {
		UpdateComponent(ComponentStorage, false, err.Error())
		c.logger.Warn().Err(err).Msg("Storage ping failed")
		return
	}
	UpdateComponent(ComponentStorage, true, "")

	c.collectIssueMetrics()
	c.collectUserMetrics()

	if c.broker != nil {
		EventsDropped.Set(float64(c.broker.Dropped()))
	}
}

func (c *Collector) collectIssueMetrics() {
	for _, status := range types.IssueStatuses {
		n, err := c.store.CountIssues(storage.IssueFilter{Status: status})
		if err != nil {
			return
		}
		IssuesTotal.WithLabelValues(string(status)).Set(float64(n))
	}

	boosted := true
	n, err := c.store.CountIssues(storage.IssueFilter{Boosted: &boosted})
	if err != nil {
		return
	}
	BoostedIssuesTotal.Set(float64(n))
}

func (c *Collector) collectUserMetrics() {
	users, err := c.store.ListUsers("")
	if err != nil {
		return
	}

	counts := map[types.Role]int{
		types.RoleCitizen: 0,
		types.RoleStaff:   0,
		types.RoleAdmin:   0,
	}
	for _, u := range users {
		counts[u.Role]++
	}
	for role, n := range counts {
		UsersTotal.WithLabelValues(string(role)).Set(float64(n))
	}
}
