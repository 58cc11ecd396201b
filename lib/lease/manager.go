package lease

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rcrowley/go-metrics"

	"github.com/myrfy001/Xline/lib/logging"
	"github.com/myrfy001/Xline/lib/syncx"
)

// DefaultSweepInterval is how often the expiry sweeper runs when the config
// does not say otherwise.
const DefaultSweepInterval = 500 * time.Millisecond

// ManagerConfig configures a lease manager.
type ManagerConfig struct {
	// SweepInterval is the expiry scan period. Zero means
	// DefaultSweepInterval.
	SweepInterval time.Duration
	// OnRevoke is invoked (from a dedicated dispatcher goroutine, never
	// while the collection is locked) for every revoked or expired lease.
	// May be nil.
	OnRevoke func(RevokedLease)
	// Registry receives the manager's counters. Nil means a private
	// registry.
	Registry metrics.Registry
}

// collection is the lease state protected by a single shared container.
type collection struct {
	leaseMap map[int64]*lease  // lease id to lease
	itemMap  map[string]int64  // attached key to lease id
	queue    *expiryQueue      // armed expiries
	demoted  bool              // true: this node does not expire leases
}

type leaseMgrImpl struct {
	collection *syncx.SharedContainer[collection]
	nextID     atomic.Int64
	notifier   *revokeNotifier
	onRevoke   func(RevokedLease)
	logger     logging.ILogger

	closed atomic.Bool
	stop   chan struct{}
	wg     sync.WaitGroup

	granted metrics.Counter
	revoked metrics.Counter
	expired metrics.Counter
}

// NewLeaseManager creates a lease manager and starts its expiry sweeper and
// revocation dispatcher.
func NewLeaseManager(cfg ManagerConfig) ILeaseManager {
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	registry := cfg.Registry
	if registry == nil {
		registry = metrics.NewRegistry()
	}

	m := &leaseMgrImpl{
		collection: syncx.NewShared(collection{
			leaseMap: make(map[int64]*lease),
			itemMap:  make(map[string]int64),
			queue:    newExpiryQueue(),
		}),
		notifier: newRevokeNotifier(),
		onRevoke: cfg.OnRevoke,
		logger:   logging.GetLogger("lease"),
		stop:     make(chan struct{}),
		granted:  metrics.NewRegisteredCounter("lease.granted", registry),
		revoked:  metrics.NewRegisteredCounter("lease.revoked", registry),
		expired:  metrics.NewRegisteredCounter("lease.expired", registry),
	}
	m.nextID.Store(generateIDSeed())

	m.wg.Add(2)
	go m.sweeper(interval)
	go m.dispatch()

	return m
}

// generateIDSeed creates a random positive starting point for lease IDs so
// independent managers do not hand out colliding IDs.
func generateIDSeed() int64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// fallback, only in the most extreme emergency
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]) >> 1)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see interface.go)
// --------------------------------------------------------------------------

func (m *leaseMgrImpl) Grant(ctx context.Context, ttl time.Duration) (Info, error) {
	if m.closed.Load() {
		return Info{}, NewError(RetCManagerClosed, "manager is closed")
	}

	id := m.nextID.Add(1)

	var info Info
	err := m.collection.Update(ctx, func(c *collection) {
		l := newLease(id, ttl)
		if c.demoted {
			l.forever()
		} else {
			c.queue.upsert(id, l.refresh(0))
		}
		c.leaseMap[id] = l
		info = l.info()
	})
	if err != nil {
		return Info{}, err
	}

	m.granted.Inc(1)
	return info, nil
}

func (m *leaseMgrImpl) Revoke(ctx context.Context, id int64) error {
	if m.closed.Load() {
		return NewError(RetCManagerClosed, "manager is closed")
	}

	var opErr error
	err := m.collection.Update(ctx, func(c *collection) {
		l, ok := c.leaseMap[id]
		if !ok {
			opErr = NewError(RetCLeaseNotFound, "no such lease")
			return
		}
		delete(c.leaseMap, id)
		for k := range l.keys {
			delete(c.itemMap, k)
		}
		c.queue.remove(id)
		m.notifier.push(&RevokedLease{ID: id, Keys: l.keyList(), Expired: false})
	})
	if err != nil {
		return err
	}
	if opErr == nil {
		m.revoked.Inc(1)
	}
	return opErr
}

func (m *leaseMgrImpl) Renew(ctx context.Context, id int64) (time.Duration, error) {
	if m.closed.Load() {
		return 0, NewError(RetCManagerClosed, "manager is closed")
	}

	var (
		opErr error
		ttl   time.Duration
	)
	err := m.collection.Update(ctx, func(c *collection) {
		l, ok := c.leaseMap[id]
		if !ok {
			opErr = NewError(RetCLeaseNotFound, "no such lease")
			return
		}
		if l.expired() {
			opErr = NewError(RetCLeaseExpired, "lease is past its expiry")
			return
		}
		if !c.demoted {
			c.queue.upsert(id, l.refresh(0))
		}
		ttl = l.ttl
	})
	if err != nil {
		return 0, err
	}
	return ttl, opErr
}

func (m *leaseMgrImpl) Attach(ctx context.Context, id int64, key string) error {
	if m.closed.Load() {
		return NewError(RetCManagerClosed, "manager is closed")
	}

	var opErr error
	err := m.collection.Update(ctx, func(c *collection) {
		l, ok := c.leaseMap[id]
		if !ok {
			opErr = NewError(RetCLeaseNotFound, "no such lease")
			return
		}
		l.keys[key] = struct{}{}
		c.itemMap[key] = id
	})
	if err != nil {
		return err
	}
	return opErr
}

func (m *leaseMgrImpl) Detach(ctx context.Context, id int64, key string) error {
	if m.closed.Load() {
		return NewError(RetCManagerClosed, "manager is closed")
	}

	var opErr error
	err := m.collection.Update(ctx, func(c *collection) {
		l, ok := c.leaseMap[id]
		if !ok {
			opErr = NewError(RetCLeaseNotFound, "no such lease")
			return
		}
		delete(l.keys, key)
		delete(c.itemMap, key)
	})
	if err != nil {
		return err
	}
	return opErr
}

func (m *leaseMgrImpl) LookUp(ctx context.Context, id int64) (Info, error) {
	var (
		opErr error
		info  Info
	)
	err := m.collection.Read(ctx, func(c *collection) {
		l, ok := c.leaseMap[id]
		if !ok {
			opErr = NewError(RetCLeaseNotFound, "no such lease")
			return
		}
		info = l.info()
	})
	if err != nil {
		return Info{}, err
	}
	return info, opErr
}

func (m *leaseMgrImpl) GetLease(ctx context.Context, key string) (int64, error) {
	var (
		opErr error
		id    int64
	)
	err := m.collection.Read(ctx, func(c *collection) {
		leaseID, ok := c.itemMap[key]
		if !ok {
			opErr = NewError(RetCLeaseNotFound, "key is not attached to any lease")
			return
		}
		id = leaseID
	})
	if err != nil {
		return 0, err
	}
	return id, opErr
}

func (m *leaseMgrImpl) Leases(ctx context.Context) ([]Info, error) {
	var infos []Info
	err := m.collection.Read(ctx, func(c *collection) {
		infos = make([]Info, 0, len(c.leaseMap))
		for _, l := range c.leaseMap {
			infos = append(infos, l.info())
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].RemainingTTL < infos[j].RemainingTTL })
	return infos, nil
}

func (m *leaseMgrImpl) Demote(ctx context.Context) error {
	return m.collection.Update(ctx, func(c *collection) {
		c.demoted = true
		for _, l := range c.leaseMap {
			l.forever()
		}
		c.queue.clear()
	})
}

func (m *leaseMgrImpl) Promote(ctx context.Context, extend time.Duration) error {
	return m.collection.Update(ctx, func(c *collection) {
		c.demoted = false
		for _, l := range c.leaseMap {
			c.queue.upsert(l.id, l.refresh(extend))
		}
	})
}

func (m *leaseMgrImpl) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(m.stop)
	m.notifier.close()
	m.wg.Wait()
	return nil
}

// --------------------------------------------------------------------------
// Background goroutines
// --------------------------------------------------------------------------

// sweeper periodically revokes expired leases.
func (m *leaseMgrImpl) sweeper(interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweepExpired()
		}
	}
}

// sweepExpired pops overdue entries from the expiry queue and revokes the
// corresponding leases.
func (m *leaseMgrImpl) sweepExpired() {
	err := m.collection.Update(context.Background(), func(c *collection) {
		now := time.Now()
		for {
			id, expiry, ok := c.queue.peek()
			if !ok || expiry.After(now) {
				break
			}
			c.queue.popSoonest()

			l, ok := c.leaseMap[id]
			if !ok {
				continue // revoked after its queue entry was armed
			}
			delete(c.leaseMap, id)
			for k := range l.keys {
				delete(c.itemMap, k)
			}
			m.expired.Inc(1)
			m.notifier.push(&RevokedLease{ID: id, Keys: l.keyList(), Expired: true})
		}
	})
	if err != nil {
		m.logger.Errorf("expiry sweep failed: %v", err)
	}
}

// dispatch delivers revocation events to the configured callback.
func (m *leaseMgrImpl) dispatch() {
	defer m.wg.Done()

	for ev := range m.notifier.recv() {
		if ev.Expired {
			m.logger.Infof("lease %d expired, detaching %d keys", ev.ID, len(ev.Keys))
		} else {
			m.logger.Debugf("lease %d revoked, detaching %d keys", ev.ID, len(ev.Keys))
		}
		if m.onRevoke != nil {
			m.onRevoke(*ev)
		}
	}
}
