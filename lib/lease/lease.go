package lease

import (
	"sort"
	"time"
)

const (
	// MinLeaseTTL is the lower clamp for granted TTLs.
	MinLeaseTTL = 1 * time.Second
	// MaxLeaseTTL is the upper clamp for granted TTLs.
	MaxLeaseTTL = 9_000_000_000 * time.Second
)

// lease is the internal lease state. The expiry zero value means the lease
// never expires (the node currently is not responsible for expiry, see
// Demote).
type lease struct {
	id     int64
	ttl    time.Duration
	expiry time.Time
	keys   map[string]struct{}
}

func newLease(id int64, ttl time.Duration) *lease {
	if ttl < MinLeaseTTL {
		ttl = MinLeaseTTL
	}
	if ttl > MaxLeaseTTL {
		ttl = MaxLeaseTTL
	}
	return &lease{
		id:   id,
		ttl:  ttl,
		keys: make(map[string]struct{}),
	}
}

// refresh arms the expiry at now + extend + ttl and returns the new expiry.
func (l *lease) refresh(extend time.Duration) time.Time {
	l.expiry = time.Now().Add(extend + l.ttl)
	return l.expiry
}

// forever disarms expiry.
func (l *lease) forever() {
	l.expiry = time.Time{}
}

// expired reports whether the lease is past its armed expiry.
func (l *lease) expired() bool {
	return !l.expiry.IsZero() && time.Now().After(l.expiry)
}

// remaining returns the time until expiry; for disarmed leases the full TTL.
func (l *lease) remaining() time.Duration {
	if l.expiry.IsZero() {
		return l.ttl
	}
	r := time.Until(l.expiry)
	if r < 0 {
		return 0
	}
	return r
}

// keyList returns the attached keys as a sorted slice.
func (l *lease) keyList() []string {
	keys := make([]string, 0, len(l.keys))
	for k := range l.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// info builds the caller-visible copy.
func (l *lease) info() Info {
	return Info{
		ID:           l.id,
		TTL:          l.ttl,
		RemainingTTL: l.remaining(),
		Keys:         l.keyList(),
	}
}
