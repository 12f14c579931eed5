package rpc

import (
	"sync/atomic"
)

// HostPool is the ordered list of candidate base URLs for one client.
//
// The order is a soft preference hint. Reordering is copy-on-write behind an
// atomic pointer: readers iterate an immutable snapshot and concurrent
// promotions resolve last-write-wins. The set of hosts never changes, only
// their order.
type HostPool struct {
	hosts atomic.Pointer[[]string]
}

// NewHostPool builds a pool from an ordered, non-empty host list.
// Duplicates are kept as given.
func NewHostPool(hosts []string) (*HostPool, error) {
	if len(hosts) == 0 {
		return nil, ErrConfig
	}
	list := make([]string, len(hosts))
	copy(list, hosts)

	p := &HostPool{}
	p.hosts.Store(&list)
	return p, nil
}

// Snapshot returns the current order. The returned slice must not be modified.
func (p *HostPool) Snapshot() []string {
	return *p.hosts.Load()
}

// Hosts returns a copy of the current order.
func (p *HostPool) Hosts() []string {
	cur := p.Snapshot()
	out := make([]string, len(cur))
	copy(out, cur)
	return out
}

// Promote moves host to the front, shifting the hosts before it one place to
// the right. It reports whether the order changed.
func (p *HostPool) Promote(host string) bool {
	for {
		curPtr := p.hosts.Load()
		cur := *curPtr

		idx := indexOf(cur, host)
		if idx <= 0 {
			// already first, or not in the pool
			return false
		}

		next := make([]string, len(cur))
		next[0] = host
		copy(next[1:idx+1], cur[:idx])
		copy(next[idx+1:], cur[idx+1:])

		if p.hosts.CompareAndSwap(curPtr, &next) {
			return true
		}
	}
}

func indexOf(hosts []string, host string) int {
	for i, h := range hosts {
		if h == host {
			return i
		}
	}
	return -1
}
