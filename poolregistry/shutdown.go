package poolregistry

import "golang.org/x/sync/errgroup"

// closer is implemented by pools that own resources worth releasing
// explicitly (workerspool.Pool does). Pools that don't implement it are
// left alone -- for example a shared, process-wide pool a Registry
// doesn't own exclusively.
type closer interface {
	Close()
}

// Shutdown closes every pool this Registry created that owns closeable
// resources, concurrently. It is meant for use with per-net pools
// (UsePerNetPools) whose lifetime is scoped to a single net's Registry;
// shared process-wide pools should not be reached through a Registry
// that doesn't exclusively own them.
func (r *Registry) Shutdown() error {
	r.mu.Lock()
	var toClose []closer
	for _, bucket := range r.pools {
		for _, pool := range bucket {
			if c, ok := pool.(closer); ok {
				toClose = append(toClose, c)
			}
		}
	}
	r.mu.Unlock()

	var g errgroup.Group
	for _, c := range toClose {
		c := c
		g.Go(func() error {
			c.Close()
			return nil
		})
	}
	return g.Wait()
}
