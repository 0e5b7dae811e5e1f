package scans

import "sync"

// Counter records how many verification attempts were made per transaction
// hash. It lives for the lifetime of the process; nothing is persisted.
type Counter struct {
	sync.Mutex
	counts map[string]int64
}

func NewCounter() *Counter {
	return &Counter{counts: make(map[string]int64)}
}

// RecordScan increments the count for txHash and returns the new value.
func (c *Counter) RecordScan(txHash string) int64 {
	c.Lock()
	defer c.Unlock()
	c.counts[txHash]++
	return c.counts[txHash]
}

// Count returns the current count, 0 for a hash never seen.
func (c *Counter) Count(txHash string) int64 {
	c.Lock()
	defer c.Unlock()
	return c.counts[txHash]
}

// Len returns the number of distinct hashes scanned so far.
func (c *Counter) Len() int {
	c.Lock()
	defer c.Unlock()
	return len(c.counts)
}
