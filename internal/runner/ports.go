package runner

import (
	"fmt"
	"sync"

	"github.com/smartcontractkit/freeport"
)

const (
	defaultStandalonePort = 6379
	defaultClusterPort    = 20000
	defaultProxyPort      = 10000
)

// portAllocator hands out server ports. With randomization it reserves
// free ports through freeport and returns them on release; otherwise it
// counts up from a fixed base.
type portAllocator struct {
	random bool
	base   int

	mu       sync.Mutex
	next     int
	reserved []int
}

func newPortAllocator(random bool, base int) *portAllocator {
	return &portAllocator{random: random, base: base}
}

// take returns n ports.
func (a *portAllocator) take(n int) ([]int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.random {
		ports := make([]int, n)
		for i := range ports {
			ports[i] = a.base + a.next
			a.next++
		}
		return ports, nil
	}

	ports, err := freeport.Take(n)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve %d free ports: %w", n, err)
	}
	a.reserved = append(a.reserved, ports...)
	return ports, nil
}

// release gives every reserved port back and resets the fixed counter.
func (a *portAllocator) release() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.reserved) > 0 {
		freeport.Return(a.reserved)
		a.reserved = nil
	}
	a.next = 0
}
