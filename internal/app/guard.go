package app

import (
	"fmt"
	"sync"
)

// reentrancyGuard tracks which players and games have a mutating operation in
// flight. Asset custody is an external collaborator and may call back into the
// app; a nested operation touching a held key is rejected.
type reentrancyGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newReentrancyGuard() *reentrancyGuard {
	return &reentrancyGuard{held: map[string]struct{}{}}
}

// enter claims every key or none of them. The returned func releases them.
func (g *reentrancyGuard) enter(keys ...string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, k := range keys {
		if _, busy := g.held[k]; busy {
			return nil, ErrReentrant.Wrapf("%s is locked by an operation in flight", k)
		}
	}
	for _, k := range keys {
		g.held[k] = struct{}{}
	}
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		for _, k := range keys {
			delete(g.held, k)
		}
	}, nil
}

func playerKey(addr string) string { return "player:" + addr }

func gameKey(id uint64) string { return fmt.Sprintf("game:%d", id) }
