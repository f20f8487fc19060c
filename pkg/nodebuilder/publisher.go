package nodebuilder

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/snapshot"
)

// ErrSuperseded is returned by Submit when a newer snapshot was submitted
// before the pass finished. Its result is discarded.
var ErrSuperseded = errors.New("compile superseded by a newer snapshot")

// Publisher holds the most recent Compiled geometry. Readers call Current
// without locking; editors call Submit after every batch of edits.
type Publisher struct {
	compiler *Compiler
	current  atomic.Pointer[Compiled]

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func NewPublisher(c *Compiler) *Publisher {
	return &Publisher{compiler: c}
}

// Current returns the last published geometry, nil before the first
// successful Submit.
func (p *Publisher) Current() *Compiled {
	return p.current.Load()
}

// Submit compiles snap and publishes the result. Submitting cancels the pass
// still running for an older snapshot. A snapshot identical to the one
// already published is not compiled again. On error the previously
// published geometry stays in place.
func (p *Publisher) Submit(ctx context.Context, snap *snapshot.Snapshot) (*Compiled, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.gen++
	gen := p.gen
	p.cancel = cancel
	cur := p.current.Load()
	p.mu.Unlock()

	if cur != nil && cur.Fingerprint == snap.Fingerprint() && cur.Config == p.compiler.Config {
		p.compiler.logger().Debug("geometry unchanged, keeping compiled result",
			"fingerprint", cur.Fingerprint.String()[:16])
		return cur, nil
	}

	compiled, err := p.compiler.Compile(ctx, snap)

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen {
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}

	p.current.Store(compiled)

	return compiled, nil
}
