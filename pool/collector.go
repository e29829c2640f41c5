package pool

import "context"

// collect drains chunk results from the output queue into their slots,
// waking any Request blocked on them. It runs until the pool context closes,
// then performs a final non-blocking drain so outcomes already produced are
// never lost during shutdown.
func (p *Pool) collect(ctx context.Context) {
	defer close(p.collectorDone)

	for {
		select {
		case res := <-p.out:
			p.deliver(res)
		case <-ctx.Done():
			for {
				select {
				case res := <-p.out:
					p.deliver(res)
				default:
					return
				}
			}
		}
	}
}

// deliver files each outcome into its slot. Every slot is filled at most
// once; outcomes for slots already released are dropped.
func (p *Pool) deliver(res chunkResult) {
	p.sm.Lock()
	for _, o := range res.outcomes {
		s, ok := p.slots[o.id]
		if !ok {
			continue
		}
		select {
		case <-s.done:
			continue
		default:
		}
		s.val, s.err = o.val, o.err
		close(s.done)
	}
	p.sm.Unlock()

	p.stats.collected.Add(int64(len(res.outcomes)))
}
