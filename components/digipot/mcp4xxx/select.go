package mcp4xxx

import (
	"context"

	"github.com/pkg/errors"
)

// selectDevice enters the device's critical section. The chip select line is driven low only
// when the nesting count goes from 0 to 1, and the returned release drives it high again only
// when the count returns to 0, so compound operations can hold the device across several
// transfers. release must be called exactly once; extra calls are no-ops, as are releases of
// selections taken before Close.
func (m *MCP4XXX) selectDevice(ctx context.Context) (release func() error, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	generation := m.generation.Load()
	if m.nesting.Inc() == 1 {
		if err := m.cs.Set(ctx, false, nil); err != nil {
			m.decNesting()
			return nil, errors.Wrap(err, "asserting chip select")
		}
	}

	released := false
	return func() error {
		if released {
			return nil
		}
		released = true
		if m.generation.Load() != generation {
			return nil
		}
		if m.decNesting() == 0 {
			// The line must go high even if the operation's context was canceled.
			return errors.Wrap(m.cs.Set(context.WithoutCancel(ctx), true, nil), "deasserting chip select")
		}
		return nil
	}, nil
}

// decNesting decrements the nesting count without letting it drop below 0. It returns -1 when
// the count was already 0.
func (m *MCP4XXX) decNesting() int32 {
	for {
		n := m.nesting.Load()
		if n <= 0 {
			return -1
		}
		if m.nesting.CompareAndSwap(n, n-1) {
			return n - 1
		}
	}
}
