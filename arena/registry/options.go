package registry

import "github.com/joshuapare/slabkit/arena/spinlock"

// Option configures a Registry.
type Option func(*options)

type options struct {
	slotSize int
	ic       spinlock.InterruptController
	name     string
}

func defaultOptions() options {
	return options{ic: spinlock.NoInterrupts{}}
}

// WithSlotSize sets the stride of every slot in the segment, header
// included. It must be at least 16 and a multiple of 8. The default is the
// header plus the size of T, rounded up to 8.
func WithSlotSize(n int) Option {
	return func(o *options) { o.slotSize = n }
}

// WithInterruptController sets the controller used by every lock the
// registry takes, including the item locks behind its handles.
// The default is spinlock.NoInterrupts.
func WithInterruptController(ic spinlock.InterruptController) Option {
	return func(o *options) {
		if ic != nil {
			o.ic = ic
		}
	}
}

// WithName labels the registry in logs and Stats.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}
