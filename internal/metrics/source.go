package metrics

import "context"

// Source provides one metric domain. Collect fills only its own domain of
// snap and must return within ctx's deadline under normal conditions. An
// error means the domain is unavailable this tick; the caller carries the
// previous value forward.
type Source interface {
	Domain() Domain
	Collect(ctx context.Context, snap *Snapshot) error
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc struct {
	D  Domain
	Fn func(ctx context.Context, snap *Snapshot) error
}

func (f SourceFunc) Domain() Domain { return f.D }

func (f SourceFunc) Collect(ctx context.Context, snap *Snapshot) error {
	return f.Fn(ctx, snap)
}
