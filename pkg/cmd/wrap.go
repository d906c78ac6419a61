package cmd

import "context"

// Wrapped replaces the Run of Inner and keeps its identity.
type Wrapped struct {
	Inner   Command
	RunFunc func(ctx context.Context, inv *Invocation) error
}

func (w *Wrapped) Name() string { return w.Inner.Name() }

func (w *Wrapped) Description() string { return w.Inner.Description() }

func (w *Wrapped) Run(ctx context.Context, inv *Invocation) error {
	if w.RunFunc == nil {
		return w.Inner.Run(ctx, inv)
	}
	return w.RunFunc(ctx, inv)
}

func (w *Wrapped) Unwrap() Command { return w.Inner }

// Wrap is the building block for middleware.
func Wrap(c Command, run func(ctx context.Context, inv *Invocation) error) Command {
	return &Wrapped{Inner: c, RunFunc: run}
}

// Root strips every wrapper from c.
func Root(c Command) Command {
	for {
		w, ok := c.(interface{ Unwrap() Command })
		if !ok {
			return c
		}
		c = w.Unwrap()
	}
}
