package embedcache

import "context"

// Noop never stores anything.
type Noop struct{}

// Get implements embedder.Cache.
func (Noop) Get(context.Context, string) ([]float32, bool, error) { return nil, false, nil }

// Put implements embedder.Cache.
func (Noop) Put(context.Context, string, []float32) error { return nil }
