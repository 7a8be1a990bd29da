package operation

// EvictableUnderPressure returns a Modifier that opts a store into a
// Client's memory-pressure eviction: when enabled, the Client may drop
// this store's cache entry once it has zero subscribers. Stores built
// without this modifier are never evicted by memory pressure, regardless
// of subscriber count.
func EvictableUnderPressure[V any](enabled bool) Modifier[V] {
	return &evictableModifier[V]{enabled: enabled}
}

type evictableModifier[V any] struct {
	enabled bool
}

func (m *evictableModifier[V]) Setup(ctx Context) Context {
	return With(ctx, EvictableUnderPressureKey, m.enabled)
}

func (m *evictableModifier[V]) Wrap(next RunFunc[V]) RunFunc[V] { return next }
