package operation

// taskConfigModifier publishes executor hints for the Task backing a run.
type taskConfigModifier[V any] struct {
	config TaskConfig
}

// TaskConfiguration returns a Modifier that publishes executor hints
// (display name, priority, executor preference) for tasks backing this
// operation, read by the store when it constructs each Task.
func TaskConfiguration[V any](config TaskConfig) Modifier[V] {
	return &taskConfigModifier[V]{config: config}
}

func (m *taskConfigModifier[V]) Setup(ctx Context) Context {
	return With(ctx, TaskConfigKey, m.config)
}

func (m *taskConfigModifier[V]) Wrap(next RunFunc[V]) RunFunc[V] { return next }
