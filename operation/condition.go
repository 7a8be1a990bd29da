package operation

// Condition is an external boolean capability: IsSatisfied reports its
// current value and Subscribe registers a handler invoked immediately
// with that value, then again on every change. Conditions
// compose with And, Or, and Not.
type Condition interface {
	IsSatisfied(ctx Context) bool
	Subscribe(ctx Context, handler func(bool)) Subscription
}

// StaticCondition is a Condition that never changes.
type StaticCondition bool

// IsSatisfied implements Condition.
func (c StaticCondition) IsSatisfied(Context) bool { return bool(c) }

// Subscribe implements Condition: it invokes handler once with the
// static value and returns a no-op Subscription, since a StaticCondition
// never changes.
func (c StaticCondition) Subscribe(_ Context, handler func(bool)) Subscription {
	if handler != nil {
		handler(bool(c))
	}
	return EmptySubscription()
}

// And returns a Condition satisfied iff both a and b are satisfied.
func And(a, b Condition) Condition { return &combinatorCondition{kind: condAnd, a: a, b: b} }

// Or returns a Condition satisfied iff either a or b is satisfied.
func Or(a, b Condition) Condition { return &combinatorCondition{kind: condOr, a: a, b: b} }

// Not returns a Condition that is the logical negation of c.
func Not(c Condition) Condition { return &notCondition{inner: c} }

type condKind int

const (
	condAnd condKind = iota
	condOr
)

type combinatorCondition struct {
	kind condKind
	a, b Condition
}

func (c *combinatorCondition) IsSatisfied(ctx Context) bool {
	switch c.kind {
	case condAnd:
		return c.a.IsSatisfied(ctx) && c.b.IsSatisfied(ctx)
	default:
		return c.a.IsSatisfied(ctx) || c.b.IsSatisfied(ctx)
	}
}

func (c *combinatorCondition) Subscribe(ctx Context, handler func(bool)) Subscription {
	if handler == nil {
		return EmptySubscription()
	}
	av, bv := c.a.IsSatisfied(ctx), c.b.IsSatisfied(ctx)
	emit := func() {
		switch c.kind {
		case condAnd:
			handler(av && bv)
		default:
			handler(av || bv)
		}
	}
	subA := c.a.Subscribe(ctx, func(v bool) { av = v; emit() })
	subB := c.b.Subscribe(ctx, func(v bool) { bv = v; emit() })
	return Combine(subA, subB)
}

type notCondition struct {
	inner Condition
}

func (c *notCondition) IsSatisfied(ctx Context) bool { return !c.inner.IsSatisfied(ctx) }

func (c *notCondition) Subscribe(ctx Context, handler func(bool)) Subscription {
	if handler == nil {
		return EmptySubscription()
	}
	return c.inner.Subscribe(ctx, func(v bool) { handler(!v) })
}
