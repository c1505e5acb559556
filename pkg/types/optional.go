package types

// optional carries a value together with its presence.
// The zero value is absent.
type optional[T any] struct {
	value T
	ok    bool
}

func some[T any](v T) optional[T] {
	return optional[T]{value: v, ok: true}
}

func (o optional[T]) get() (T, bool) {
	return o.value, o.ok
}

// ptr returns nil when absent, used for JSON encoding.
func (o optional[T]) ptr() *T {
	if !o.ok {
		return nil
	}
	v := o.value
	return &v
}

func fromPtr[T any](p *T) optional[T] {
	if p == nil {
		return optional[T]{}
	}
	return some(*p)
}
