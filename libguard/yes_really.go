package libguard

// YesReally wraps a ruleset whose grant is dangerous enough that the
// caller must unwrap it explicitly before enabling it.
type YesReally[T any] struct {
	inner T
}

// NewYesReally wraps inner.
func NewYesReally[T any](inner T) YesReally[T] {
	return YesReally[T]{inner: inner}
}

// YesReally confirms the grant and returns the wrapped ruleset.
func (y YesReally[T]) YesReally() T {
	return y.inner
}
