package cache

// ScopedKeyer wraps a Keyer with a prefix so that several datasets can share
// one Redis instance without colliding.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "factory:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// CommunitiesKey generates a prefixed key for detection results.
func (k *ScopedKeyer) CommunitiesKey(graphHash string, opts CommunitiesKeyOpts) string {
	return k.prefix + k.inner.CommunitiesKey(graphHash, opts)
}

// RenderKey generates a prefixed key for rendered artifacts.
func (k *ScopedKeyer) RenderKey(labelsHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(labelsHash, opts)
}
