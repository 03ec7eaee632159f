package mirror

// flag names one of the mirror's reentrancy flags.
type flag int

const (
	adding flag = iota
	removing
)

// String returns the flag name, for logs.
func (f flag) String() string {
	if f == adding {
		return "adding"
	}
	return "removing"
}

// guard holds the two reentrancy flags. A set flag means a handler is
// currently writing in that direction and events it causes must be ignored.
type guard struct {
	adding   bool
	removing bool
}

func (g *guard) ptr(f flag) *bool {
	if f == adding {
		return &g.adding
	}
	return &g.removing
}

// held reports whether f is set.
func (g *guard) held(f flag) bool {
	return *g.ptr(f)
}

// hold sets f for the duration of fn and restores its previous value on
// every exit path, panics included.
func (g *guard) hold(f flag, fn func()) {
	p := g.ptr(f)
	prev := *p
	*p = true
	defer func() { *p = prev }()
	fn()
}
