package mirror

import "errors"

var (
	// ErrAlreadyBound is returned by Bind when the mirror is already subscribed.
	ErrAlreadyBound = errors.New("mirror already bound")

	// ErrNoLayers is returned by Bind when there is no entity collection to bind.
	ErrNoLayers = errors.New("no entity collection to bind")
)
