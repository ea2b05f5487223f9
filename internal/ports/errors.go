package ports

import "errors"

var ErrNotFound = errors.New("not found")

var ErrConflict = errors.New("conflict")

// ErrClosed est renvoyé par une ressource (écran, session) déjà fermée.
var ErrClosed = errors.New("closed")
