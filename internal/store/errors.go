package store

import "errors"

var (
	ErrSave = errors.New("save tracker state")
	ErrLoad = errors.New("load tracker state")
)

// SaveError reports a backend failure while persisting a snapshot.
type SaveError struct {
	Err error
}

func (e *SaveError) Error() string {
	return ErrSave.Error() + ": " + e.Err.Error()
}

func (e *SaveError) Unwrap() []error {
	return []error{ErrSave, e.Err}
}

// LoadError reports a backend failure or unusable data while restoring a
// snapshot.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	return ErrLoad.Error() + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() []error {
	return []error{ErrLoad, e.Err}
}
