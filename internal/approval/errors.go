package approval

import "errors"

// ErrAlreadyResolved is returned when an approval has already been
// resolved and cannot be resolved again.
var ErrAlreadyResolved = errors.New("approval already resolved")
