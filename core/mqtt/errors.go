package mqtt

import "errors"

// ErrAckTimeout reports that a vehicle did not confirm a command before the
// deadline. The stored record is then marked failed rather than left pending.
var ErrAckTimeout = errors.New("no acknowledgment before deadline")
