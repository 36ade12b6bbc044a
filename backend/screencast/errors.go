package screencast

import "errors"

// ErrInProgress is returned by Toggle(true) while a start handshake runs.
var ErrInProgress = errors.New("screencast: start already in progress")

// ErrAborted is returned to the starter when Toggle(false) interrupted the handshake.
var ErrAborted = errors.New("screencast: start aborted")
