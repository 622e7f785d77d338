// Package errorspkg provides common app errors.
package errorspkg

import "errors"

// ErrInternal indicates internal server error.
var ErrInternal = errors.New("internal")

// ErrTransientStore indicates a temporary datastore failure (lock timeout,
// dropped connection). The caller may retry; the service never does.
var ErrTransientStore = errors.New("datastore temporarily unavailable")
