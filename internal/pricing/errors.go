// SPDX-License-Identifier: MIT

package pricing

import "fmt"

// StatusError is a non-2xx reply from the pricing oracle. 4xx replies are
// permanent (the request was wrong); 5xx replies are transient.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Code, e.Body)
}

// Transient reports whether retrying could help.
func (e *StatusError) Transient() bool {
	return e.Code >= 500
}
