// SPDX-License-Identifier: MIT

package lease

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies the lease extender never outlives its critical section.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
