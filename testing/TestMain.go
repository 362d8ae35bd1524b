// Package testing prepares the process environment for tests that build the
// full application. Import it for side effects.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

// DefaultCSRFSecret is used when CSRF_SECRET is unset during tests.
const DefaultCSRFSecret = "test-csrf-secret-0123456789abcdef"

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("TENANTDESK_TEST_MODE", "1")
		if os.Getenv("CSRF_SECRET") == "" {
			_ = os.Setenv("CSRF_SECRET", DefaultCSRFSecret)
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain can be assigned from a package TestMain to guarantee test mode.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
