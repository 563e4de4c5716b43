package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

// TestSecret is a signing key long enough for the token codec.
const TestSecret = "campus-test-secret-0123456789abcdef"

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("CAMPUS_TEST_MODE", "1")
		if os.Getenv("JWT_SECRET") == "" {
			_ = os.Setenv("JWT_SECRET", TestSecret)
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
