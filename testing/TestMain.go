// Package testing switches binaries into test mode when blank-imported from a
// main package's tests, so calling main() returns before touching Redis,
// Gotenberg or the listening socket.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

// testEnv is applied once; empty values clear variables a developer's shell
// or .env might carry.
var testEnv = []struct {
	key, value string
	keepSet    bool
}{
	{key: "ARDASH_TEST_MODE", value: "1"},
	{key: "GOTENBERG_URL", value: "http://127.0.0.1:0", keepSet: true},
	{key: "REDIS_ADDR", value: ""},
	{key: "LINKED_WORKBOOK", value: ""},
	{key: "SNAPSHOT_DIR", value: ""},
}

func ensureTestMode() {
	once.Do(func() {
		for _, kv := range testEnv {
			if kv.keepSet && os.Getenv(kv.key) != "" {
				continue
			}
			_ = os.Setenv(kv.key, kv.value)
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain is usable directly by packages that want the same environment.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
