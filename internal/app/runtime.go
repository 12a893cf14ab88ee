package app

import (
	"os"
	"sync"
)

const testModeEnv = "ODYSSEY_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	return os.Getenv(testModeEnv) == "1"
})

// InTestMode reports whether the process runs under go test with the
// testing package imported. Binaries refuse to start in that mode and
// configuration skips the .env file.
func InTestMode() bool {
	return testMode()
}
