package filepoll

import (
	"os"
)

// DebugEnabled controls whether or not debugging is enabled. It is set
// automatically based on the FILEPOLL_DEBUG environment variable.
var DebugEnabled bool

func init() {
	// Check whether or not debugging should be enabled.
	DebugEnabled = os.Getenv("FILEPOLL_DEBUG") == "1"
}
