package cmd

import (
	"os"
	"syscall"
)

// TerminationSignals are those signals which filepoll considers to be
// requesting termination. The first such signal stops polling and drains
// pending notifications, a second aborts delivery. Both SIGINT and SIGTERM are
// emulated on Windows (SIGINT on Ctrl-C and Ctrl-Break and SIGTERM on
// CTRL_CLOSE_EVENT, CTRL_LOGOFF_EVENT, and CTRL_SHUTDOWN_EVENT).
var TerminationSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}
