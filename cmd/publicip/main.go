// Command publicip keeps the host's public IPv4 and IPv6 addresses on a
// terminal status line, refreshing on a fixed interval and when the network
// comes back.
package main

import (
	"fmt"
	"os"
)

// Build variables - set by ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
