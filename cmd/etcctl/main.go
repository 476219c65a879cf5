// Command etcctl inspects and edits configuration files through the etc
// search hierarchy.
package main

import (
	"fmt"
	"os"

	"github.com/ygrebnov/etc/streams"
)

func main() {
	if err := newRootCmd(streams.DefaultIOStreams()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
