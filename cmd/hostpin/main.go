// hostpin decides whether the current host is the machine a device is
// pinned to and records the decision.
package main

import "github.com/ppiankov/hostpin/internal/cli"

func main() {
	cli.Execute()
}
