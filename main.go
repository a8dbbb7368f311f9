// The main package for the stock-monitor executable.
package main

import (
	"github.com/txyyddss/actions-stock-monitor/cmd"
)

func main() {
	cmd.Execute()
}
