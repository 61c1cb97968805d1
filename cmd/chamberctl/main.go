// Command chamberctl reads and drives an environmental test chamber from the
// command line.
//
//	chamberctl -c chamber.yaml loop get temperature
//	chamberctl -c chamber.yaml operation set program --program 3
//	chamberctl -c chamber.yaml program set 3 -f soak.yaml
//
// Results are printed as YAML.
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	a := &app{}
	if err := a.execute(newRootCmd(a)); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
