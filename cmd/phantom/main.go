// Command phantom evaluates block phantom assembly scripts, validates the
// assembly and exports its meshes.
package main

import "os"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
