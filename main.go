// bk manages buttonkit settings and copy templates.
package main

import (
	"fmt"
	"os"

	"buttonkit/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
