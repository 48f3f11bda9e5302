package main

import (
	"os"

	"github.com/singlefault/mend/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
