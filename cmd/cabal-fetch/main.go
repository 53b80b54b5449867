package main

import (
	"github.com/Heather/cabal/pkg/cmd"
)

func main() {
	cmd.Execute()
}
