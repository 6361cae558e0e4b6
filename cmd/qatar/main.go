package main

import (
	"os"

	"github.com/Shivam-Patel-G/qatar-sale/cmd/qatar/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
