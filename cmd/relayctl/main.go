package main

import (
	"log"
	"os"

	"github.com/atinyakov/go-url-relay/cmd/relayctl/commands"
)

func main() {
	if err := commands.NewRoot(os.Stdout, os.Getenv).Execute(); err != nil {
		log.Fatal(err)
	}
}
