// Command shipbot bridges an Urbit ship to a chat responder.
package main

import (
	"os"

	"github.com/roach88/shipbot/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
