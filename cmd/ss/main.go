// Command ss runs ScriptyScript programs and the interactive shell.
package main

import (
	"context"
	"os"

	"github.com/thomasrohde/scriptyscript/internal/app"
)

func main() {
	os.Exit(app.Main(context.Background(), os.Args, app.Streams{
		In:  os.Stdin,
		Out: os.Stdout,
		Err: os.Stderr,
	}))
}
