package main

import (
	"os"

	"github.com/MrSnakeDoc/stash/internal/app"
)

func main() {
	os.Exit(app.Main(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
