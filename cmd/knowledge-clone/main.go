// Package main is the entry point for the knowledge clone chat service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/knowledge-clone/cmd/knowledge-clone/app"
)

func main() {
	app.NewApp().Run()
}
