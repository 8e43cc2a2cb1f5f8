package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/dronecontrol/cmd/dronecontrol/app"
)

func main() {
	app.NewApp().Run()
}
