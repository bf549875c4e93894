package main

import (
	"os"

	"github.com/floortrack/floortrack/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
