package main

import (
	"os"

	"horse.fit/infact/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
