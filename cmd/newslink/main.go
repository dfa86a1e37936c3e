package main

import (
	"os"

	"horse.fit/newslink/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
