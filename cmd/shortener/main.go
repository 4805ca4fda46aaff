package main

import (
	"log"

	"github.com/patric-chuzhbe/adshrt/internal/app"
)

func main() {
	theApp, err := app.New()
	if err != nil {
		log.Fatal(err)
	}
	defer theApp.Close()

	if err := theApp.Run(); err != nil {
		theApp.Close()
		log.Fatal(err)
	}
}
