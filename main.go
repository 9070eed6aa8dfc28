package main

import (
	"context"
	"flag"
	"log"

	"kabu-analyzer/app"
	"kabu-analyzer/config"
)

func main() {
	once := flag.Bool("once", false, "run the analysis pipeline once and exit")
	flag.Parse()

	// Load config from environment / .env file
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	application := app.New(cfg)
	if *once {
		if err := application.RunOnce(context.Background()); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := application.Start(); err != nil {
		log.Fatal(err)
	}
}
