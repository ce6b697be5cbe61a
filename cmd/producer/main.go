package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/headtrack/internal/app"
	"github.com/relabs-tech/headtrack/internal/config"
)

func main() {
	configPath := flag.String("config", "headtrack_config.txt", "configuration file (KEY=VALUE or .yaml)")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := app.RunProducer(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
