// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

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

	log.Println("starting headtrack (pipeline + web viewer)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunHeadtrack(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
