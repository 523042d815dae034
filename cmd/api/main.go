package main

import (
	"flag"
	"log"

	"github.com/ChartMentor-io/chartmentor/internal/api"
	"github.com/ChartMentor-io/chartmentor/internal/config"
	"github.com/ChartMentor-io/chartmentor/internal/database"
)

const version = "0.0.1"

func initializeAPI(configPath string) (*api.Api, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if err := database.Init(cfg); err != nil {
		return nil, err
	}

	return api.NewApi(*cfg)
}

func main() {
	configPath := flag.String("config", "app.yml", "Path to configuration file")
	flag.Parse()

	log.Printf("Starting ChartMentor API v%s with config: %s", version, *configPath)

	apiServer, err := initializeAPI(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	apiServer.Serve()
}
