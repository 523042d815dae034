package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/ChartMentor-io/chartmentor/internal/assistant"
	"github.com/ChartMentor-io/chartmentor/internal/config"
	"github.com/ChartMentor-io/chartmentor/internal/dashboard"
	"github.com/ChartMentor-io/chartmentor/internal/database"
	"github.com/ChartMentor-io/chartmentor/internal/intake"
	"github.com/ChartMentor-io/chartmentor/internal/journal"
	"github.com/ChartMentor-io/chartmentor/internal/notify"
	"github.com/ChartMentor-io/chartmentor/internal/portal"
	"github.com/ChartMentor-io/chartmentor/internal/storage"
)

const version = "0.0.1"

func initializePortal(cfg *config.Config) (http.Handler, error) {
	if err := database.Init(cfg); err != nil {
		return nil, err
	}

	var notifier notify.Notifier
	if cfg.Email.Enabled && cfg.Email.SendGridKey != "" {
		notifier = notify.NewSendGridNotifier(cfg.Email.SendGridKey, cfg.Email.FromName, cfg.Email.FromEmail)
	}
	pipeline := intake.New(notifier)

	var uploader journal.Uploader
	if cfg.Storage.Enabled {
		s3c, err := storage.NewS3Client(
			cfg.Storage.Endpoint,
			cfg.Storage.Region,
			cfg.Storage.Bucket,
			cfg.Storage.AccessKeyID,
			cfg.Storage.SecretAccessKey,
		)
		if err != nil {
			return nil, err
		}
		uploader = s3c
	}

	var validator journal.Validator
	if cfg.Assistant.APIKey != "" {
		validator = assistant.NewClient(
			cfg.Assistant.Endpoint,
			cfg.Assistant.APIKey,
			cfg.Assistant.Model,
			time.Duration(cfg.Assistant.TimeoutSeconds)*time.Second,
		)
	}

	journalService := journal.NewService(journal.NewFeed(), uploader, validator)
	dash := dashboard.New(dashboard.DefaultSources())

	p, err := portal.New(cfg, pipeline, journalService, dash)
	if err != nil {
		return nil, err
	}
	return p.Routes(), nil
}

func main() {
	configPath := flag.String("config", "app.yml", "Path to configuration file")
	flag.Parse()

	log.Printf("Starting ChartMentor Portal v%s with config: %s", version, *configPath)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	handler, err := initializePortal(cfg)
	if err != nil {
		log.Fatal(err)
	}

	port := os.Getenv("CHARTMENTOR_PORTAL_PORT")
	if port == "" {
		port = strconv.Itoa(cfg.PortalPort)
	}

	log.Printf("Starting portal server on 0.0.0.0:%s", port)
	if err := http.ListenAndServe(fmt.Sprintf("0.0.0.0:%s", port), handler); err != nil {
		log.Fatalf("could not start server: %v", err)
	}
}
