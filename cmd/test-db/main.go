package main

import (
	"flag"
	"log"
	"os"

	"github.com/ChartMentor-io/chartmentor/internal/config"
	"github.com/ChartMentor-io/chartmentor/internal/database"
)

// Deployment smoke check: verifies the configured database can be opened,
// migrated and seeded before the real services start.
func main() {
	configPath := flag.String("config", "app.yml", "Path to configuration file")
	flag.Parse()

	log.Printf("Testing database initialization...")
	log.Printf("CHARTMENTOR_ENV: %s", os.Getenv("CHARTMENTOR_ENV"))

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Config loaded - DB type: %s", cfg.Database.Type)

	if err := database.Init(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	if err := database.GetConnection().Ping(); err != nil {
		log.Fatalf("Database ping failed: %v", err)
	}

	count, err := database.GetUserCount()
	if err != nil {
		log.Fatalf("Database reachable but query failed: %v", err)
	}
	plans, err := database.GetPlans()
	if err != nil {
		log.Fatalf("Plan seed check failed: %v", err)
	}

	log.Printf("Database OK: %d users, %d subscription plans", count, len(plans))
}
