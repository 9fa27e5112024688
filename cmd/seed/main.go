// Command main runs the database seeder for SkillSwap.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"skillswap/internal/config"
	"skillswap/internal/database"
	"skillswap/internal/seed"
)

func main() {
	// Parse command line flags
	numUsers := flag.Int("users", 20, "Number of random users to create in addition to the demo catalog")
	shouldClean := flag.Bool("clean", false, "Clean database before seeding")
	resetUser := flag.String("reset-user", "", "Delete the named user, then exit")
	randSeed := flag.Int64("rand-seed", 0, "Seed for generated data (0 picks one from the clock)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *randSeed == 0 {
		*randSeed = time.Now().UnixNano()
	}
	s, err := seed.NewSeeder(db, seed.Options{
		RandomUsers: *numUsers,
		BcryptCost:  cfg.BcryptCost,
		Clean:       *shouldClean,
		RandSeed:    *randSeed,
	})
	if err != nil {
		log.Fatalf("Failed to load seed catalog: %v", err)
	}

	ctx := context.Background()

	if *resetUser != "" {
		deleted, err := s.ResetUser(ctx, *resetUser)
		if err != nil {
			log.Fatalf("Reset failed: %v", err)
		}
		if !deleted {
			log.Printf("User %q not found", *resetUser)
			return
		}
		log.Printf("Deleted user %q", *resetUser)
		return
	}

	log.Printf("Target: %d random users, clean=%v", *numUsers, *shouldClean)
	res, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Created %d users (%d skipped) and %d swap requests", res.Users, res.Skipped, res.Swaps)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
