// Command main runs the demo-data seeder for Warden.
package main

import (
	"flag"
	"log"

	"warden/internal/bootstrap"
	"warden/internal/config"
	"warden/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.Users, "Number of users to create")
	numPosts := flag.Int("posts", defaults.Posts, "Number of posts to create")
	numReports := flag.Int("reports", defaults.Reports, "Number of reports to file")
	dryRun := flag.Bool("dry-run", false, "Log what would be created without writing")
	skipBcrypt := flag.Bool("skip-bcrypt", false, "Store plaintext passwords (faster local seeding)")
	flag.Parse()

	log.Println("🌱 Moderation Workload Seeder")
	log.Println("=============================")
	log.Printf("Target: %d users, %d posts, %d reports, dry-run=%v\n", *numUsers, *numPosts, *numReports, *dryRun)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := defaults
	opts.Users = *numUsers
	opts.Posts = *numPosts
	opts.Reports = *numReports
	opts.DryRun = *dryRun
	opts.SkipBcrypt = *skipBcrypt

	if _, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{
		SeedDemoData: true,
		SeedOptions:  opts,
	}); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! The review queue is populated.")
	log.Println("📧 All seeded accounts have the password: password123")
}
