package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/bitbridge/backend/internal/config"
	"github.com/bitbridge/backend/internal/models"
	"github.com/bitbridge/backend/internal/services"
)

// Realigns the reward columns of ongoing projects with the difficulty table.
// Completed projects are never touched.
func main() {
	dryRun := flag.Bool("dry-run", false, "only list projects that would change")
	flag.Parse()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := models.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	fmt.Println("Connected to database successfully!")
	fmt.Println("")

	drifts, err := services.SyncRewardSchedules(context.Background(), db, *dryRun)
	if err != nil {
		log.Fatalf("Failed to sync reward schedules: %v", err)
	}

	if len(drifts) == 0 {
		fmt.Println("All ongoing projects already match the reward table.")
		return
	}

	fmt.Printf("%-5s %-40s %-13s %-20s %-20s\n", "ID", "Name", "Difficulty", "Stored", "Canonical")
	fmt.Println("----------------------------------------------------------------------------------------------------")
	for _, d := range drifts {
		name := d.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		fmt.Printf("%-5d %-40s %-13s %-20s %-20s\n", d.ProjectID, name, d.Difficulty, formatReward(d.Stored), formatReward(d.Canonical))
	}
	fmt.Println("")

	if *dryRun {
		fmt.Printf("Dry run: %d projects would be updated\n", len(drifts))
		return
	}
	fmt.Printf("Successfully updated %d projects!\n", len(drifts))
}

func formatReward(r services.RewardSchedule) string {
	return fmt.Sprintf("%d/%d/%d", r.XP, r.Bits, r.Bytes)
}
