package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"cagefight/balance"
	"cagefight/database"
	"cagefight/fight"
	"cagefight/logger"
)

func main() {
	var dbPath, redID, blueID, event string
	var seed int64
	var runs, workers int
	var asJSON bool
	flag.StringVar(&dbPath, "db", "./cagefight.db", "sqlite database holding the roster")
	flag.StringVar(&redID, "red", "", "red corner fighter id")
	flag.StringVar(&blueID, "blue", "", "blue corner fighter id")
	flag.StringVar(&event, "event", "regular", "event type (regular, prelim, main_card, co_main, main_event, title)")
	flag.Int64Var(&seed, "seed", 12345, "seed of the first run")
	flag.IntVar(&runs, "n", 1000, "number of bouts")
	flag.IntVar(&workers, "workers", 4, "parallel simulations")
	flag.BoolVar(&asJSON, "json", false, "print the report as JSON")
	flag.Parse()

	log := logger.New()
	logger.ApplyLevel(os.Getenv("LOG_LEVEL"))

	if redID == "" || blueID == "" {
		fmt.Fprintln(os.Stderr, "both -red and -blue are required")
		flag.Usage()
		os.Exit(2)
	}
	eventType, err := fight.ParseEventType(event)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid event type")
	}

	db, err := database.Open(dbPath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()
	repo := database.NewRepository(db, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	red, err := repo.GetFighter(ctx, redID)
	if err != nil {
		log.Fatal().Err(err).Str("fighter_id", redID).Msg("failed to load red corner")
	}
	blue, err := repo.GetFighter(ctx, blueID)
	if err != nil {
		log.Fatal().Err(err).Str("fighter_id", blueID).Msg("failed to load blue corner")
	}

	catalog, err := fight.LoadCatalog()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load action catalog")
	}

	report, err := balance.Run(ctx, fight.NewDecisionEngine(catalog), red.Profile(), blue.Profile(), balance.Options{
		Runs:      runs,
		Seed:      seed,
		Workers:   workers,
		EventType: eventType,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("balance run failed")
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Fatal().Err(err).Msg("failed to encode report")
		}
		return
	}

	fmt.Printf("%s vs %s, %d bouts from seed %d\n", red.Name, blue.Name, report.Runs, report.Seed)
	fmt.Printf("  %-24s %5d  %5.1f%%\n", red.Name, report.RedWins, report.RedRate*100)
	fmt.Printf("  %-24s %5d  %5.1f%%\n", blue.Name, report.BlueWins, report.BlueRate*100)
	fmt.Printf("  %-24s %5d  %5.1f%%\n", "draws", report.Draws, report.DrawRate*100)
	fmt.Printf("  average rounds: %.2f\n", report.AvgRounds)
	for _, mc := range report.SortedMethods() {
		fmt.Printf("  %-24s %5d\n", mc.Method.Label(), mc.Count)
	}
}
