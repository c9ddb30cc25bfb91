package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"tnega/internal/config"
	"tnega/internal/controller"
	"tnega/internal/export"
	"tnega/internal/metrics"
	"tnega/internal/store/sqlitestore"
	"tnega/internal/textx"
	"tnega/internal/theme"
	"tnega/internal/xclient"
)

const statusTTL = time.Hour

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "init":
		cmdInit()
	case "collect":
		cmdCollect()
	case "status":
		cmdStatus()
	case "attempts":
		cmdAttempts()
	default:
		printHelp()
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: tnega <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Create a config file at ./tnega.yaml")
	fmt.Println("  collect     Run adaptive collection for a query")
	fmt.Println("  status      Show a task's progress")
	fmt.Println("  attempts    Show a task's attempt history")
}

func fatal(cmd string, err error) {
	metrics.IncCommandError(cmd)
	fmt.Println("error:", err)
	os.Exit(1)
}

func cmdInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", "./tnega.yaml", "path to write config")
	_ = fs.Parse(os.Args[2:])
	metrics.IncCommandRun("init")
	if err := config.Save(*path, config.Default()); err != nil {
		fatal("init", err)
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
}

func cmdCollect() {
	fs := flag.NewFlagSet("collect", flag.ExitOnError)
	cfgPath := fs.String("config", "./tnega.yaml", "config path")
	query := fs.String("query", "", "search query (required)")
	target := fs.Int("target", 0, "override target tweet count")
	_ = fs.Parse(os.Args[2:])
	metrics.IncCommandRun("collect")

	if *query == "" {
		fatal("collect", fmt.Errorf("-query is required"))
	}
	_ = godotenv.Load()
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fatal("collect", err)
	}
	if *target > 0 {
		cfg.Controller.TargetTweetCount = *target
	}
	if err := cfg.Validate(); err != nil {
		fatal("collect", err)
	}
	if cfg.Credentials.APIKey == "" {
		fmt.Println("warning: missing TWITTER_API_KEY; API calls will fail")
	}
	metrics.StartServer(cfg.Metrics.Addr)

	db, err := sqlitestore.Open(cfg.Storage.DBPath)
	if err != nil {
		fatal("collect", err)
	}
	defer db.Close()

	api := xclient.New(xclient.Options{
		BaseURL:           cfg.API.BaseURL,
		APIKey:            cfg.Credentials.APIKey,
		Timeout:           time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		RPS:               cfg.API.RPS,
		Burst:             cfg.API.Burst,
		BackoffBase:       time.Duration(cfg.API.BackoffBaseSeconds) * time.Second,
		BackoffCeiling:    time.Duration(cfg.API.BackoffCeilingSeconds) * time.Second,
		TransientAttempts: cfg.API.TransientAttempts,
	})

	publish := controller.StatusPublisherFunc(func(ctx context.Context, s controller.Status) error {
		return db.SaveStatus(ctx, sqlitestore.TaskStatus{
			TaskID:      s.TaskID,
			Status:      s.State.String(),
			Progress:    s.Progress,
			CurrentStep: s.CurrentStep,
			TweetCount:  s.TweetCount,
			Attempt:     s.Attempt,
		}, statusTTL)
	})

	ctrl := controller.New(api, cfg,
		controller.WithStore(db),
		controller.WithStatusPublisher(publish),
	)

	theme.PrintBanner()
	fmt.Println("Collecting for query:", *query)
	res := ctrl.Run(context.Background(), *query)

	fmt.Println("Task:", res.TaskID)
	fmt.Println("State:", res.State)
	fmt.Printf("Tweets: %d in %d attempts (%s)\n",
		len(res.Collector.AllTweets), res.Collector.Attempts, res.Collector.Duration.Round(time.Second))
	for _, a := range res.Attempts {
		fmt.Printf("  attempt %d: query=%q new=%d dup=%d total=%d\n",
			a.AttemptNumber, a.Query, a.NewTweetCount, a.DuplicateCount, a.TotalTweetCount)
	}
	if res.Err != nil {
		fmt.Println("Run error:", res.Err)
	}

	if len(res.Attempts) > 0 && len(res.Collector.AllTweets) > 0 {
		exportRun(cfg, res)
	}
	if res.Err != nil {
		metrics.IncCommandError("collect")
		os.Exit(1)
	}
}

// exportRun writes the run's tweets as CSV and NDJSON under the export dir.
func exportRun(cfg config.Config, res controller.RunResult) {
	dir := cfg.Export.Dir
	csvPath := filepath.Join(dir, res.TaskID+".csv")
	ndPath := filepath.Join(dir, res.TaskID+".ndjson")

	n, err := export.WriteTweetsCSV(csvPath, res.Collector.AllTweets, textx.DefaultCleanOptions())
	if err != nil {
		fmt.Println("csv export error:", err)
	} else {
		fmt.Printf("CSV: %s (%d rows)\n", csvPath, n)
	}
	if err := export.WriteTweetsNDJSON(ndPath, res.Collector.AllTweets); err != nil {
		fmt.Println("ndjson export error:", err)
	} else {
		fmt.Println("NDJSON:", ndPath)
	}
}

func cmdStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	cfgPath := fs.String("config", "./tnega.yaml", "config path")
	taskID := fs.String("task", "", "task id (required)")
	_ = fs.Parse(os.Args[2:])
	metrics.IncCommandRun("status")

	if *taskID == "" {
		fatal("status", fmt.Errorf("-task is required"))
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fatal("status", err)
	}
	db, err := sqlitestore.Open(cfg.Storage.DBPath)
	if err != nil {
		fatal("status", err)
	}
	defer db.Close()

	s, err := db.LoadStatus(context.Background(), *taskID)
	if err != nil {
		fatal("status", err)
	}
	fmt.Printf("Task %s: %s (%.0f%%)\n", s.TaskID, s.Status, s.Progress*100)
	fmt.Printf("  attempt=%d tweets=%d step=%q\n", s.Attempt, s.TweetCount, s.CurrentStep)
}

func cmdAttempts() {
	fs := flag.NewFlagSet("attempts", flag.ExitOnError)
	cfgPath := fs.String("config", "./tnega.yaml", "config path")
	taskID := fs.String("task", "", "task id (required)")
	_ = fs.Parse(os.Args[2:])
	metrics.IncCommandRun("attempts")

	if *taskID == "" {
		fatal("attempts", fmt.Errorf("-task is required"))
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fatal("attempts", err)
	}
	db, err := sqlitestore.Open(cfg.Storage.DBPath)
	if err != nil {
		fatal("attempts", err)
	}
	defer db.Close()

	attempts, err := db.LoadAttempts(context.Background(), *taskID)
	if err != nil {
		fatal("attempts", err)
	}
	if len(attempts) == 0 {
		fmt.Println("No attempts recorded for task", *taskID)
		return
	}
	for _, a := range attempts {
		line := fmt.Sprintf("attempt %d: query=%q new=%d dup=%d total=%d rate=%.2f",
			a.AttemptNumber, a.Query, a.NewTweetCount, a.DuplicateCount, a.TotalTweetCount, a.SuccessRate)
		if a.ErrorMessage != "" {
			line += " error=" + a.ErrorMessage
		}
		fmt.Println(line)
	}
}
