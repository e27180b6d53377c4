package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/klavins/tender-finder/internal/config"
	"github.com/klavins/tender-finder/internal/fetch"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config file (optional)")
	schedule := flag.Bool("schedule", false, "run daily at the configured time instead of once")
	status := flag.Bool("status", false, "print download status and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	downloader := fetch.New(fetch.Config{
		Host:           cfg.FTP.Host,
		User:           cfg.FTP.User,
		Password:       cfg.FTP.Password,
		ArchiveDir:     cfg.ArchiveDir,
		CorpusDir:      cfg.CorpusDir,
		DaysToDownload: cfg.FTP.DaysToDownload,
		DaysToKeep:     cfg.FTP.DaysToKeep,
		TimeoutSeconds: cfg.FTP.TimeoutSeconds,
	})

	if *status {
		printStatus(downloader, cfg.CorpusDir)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *schedule {
		if err := downloader.RunDaily(ctx, cfg.FTP.RunAt); err != nil && err != context.Canceled {
			log.Fatal(err)
		}
		return
	}

	if err := downloader.Run(ctx); err != nil {
		log.Fatal(err)
	}
}

func printStatus(d *fetch.Downloader, corpusDir string) {
	if !d.HasMetadata() {
		fmt.Println("No downloads recorded yet.")
		return
	}
	status := d.Status()
	totalXML, _ := fetch.CountCorpusFiles(corpusDir)
	fmt.Printf("Last update:  %s\n", status.LastUpdate)
	fmt.Printf("Archives:     %d\n", status.TotalFiles)
	fmt.Printf("XML files:    %d\n", totalXML)

	dates := make([]string, 0, len(status.FilesByDate))
	for date := range status.FilesByDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	for _, date := range dates {
		fmt.Printf("  %s: %d archives\n", date, status.FilesByDate[date])
	}
}
