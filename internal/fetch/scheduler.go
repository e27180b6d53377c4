package fetch

import (
	"context"
	"log"
	"time"
)

// RunDaily runs one download pass immediately, then once per day at the
// given HH:MM local time. The loop checks the clock every minute and exits
// when the context is cancelled.
func (d *Downloader) RunDaily(ctx context.Context, at string) error {
	if _, err := time.Parse("15:04", at); err != nil {
		at = "05:00"
	}
	log.Printf("Scheduling daily download at %s", at)

	if err := d.Run(ctx); err != nil {
		log.Printf("Download failed: %v", err)
	}
	lastRun := time.Now().Format("2006-01-02")

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			today := now.Format("2006-01-02")
			if now.Format("15:04") != at || lastRun == today {
				continue
			}
			if err := d.Run(ctx); err != nil {
				log.Printf("Download failed: %v", err)
			}
			lastRun = today
		}
	}
}
