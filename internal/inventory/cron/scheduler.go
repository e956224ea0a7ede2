package cronjob

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/unitwatch/inventory-backend/internal/inventory/service"
)

// runTimeout bounds one scheduled scan run across every configuration.
const runTimeout = 30 * time.Minute

type Scheduler struct {
	scanner  *service.Scanner
	schedule string
	cron     *cron.Cron
}

// NewScheduler creates a scheduler that triggers full scan runs on the
// given cron expression (with seconds, e.g. "0 0 8 * * *").
func NewScheduler(scanner *service.Scanner, schedule string) *Scheduler {
	return &Scheduler{
		scanner:  scanner,
		schedule: schedule,
	}
}

// Start initializes cron tasks
func (s *Scheduler) Start() error {
	c := cron.New(cron.WithSeconds())

	_, err := c.AddFunc(s.schedule, func() {
		runScheduledScan(s.scanner)
	})
	if err != nil {
		return err
	}

	log.Printf("Cron scheduler started (schedule %q)", s.schedule)
	c.Start()
	s.cron = c
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

func runScheduledScan(scanner *service.Scanner) {
	log.Println("Scheduled scan started...")

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	summary, err := scanner.Run(ctx)
	if err != nil {
		log.Printf("Scheduled scan failed: %v", err)
		return
	}

	log.Printf("Scheduled scan %s completed: %d configs, %d failed, finished at %s",
		summary.RunID, len(summary.Results), summary.Failed, time.Now().Format(time.RFC1123))
}
