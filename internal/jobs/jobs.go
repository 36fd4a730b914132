package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"medportal/internal/repository"
)

const auditRetention = 30 * 24 * time.Hour

// Scheduler runs the daily hygiene jobs: purging audit rows older
// than the retention window.
type Scheduler struct {
	cron     *cron.Cron
	otpLogs  *repository.OtpLogRepo
	mailLogs *repository.EmailLogRepo
}

func NewScheduler(otpLogs *repository.OtpLogRepo, mailLogs *repository.EmailLogRepo) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		otpLogs:  otpLogs,
		mailLogs: mailLogs,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("30 2 * * *", s.purgeAuditLogs); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) purgeAuditLogs() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-auditRetention)

	if n, err := s.otpLogs.PurgeOlderThan(ctx, cutoff); err != nil {
		log.Printf("[jobs] otp log purge failed: %v", err)
	} else {
		log.Printf("[jobs] purged %d otp log rows", n)
	}

	if n, err := s.mailLogs.PurgeOlderThan(ctx, cutoff); err != nil {
		log.Printf("[jobs] email log purge failed: %v", err)
	} else {
		log.Printf("[jobs] purged %d email log rows", n)
	}
}
