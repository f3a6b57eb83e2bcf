package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"biblios/internal/adapters/persistence/repositories"
	"biblios/internal/core/domain"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// SweepService runs the scheduled ledger maintenance: expiring lapsed
// reservations (releasing their copies) and persisting the Overdue status on
// past-due loans for audit. Reads never depend on the sweeps having run;
// status is always derived at read time.
type SweepService struct {
	db        *gorm.DB
	loanRepo  *repositories.LoanRepository
	itemRepo  *repositories.ItemRepository
	tokenRepo *repositories.RefreshTokenRepository
	cron      *cron.Cron
}

// NewSweepService creates a new sweep service
func NewSweepService(
	db *gorm.DB,
	loanRepo *repositories.LoanRepository,
	itemRepo *repositories.ItemRepository,
	tokenRepo *repositories.RefreshTokenRepository,
) *SweepService {
	return &SweepService{
		db:        db,
		loanRepo:  loanRepo,
		itemRepo:  itemRepo,
		tokenRepo: tokenRepo,
		cron:      cron.New(),
	}
}

// Start schedules the sweeps (hourly) and launches the scheduler.
func (s *SweepService) Start() {
	s.cron.AddFunc("@hourly", func() {
		ctx := context.Background()
		now := time.Now()

		expired, err := s.ExpireReservations(ctx, now)
		if err != nil {
			log.Printf("❌ Reservation expiry sweep failed: %v", err)
		} else if expired > 0 {
			log.Printf("🧹 Expired %d lapsed reservation(s)", expired)
		}

		marked, err := s.MarkOverdue(ctx, now)
		if err != nil {
			log.Printf("❌ Overdue sweep failed: %v", err)
		} else if marked > 0 {
			log.Printf("🧹 Marked %d loan(s) overdue", marked)
		}

		if err := s.tokenRepo.DeleteExpired(ctx); err != nil {
			log.Printf("❌ Refresh token cleanup failed: %v", err)
		}
	})
	s.cron.Start()
	log.Println("🚀 SweepService started")
}

// Stop stops the scheduler, waiting for a running sweep to finish.
func (s *SweepService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("🛑 SweepService stopped")
}

// ExpireReservations moves every reservation whose hold window lapsed before
// now into the terminal Expired state and releases its copy back to the
// pool. Each record is handled in its own transaction so one failure does
// not hold back the rest of the sweep.
func (s *SweepService) ExpireReservations(ctx context.Context, now time.Time) (int, error) {
	records, err := s.loanRepo.ListExpiredReservations(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, rec := range records {
		recID := rec.ID
		err := s.db.Transaction(func(tx *gorm.DB) error {
			loans := s.loanRepo.WithTx(tx)
			items := s.itemRepo.WithTx(tx)

			record, err := loans.GetByIDForUpdate(ctx, recID)
			if err != nil {
				return err
			}
			// Someone may have confirmed or cancelled it since the listing.
			if domain.LoanStatus(record.Status) != domain.StatusReserved || !now.After(record.DueAt) {
				return nil
			}

			record.Status = string(domain.StatusExpired)
			record.AppendNote(fmt.Sprintf("Reservation expired on %s without pickup.", now.Format("2006-01-02")))
			if err := loans.Update(ctx, record); err != nil {
				return err
			}
			if err := items.ReleaseCopy(ctx, record.ItemID); err != nil {
				return err
			}
			expired++
			return nil
		})
		if err != nil {
			log.Printf("❌ Failed to expire reservation %d: %v", recID, err)
		}
	}

	return expired, nil
}

// MarkOverdue persists the Overdue status on Borrowed records past due. This
// is bookkeeping for audit queries only; the derived status already reports
// these records as overdue.
func (s *SweepService) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	records, err := s.loanRepo.ListPastDueBorrowed(ctx, now)
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, rec := range records {
		rec.Status = string(domain.StatusOverdue)
		if err := s.loanRepo.Update(ctx, rec); err != nil {
			log.Printf("❌ Failed to mark loan %d overdue: %v", rec.ID, err)
			continue
		}
		marked++
	}

	return marked, nil
}
