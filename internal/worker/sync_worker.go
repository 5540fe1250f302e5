package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"timesheets/internal/amqp"
	"timesheets/internal/core"
	"timesheets/internal/sheets"
)

// Store is the read side the worker needs.
type Store interface {
	GetTimesheet(ctx context.Context, id string) (core.Timesheet, error)
	GetUser(ctx context.Context, id string) (core.User, error)
	EntriesForTimesheet(ctx context.Context, timesheetID string) ([]core.TimeEntry, error)
	ListTimesheetsByStatus(ctx context.Context, status core.TimesheetStatus, userIDs []string) ([]core.Timesheet, error)
}

// SyncWorker copies approved timesheets to the spreadsheet sink.
type SyncWorker struct {
	store     Store
	sheets    sheets.ApprovedTimeWriter
	batchSize int
}

func NewSyncWorker(store Store, sheets sheets.ApprovedTimeWriter, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{
		store:     store,
		sheets:    sheets,
		batchSize: batchSize,
	}
}

// HandleTimesheetEvent processes a single lifecycle event from AMQP. Only
// approvals produce rows; other statuses are acknowledged and ignored.
func (w *SyncWorker) HandleTimesheetEvent(ctx context.Context, e *amqp.TimesheetEvent) error {
	slog.InfoContext(ctx, "Processing timesheet event",
		"timesheet_id", e.TimesheetID,
		"status", e.Status,
		"actor_id", e.ActorID)

	if e.Status != core.StatusApproved {
		return nil
	}

	ts, err := w.store.GetTimesheet(ctx, e.TimesheetID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Timesheet no longer exists, dropping event",
			"timesheet_id", e.TimesheetID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get timesheet from storage: %w", err)
	}
	if ts.Status != core.StatusApproved {
		slog.WarnContext(ctx, "Timesheet is not approved anymore, skipping",
			"timesheet_id", ts.ID,
			"status", ts.Status)
		return nil
	}

	if err := w.syncTimesheet(ctx, ts); err != nil {
		return fmt.Errorf("sync timesheet to sheets: %w", err)
	}
	return nil
}

// StartupSyncCheck replays approved timesheets into the sink. The sink skips
// timesheets it already holds, so this recovers from missed messages or
// worker downtime without duplicating rows.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	approved, err := w.store.ListTimesheetsByStatus(ctx, core.StatusApproved, nil)
	if err != nil {
		return fmt.Errorf("list approved timesheets: %w", err)
	}
	if len(approved) == 0 {
		slog.InfoContext(ctx, "No approved timesheets found on startup")
		return nil
	}

	// Most recent weeks first, bounded per run.
	if limit := w.batchSize * 5; len(approved) > limit {
		approved = approved[:limit]
	}

	slog.InfoContext(ctx, "Found approved timesheets on startup, processing...",
		"count", len(approved))

	successCount := 0
	errorCount := 0
	for _, ts := range approved {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.syncTimesheet(ctx, ts); err != nil {
			slog.ErrorContext(ctx, "Failed to sync timesheet during startup",
				"timesheet_id", ts.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(approved),
		"synced", successCount,
		"errors", errorCount)
	return nil
}

func (w *SyncWorker) syncTimesheet(ctx context.Context, ts core.Timesheet) error {
	user, err := w.store.GetUser(ctx, ts.UserID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("get user: %w", err)
	}
	if user.ID == "" {
		user = core.User{ID: ts.UserID}
	}

	entries, err := w.store.EntriesForTimesheet(ctx, ts.ID)
	if err != nil {
		return fmt.Errorf("get entries: %w", err)
	}

	ref, err := w.sheets.AppendApproved(ctx, sheets.ApprovedTimesheet{
		Timesheet: ts,
		User:      user,
		Entries:   entries,
	})
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	slog.InfoContext(ctx, "Successfully synced timesheet",
		"timesheet_id", ts.ID,
		"user_id", ts.UserID,
		"week_start", ts.WeekStart.String(),
		"entries", len(entries),
		"sheets_ref", ref,
		"hours", core.FormatHours(core.SumHours(entries)))
	return nil
}
