package excel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/aayra/internal/database"
	"github.com/example/aayra/pkg/models"
)

// ExportResult holds the result of an export operation
type ExportResult struct {
	FilePath     string
	SessionCount int
	ReviewCount  int
}

// ExportHistory writes a user's completed sessions and review cycle log to
// an .xlsx file and returns its path
func ExportHistory(ctx context.Context, userID int64) (*ExportResult, error) {
	sessionRepo := database.NewSessionRepository()
	reviewRepo := database.NewReviewRepository()

	sessions, err := sessionRepo.ListByStatus(ctx, userID, models.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed sessions: %w", err)
	}
	reviews, err := reviewRepo.ListAllByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load review history: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sessionSheet = "Sessions"
	if err := f.SetSheetName("Sheet1", sessionSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	sessionHeaders := []string{"Session", "Subject", "Topic", "Focus (min)", "Break (min)", "Favorite", "Last Reviewed", "Created"}
	for i, h := range sessionHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sessionSheet, cell, h)
	}
	for row, s := range sessions {
		lastReviewed := ""
		if s.LastReviewedAt != nil {
			lastReviewed = s.LastReviewedAt.Format(models.DateLayout)
		}
		values := []interface{}{
			s.SessionName,
			s.SubjectName,
			s.TopicName,
			s.FocusDurationMinutes,
			s.BreakDurationMinutes,
			s.IsFavorite,
			lastReviewed,
			s.CreatedAt.Format(models.DateLayout),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sessionSheet, cell, v)
		}
	}

	const reviewSheet = "Review Log"
	if _, err := f.NewSheet(reviewSheet); err != nil {
		return nil, fmt.Errorf("failed to create review sheet: %w", err)
	}
	reviewHeaders := []string{"Session", "Stage", "Due Date", "Status", "First Appearance"}
	for i, h := range reviewHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(reviewSheet, cell, h)
	}
	for row, e := range reviews {
		values := []interface{}{
			e.SessionName,
			e.ReviewStage,
			e.DueDate,
			string(e.Status),
			e.FirstAppearanceDate,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(reviewSheet, cell, v)
		}
	}

	exportDir := "data"
	if err := os.MkdirAll(exportDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(exportDir, fmt.Sprintf("aayra_history_%d_%s.xlsx", userID, time.Now().Format("20060102_150405")))
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("failed to save export file: %w", err)
	}

	return &ExportResult{
		FilePath:     path,
		SessionCount: len(sessions),
		ReviewCount:  len(reviews),
	}, nil
}
