package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"CareCircle/internal/model"
	pkgerrors "CareCircle/pkg/errors"
	"CareCircle/pkg/logger"
	"CareCircle/storage/database"
)

var (
	reportService *ReportService
	reportOnce    sync.Once
)

func Report() *ReportService {
	reportOnce.Do(func() {
		reportService = &ReportService{}
	})
	return reportService
}

type ReportService struct{}

type adherenceStats struct {
	Taken   int64
	Missed  int64
	Skipped int64
	Pending int64
}

func (a adherenceStats) total() int64 {
	return a.Taken + a.Missed + a.Skipped + a.Pending
}

// 依从率 = taken / (taken + missed)，主动跳过不计入分母
func (a adherenceStats) rate() float64 {
	denom := a.Taken + a.Missed
	if denom == 0 {
		return 1.0
	}
	return float64(a.Taken) / float64(denom)
}

// GenerateReport 生成某档案一段周期的依从报告并推送给照护者
// 实现 queue.ReportGenerator
func (s *ReportService) GenerateReport(
	ctx context.Context,
	seniorID int64,
	period, periodStart, periodEnd string,
) error {
	var profile model.SeniorProfile
	if err := database.DB().WithContext(ctx).First(&profile, seniorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.NewSkipMessageError(fmt.Sprintf("senior %d no longer exists", seniorID))
		}
		return fmt.Errorf("failed to load senior profile: %w", err)
	}
	if !profile.Active {
		return pkgerrors.NewSkipMessageError(fmt.Sprintf("senior %d inactive", seniorID))
	}

	var caregiver model.Caregiver
	if err := database.DB().WithContext(ctx).First(&caregiver, profile.CaregiverID).Error; err != nil {
		return fmt.Errorf("failed to load caregiver: %w", err)
	}

	stats, err := s.collectStats(ctx, seniorID, periodStart, periodEnd)
	if err != nil {
		return err
	}

	if stats.total() == 0 {
		// 周期内没有任何排期，不打扰照护者
		logger.Logger.Info("Report skipped, no events in period",
			zap.Int64("senior_id", seniorID),
			zap.String("period_start", periodStart),
			zap.String("period_end", periodEnd),
		)
		return nil
	}

	title, body := s.composeSummary(&profile, period, stats)

	payload := model.JSONB{
		"period":       period,
		"period_start": periodStart,
		"period_end":   periodEnd,
		"taken":        stats.Taken,
		"missed":       stats.Missed,
		"skipped":      stats.Skipped,
		"pending":      stats.Pending,
	}

	if err := Notification().SendReport(ctx, &caregiver, &profile, title, body, payload); err != nil {
		return fmt.Errorf("failed to push report: %w", err)
	}

	logger.Logger.Info("Report generated",
		zap.Int64("senior_id", seniorID),
		zap.String("period", period),
		zap.Int64("taken", stats.Taken),
		zap.Int64("missed", stats.Missed),
	)
	return nil
}

func (s *ReportService) collectStats(ctx context.Context, seniorID int64, from, to string) (adherenceStats, error) {
	var rows []struct {
		Status model.EventStatus
		Count  int64
	}
	err := database.DB().WithContext(ctx).
		Model(&model.ScheduledEvent{}).
		Select("status, COUNT(*) AS count").
		Where("senior_id = ? AND event_date >= ? AND event_date <= ?", seniorID, from, to).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return adherenceStats{}, fmt.Errorf("failed to aggregate events: %w", err)
	}

	var stats adherenceStats
	for _, r := range rows {
		switch r.Status {
		case model.EventStatusTaken:
			stats.Taken = r.Count
		case model.EventStatusMissed:
			stats.Missed = r.Count
		case model.EventStatusSkipped:
			stats.Skipped = r.Count
		case model.EventStatusPending:
			stats.Pending = r.Count
		}
	}
	return stats, nil
}

func (s *ReportService) composeSummary(profile *model.SeniorProfile, period string, stats adherenceStats) (string, string) {
	var title string
	switch period {
	case "monthly":
		title = fmt.Sprintf("Monthly report for %s", profile.DisplayName)
	default:
		title = fmt.Sprintf("Weekly report for %s", profile.DisplayName)
	}

	body := fmt.Sprintf("%d of %d doses taken (%.0f%% adherence)",
		stats.Taken, stats.Taken+stats.Missed, stats.rate()*100)
	if stats.Missed > 0 {
		body += fmt.Sprintf(", %d missed", stats.Missed)
	}
	if stats.Skipped > 0 {
		body += fmt.Sprintf(", %d skipped", stats.Skipped)
	}

	return title, body
}
