package repository

import (
	"context"
	"errors"

	"lcnetwork/internal/models"

	"gorm.io/gorm"
)

// ReportRepository stores user reports.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uint) (*models.Report, error)
	ExistsOpen(ctx context.Context, reporterID uint, target models.ReportTarget, targetID uint) (bool, error)
	List(ctx context.Context, status models.ReportStatus, page Page) ([]models.Report, int64, error)
	Resolve(ctx context.Context, report *models.Report) error
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *reportRepository) GetByID(ctx context.Context, id uint) (*models.Report, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).First(&report, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Report", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &report, nil
}

func (r *reportRepository) ExistsOpen(ctx context.Context, reporterID uint, target models.ReportTarget, targetID uint) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("reporter_id = ? AND target_type = ? AND target_id = ? AND status IN ?",
			reporterID, target, targetID, []models.ReportStatus{models.ReportStatusPending, models.ReportStatusReviewing}).
		Count(&n).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *reportRepository) List(ctx context.Context, status models.ReportStatus, page Page) ([]models.Report, int64, error) {
	var (
		reports []models.Report
		total   int64
	)
	q := readDB(r.db).WithContext(ctx).Model(&models.Report{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	q = q.Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	if err := page.apply(q.Order("created_at ASC, id ASC")).Find(&reports).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return reports, total, nil
}

func (r *reportRepository) Resolve(ctx context.Context, report *models.Report) error {
	res := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ? AND status IN ?", report.ID, []models.ReportStatus{models.ReportStatusPending, models.ReportStatusReviewing}).
		Updates(map[string]any{
			"status":          report.Status,
			"resolved_by":     report.ResolvedBy,
			"resolution_note": report.ResolutionNote,
			"resolved_at":     report.ResolvedAt,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewConflictError("Report already resolved")
	}
	return nil
}
