package service

import (
	"context"
	"strings"
	"time"

	"lcnetwork/internal/featureflags"
	"lcnetwork/internal/models"
	"lcnetwork/internal/observability"
	"lcnetwork/internal/repository"
)

type CreateReportInput struct {
	ReporterID  uint
	TargetType  models.ReportTarget
	TargetID    uint
	Reason      string
	Description string
}

type ResolveReportInput struct {
	ReportID    uint
	ModeratorID uint
	Status      models.ReportStatus
	Note        string
}

type ReportService struct {
	uow     repository.UnitOfWork
	reports repository.ReportRepository
	flags   *featureflags.Manager
	now     func() time.Time
}

func NewReportService(uow repository.UnitOfWork, reports repository.ReportRepository, flags *featureflags.Manager) *ReportService {
	return &ReportService{uow: uow, reports: reports, flags: flags, now: time.Now}
}

// Create files a report. Reports on posts bump the post's report_count and
// put it on the review queue at user-report priority.
func (s *ReportService) Create(ctx context.Context, in CreateReportInput) (*models.Report, error) {
	if !in.TargetType.Valid() {
		return nil, models.NewValidationError("Invalid target type")
	}
	if !models.ReportReasons[in.Reason] {
		return nil, models.NewValidationError("Invalid reason")
	}
	if in.TargetType == models.ReportTargetUser && in.TargetID == in.ReporterID {
		return nil, models.NewValidationError("You cannot report yourself")
	}

	report := &models.Report{
		ReporterID:  in.ReporterID,
		TargetType:  in.TargetType,
		TargetID:    in.TargetID,
		Reason:      in.Reason,
		Description: strings.TrimSpace(in.Description),
		Status:      models.ReportStatusPending,
	}
	queueReports := s.flags.Enabled(featureflags.ReportQueueing, in.ReporterID)

	var enqueued bool
	err := s.uow.Within(ctx, func(r repository.Repos) error {
		if err := checkReportTarget(ctx, r, in.TargetType, in.TargetID); err != nil {
			return err
		}
		dup, err := r.Reports.ExistsOpen(ctx, in.ReporterID, in.TargetType, in.TargetID)
		if err != nil {
			return err
		}
		if dup {
			return models.NewConflictError("You have already reported this")
		}
		if err := r.Reports.Create(ctx, report); err != nil {
			return err
		}
		if in.TargetType != models.ReportTargetPost {
			return nil
		}
		if err := r.Posts.AdjustCounter(ctx, in.TargetID, "report_count", 1); err != nil {
			return err
		}
		if !queueReports {
			return nil
		}

		open, err := r.Queue.FindOpen(ctx, models.QueueTargetPost, in.TargetID)
		if err != nil {
			return err
		}
		if open != nil {
			return r.Queue.RaisePriority(ctx, open.ID, models.PriorityUserReport)
		}
		enqueued = true
		return r.Queue.Enqueue(ctx, &models.ModerationQueueItem{
			TargetType: models.QueueTargetPost,
			TargetID:   in.TargetID,
			Source:     models.QueueSourceUserReport,
			Priority:   models.PriorityUserReport,
		})
	})
	if err != nil {
		return nil, err
	}
	if enqueued {
		observability.QueueEnqueued.WithLabelValues(string(models.QueueSourceUserReport)).Inc()
	}
	return report, nil
}

func checkReportTarget(ctx context.Context, r repository.Repos, target models.ReportTarget, id uint) error {
	switch target {
	case models.ReportTargetPost:
		post, err := r.Posts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if post.IsDeleted {
			return models.NewNotFoundError("Post", id)
		}
	case models.ReportTargetComment:
		_, err := r.Comments.GetByID(ctx, id)
		return err
	case models.ReportTargetUser:
		_, err := r.Users.GetByID(ctx, id)
		return err
	}
	return nil
}

func (s *ReportService) List(ctx context.Context, status models.ReportStatus, page repository.Page) (models.Paginated[models.Report], error) {
	reports, total, err := s.reports.List(ctx, status, page)
	if err != nil {
		return models.Paginated[models.Report]{}, err
	}
	return models.NewPaginated(reports, total, page.Number, page.Size), nil
}

// Resolve closes an open report as resolved or dismissed.
func (s *ReportService) Resolve(ctx context.Context, in ResolveReportInput) (*models.Report, error) {
	if in.Status != models.ReportStatusResolved && in.Status != models.ReportStatusDismissed {
		return nil, models.NewValidationError("Status must be resolved or dismissed")
	}
	report, err := s.reports.GetByID(ctx, in.ReportID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	report.Status = in.Status
	report.ResolvedBy = &in.ModeratorID
	report.ResolutionNote = strings.TrimSpace(in.Note)
	report.ResolvedAt = &now
	if err := s.reports.Resolve(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}
