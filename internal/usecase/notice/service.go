package notice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"notice-dispatch/internal/domain/entity"
	"notice-dispatch/internal/observability/metrics"
	"notice-dispatch/internal/repository"
)

// UpsertResult reports what CreateNoticeType did.
type UpsertResult int

const (
	Unchanged UpsertResult = iota
	Created
	Updated
)

func (r UpsertResult) String() string {
	switch r {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// NoticeTypeInput holds the fields of a notice type keyed by Label.
type NoticeTypeInput struct {
	Label       string
	Display     string
	Description string
	Default     int
}

// ListOptions narrows NoticesFor.
type ListOptions struct {
	IncludeArchived bool
	// AllUsers lists every user's notices. Honored for superusers only.
	AllUsers bool
}

// RecordInput describes a notice history row to create.
type RecordInput struct {
	User       *entity.User
	NoticeType *entity.NoticeType
	Message    string
	Sender     *entity.User
	OnSite     bool
}

// Service provides notice type and notice history use cases.
type Service struct {
	Types   repository.NoticeTypeRepository
	Notices repository.NoticeRepository
	Now     func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CreateNoticeType inserts the type or updates the fields that differ from
// the stored row. Calling it twice with identical input writes nothing.
func (s *Service) CreateNoticeType(ctx context.Context, in NoticeTypeInput) (*entity.NoticeType, UpsertResult, error) {
	want := &entity.NoticeType{Label: in.Label, Display: in.Display, Description: in.Description, Default: in.Default}
	if err := want.Validate(); err != nil {
		return nil, Unchanged, err
	}

	existing, err := s.Types.GetByLabel(ctx, in.Label)
	if err != nil {
		return nil, Unchanged, fmt.Errorf("get notice type: %w", err)
	}
	if existing == nil {
		if err := s.Types.Create(ctx, want); err != nil {
			return nil, Unchanged, fmt.Errorf("create notice type: %w", err)
		}
		slog.Info("created notice type", slog.String("label", want.Label))
		return want, Created, nil
	}

	changed := false
	if existing.Display != in.Display {
		existing.Display = in.Display
		changed = true
	}
	if existing.Description != in.Description {
		existing.Description = in.Description
		changed = true
	}
	if existing.Default != in.Default {
		existing.Default = in.Default
		changed = true
	}
	if !changed {
		return existing, Unchanged, nil
	}
	if err := s.Types.Update(ctx, existing); err != nil {
		return nil, Unchanged, fmt.Errorf("update notice type: %w", err)
	}
	slog.Info("updated notice type", slog.String("label", existing.Label))
	return existing, Updated, nil
}

// NoticeType returns the type registered under label or ErrNoticeTypeNotFound.
func (s *Service) NoticeType(ctx context.Context, label string) (*entity.NoticeType, error) {
	nt, err := s.Types.GetByLabel(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("get notice type: %w", err)
	}
	if nt == nil {
		return nil, fmt.Errorf("%q: %w", label, ErrNoticeTypeNotFound)
	}
	return nt, nil
}

// Record stores a new unseen notice for the user.
func (s *Service) Record(ctx context.Context, in RecordInput) (*entity.Notice, error) {
	n := entity.NewNotice(in.User.ID, in.NoticeType.ID, in.Message, s.now())
	n.OnSite = in.OnSite
	if in.Sender != nil {
		id := in.Sender.ID
		n.SenderID = &id
	}
	if err := s.Notices.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create notice: %w", err)
	}
	metrics.RecordNoticeCreated(in.NoticeType.Label)
	return n, nil
}

// NoticesFor returns the viewer's notices newest first.
func (s *Service) NoticesFor(ctx context.Context, viewer *entity.User, opts ListOptions) ([]*entity.Notice, error) {
	var (
		notices []*entity.Notice
		err     error
	)
	if opts.AllUsers && viewer.IsSuperuser {
		notices, err = s.Notices.ListAll(ctx, opts.IncludeArchived)
	} else {
		notices, err = s.Notices.ListForUser(ctx, viewer.ID, opts.IncludeArchived)
	}
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	return notices, nil
}

// UnseenCountFor counts the user's unseen notices without loading them.
func (s *Service) UnseenCountFor(ctx context.Context, user *entity.User) (int64, error) {
	n, err := s.Notices.CountUnseen(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("count unseen: %w", err)
	}
	return n, nil
}

// MarkSeen reports whether the notice was unseen and marks it seen. Only the
// first call for a notice returns true, even across processes.
func (s *Service) MarkSeen(ctx context.Context, n *entity.Notice) (bool, error) {
	wasUnseen := n.IsUnseen()
	flipped, err := s.Notices.MarkSeen(ctx, n.ID)
	if err != nil {
		n.Unseen = wasUnseen
		return false, fmt.Errorf("mark seen: %w", err)
	}
	return flipped, nil
}

// MarkAllSeen marks every unseen notice of the user seen and returns how
// many changed.
func (s *Service) MarkAllSeen(ctx context.Context, user *entity.User) (int64, error) {
	n, err := s.Notices.MarkAllSeen(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("mark all seen: %w", err)
	}
	return n, nil
}

// Archive permanently archives the notice.
func (s *Service) Archive(ctx context.Context, n *entity.Notice) error {
	if err := s.Notices.Archive(ctx, n.ID); err != nil {
		return fmt.Errorf("archive notice: %w", err)
	}
	n.Archive()
	return nil
}

// Delete removes a notice. Only its owner or a superuser may delete it.
func (s *Service) Delete(ctx context.Context, viewer *entity.User, noticeID int64) error {
	if noticeID <= 0 {
		return &entity.ValidationError{Field: "id", Message: "must be positive"}
	}
	n, err := s.Notices.Get(ctx, noticeID)
	if err != nil {
		return fmt.Errorf("get notice: %w", err)
	}
	if n == nil {
		return ErrNoticeNotFound
	}
	if n.UserID != viewer.ID && !viewer.IsSuperuser {
		return entity.ErrPermissionDenied
	}
	if err := s.Notices.Delete(ctx, noticeID); err != nil {
		return fmt.Errorf("delete notice: %w", err)
	}
	return nil
}
