package notice

import (
	"context"
	"fmt"

	"notice-dispatch/internal/domain/entity"
	"notice-dispatch/internal/repository"
)

// Settings resolves per-user eligibility for a notice type on a medium.
type Settings struct {
	Repo repository.NoticeSettingRepository
}

// ShouldSend returns the stored setting for (user, type, medium). The first
// call for a triple stores the policy default, so later changes to the
// medium sensitivity or the type threshold do not affect it.
func (s *Settings) ShouldSend(ctx context.Context, user *entity.User, nt *entity.NoticeType, medium entity.Medium) (bool, error) {
	setting, err := s.Repo.GetOrCreate(ctx, user.ID, nt.ID, medium.Label, medium.DefaultSend(nt))
	if err != nil {
		return false, fmt.Errorf("resolve setting %s/%s: %w", nt.Label, medium.Label, err)
	}
	return setting.Send, nil
}

// SetSend records an explicit user choice for (user, type, medium).
func (s *Settings) SetSend(ctx context.Context, user *entity.User, nt *entity.NoticeType, medium entity.Medium, send bool) error {
	setting, err := s.Repo.GetOrCreate(ctx, user.ID, nt.ID, medium.Label, medium.DefaultSend(nt))
	if err != nil {
		return fmt.Errorf("resolve setting %s/%s: %w", nt.Label, medium.Label, err)
	}
	if setting.Send == send {
		return nil
	}
	setting.Send = send
	if err := s.Repo.Update(ctx, setting); err != nil {
		return fmt.Errorf("update setting: %w", err)
	}
	return nil
}
