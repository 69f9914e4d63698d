package memory

import (
	"context"
	"fmt"
	"sort"

	"notice-dispatch/internal/domain/entity"
	"notice-dispatch/internal/repository"
)

/* ──────────────────────────── users ──────────────────────────── */

type UserRepo Store

func (r *UserRepo) Get(_ context.Context, id int64) (*entity.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) ListByIDs(_ context.Context, ids []int64) ([]*entity.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.User, 0, len(ids))
	for _, id := range sortedKeys(s.users) {
		for _, want := range ids {
			if id == want {
				cp := *s.users[id]
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

func (r *UserRepo) ListIDs(_ context.Context, filter repository.UserFilter) ([]int64, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.users))
	for _, id := range sortedKeys(s.users) {
		u := s.users[id]
		if !filter.IncludeInactive && !u.IsActive {
			continue
		}
		if filter.SuperusersOnly && !u.IsSuperuser {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

/* ──────────────────────────── notice types ──────────────────────────── */

type NoticeTypeRepo Store

func (r *NoticeTypeRepo) Get(_ context.Context, id int64) (*entity.NoticeType, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	nt, ok := s.types[id]
	if !ok {
		return nil, nil
	}
	cp := *nt
	return &cp, nil
}

func (r *NoticeTypeRepo) GetByLabel(_ context.Context, label string) (*entity.NoticeType, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, nt := range s.types {
		if nt.Label == label {
			cp := *nt
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *NoticeTypeRepo) List(_ context.Context) ([]*entity.NoticeType, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.NoticeType, 0, len(s.types))
	for _, nt := range s.types {
		cp := *nt
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (r *NoticeTypeRepo) Create(_ context.Context, nt *entity.NoticeType) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.types {
		if existing.Label == nt.Label {
			return fmt.Errorf("Create: duplicate label %q", nt.Label)
		}
	}
	nt.ID = s.id()
	cp := *nt
	s.types[nt.ID] = &cp
	return nil
}

func (r *NoticeTypeRepo) Update(_ context.Context, nt *entity.NoticeType) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.types[nt.ID]; !ok {
		return fmt.Errorf("Update: %w", entity.ErrNotFound)
	}
	cp := *nt
	s.types[nt.ID] = &cp
	return nil
}

/* ──────────────────────────── settings ──────────────────────────── */

type NoticeSettingRepo Store

func (r *NoticeSettingRepo) GetOrCreate(_ context.Context, userID, noticeTypeID int64, medium string, defaultSend bool) (*entity.NoticeSetting, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	key := settingKey{userID: userID, typeID: noticeTypeID, medium: medium}
	ns, ok := s.settings[key]
	if !ok {
		ns = &entity.NoticeSetting{ID: s.id(), UserID: userID, NoticeTypeID: noticeTypeID, Medium: medium, Send: defaultSend}
		s.settings[key] = ns
	}
	cp := *ns
	return &cp, nil
}

func (r *NoticeSettingRepo) Update(_ context.Context, ns *entity.NoticeSetting) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.settings {
		if existing.ID == ns.ID {
			existing.Send = ns.Send
			return nil
		}
	}
	return fmt.Errorf("Update: %w", entity.ErrNotFound)
}

func (r *NoticeSettingRepo) ListForUser(_ context.Context, userID int64) ([]*entity.NoticeSetting, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.NoticeSetting, 0)
	for _, ns := range s.settings {
		if ns.UserID == userID {
			cp := *ns
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NoticeTypeID != out[j].NoticeTypeID {
			return out[i].NoticeTypeID < out[j].NoticeTypeID
		}
		return out[i].Medium < out[j].Medium
	})
	return out, nil
}

/* ──────────────────────────── notices ──────────────────────────── */

type NoticeRepo Store

func (r *NoticeRepo) Create(_ context.Context, n *entity.Notice) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = s.id()
	cp := *n
	s.notices[n.ID] = &cp
	return nil
}

func (r *NoticeRepo) Get(_ context.Context, id int64) (*entity.Notice, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notices[id]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (r *NoticeRepo) ListForUser(_ context.Context, userID int64, includeArchived bool) ([]*entity.Notice, error) {
	return (*Store)(r).listNotices(func(n *entity.Notice) bool {
		return n.UserID == userID && (includeArchived || !n.Archived)
	}), nil
}

func (r *NoticeRepo) ListAll(_ context.Context, includeArchived bool) ([]*entity.Notice, error) {
	return (*Store)(r).listNotices(func(n *entity.Notice) bool {
		return includeArchived || !n.Archived
	}), nil
}

func (s *Store) listNotices(keep func(*entity.Notice) bool) []*entity.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.Notice, 0)
	for _, n := range s.notices {
		if keep(n) {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Added.Equal(out[j].Added) {
			return out[i].Added.After(out[j].Added)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *NoticeRepo) CountUnseen(_ context.Context, userID int64) (int64, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, n := range s.notices {
		if n.UserID == userID && n.Unseen {
			count++
		}
	}
	return count, nil
}

func (r *NoticeRepo) MarkSeen(_ context.Context, id int64) (bool, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notices[id]
	if !ok || !n.Unseen {
		return false, nil
	}
	n.Unseen = false
	return true, nil
}

func (r *NoticeRepo) MarkAllSeen(_ context.Context, userID int64) (int64, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed int64
	for _, n := range s.notices {
		if n.UserID == userID && n.Unseen {
			n.Unseen = false
			changed++
		}
	}
	return changed, nil
}

func (r *NoticeRepo) Archive(_ context.Context, id int64) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notices[id]
	if !ok {
		return fmt.Errorf("Archive: %w", entity.ErrNotFound)
	}
	n.Archived = true
	return nil
}

func (r *NoticeRepo) Delete(_ context.Context, id int64) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notices[id]; !ok {
		return fmt.Errorf("Delete: %w", entity.ErrNotFound)
	}
	delete(s.notices, id)
	return nil
}

/* ──────────────────────────── queue batches ──────────────────────────── */

type QueueBatchRepo Store

func (r *QueueBatchRepo) Create(_ context.Context, b *entity.QueueBatch) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.id()
	cp := *b
	s.batches[b.ID] = &cp
	return nil
}

func (r *QueueBatchRepo) List(_ context.Context) ([]*entity.QueueBatch, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.QueueBatch, 0, len(s.batches))
	for _, id := range sortedKeys(s.batches) {
		cp := *s.batches[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *QueueBatchRepo) Delete(_ context.Context, id int64) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[id]; !ok {
		return fmt.Errorf("Delete: %w", entity.ErrNotFound)
	}
	delete(s.batches, id)
	return nil
}

/* ──────────────────────────── observations ──────────────────────────── */

type ObservationRepo Store

func (r *ObservationRepo) Create(_ context.Context, o *entity.Observation) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.observations {
		if existing.ContentType == o.ContentType && existing.ObjectID == o.ObjectID &&
			existing.ObserverID == o.ObserverID && existing.SignalName == o.SignalName {
			*o = *existing
			return nil
		}
	}
	o.ID = s.id()
	cp := *o
	s.observations[o.ID] = &cp
	return nil
}

func (r *ObservationRepo) Find(_ context.Context, contentType string, objectID, observerID int64, signal string) (*entity.Observation, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range sortedKeys(s.observations) {
		o := s.observations[id]
		if o.ContentType == contentType && o.ObjectID == objectID && o.ObserverID == observerID && o.SignalName == signal {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *ObservationRepo) ListFor(_ context.Context, contentType string, objectID int64, signal string) ([]*entity.Observation, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.Observation, 0)
	for _, id := range sortedKeys(s.observations) {
		o := s.observations[id]
		if o.ContentType == contentType && o.ObjectID == objectID && o.SignalName == signal {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Added.After(out[j].Added) })
	return out, nil
}

func (r *ObservationRepo) Delete(_ context.Context, id int64) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.observations[id]; !ok {
		return fmt.Errorf("Delete: %w", entity.ErrNotFound)
	}
	delete(s.observations, id)
	return nil
}
