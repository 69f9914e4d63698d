// Package memory provides in-process repository implementations for local
// development and tests. A single Store backs every repository so that
// user deletion is visible to the queue drain the way a foreign key would be.
package memory

import (
	"sort"
	"sync"

	"notice-dispatch/internal/domain/entity"
	"notice-dispatch/internal/repository"
)

type settingKey struct {
	userID, typeID int64
	medium         string
}

// Store holds every table under one mutex.
type Store struct {
	mu sync.Mutex

	nextID       int64
	users        map[int64]*entity.User
	types        map[int64]*entity.NoticeType
	settings     map[settingKey]*entity.NoticeSetting
	notices      map[int64]*entity.Notice
	batches      map[int64]*entity.QueueBatch
	observations map[int64]*entity.Observation
}

func NewStore() *Store {
	return &Store{
		users:        map[int64]*entity.User{},
		types:        map[int64]*entity.NoticeType{},
		settings:     map[settingKey]*entity.NoticeSetting{},
		notices:      map[int64]*entity.Notice{},
		batches:      map[int64]*entity.QueueBatch{},
		observations: map[int64]*entity.Observation{},
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// Repositories returns the repository set backed by this store.
func (s *Store) Repositories() repository.Set {
	return repository.Set{
		Users:        (*UserRepo)(s),
		NoticeTypes:  (*NoticeTypeRepo)(s),
		Settings:     (*NoticeSettingRepo)(s),
		Notices:      (*NoticeRepo)(s),
		Batches:      (*QueueBatchRepo)(s),
		Observations: (*ObservationRepo)(s),
	}
}

// AddUser stores a copy of u and assigns its ID.
func (s *Store) AddUser(u *entity.User) *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.id()
	cp := *u
	s.users[u.ID] = &cp
	return u
}

// DeleteUser removes a user and cascades to the rows that reference it.
func (s *Store) DeleteUser(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	for k := range s.settings {
		if k.userID == id {
			delete(s.settings, k)
		}
	}
	for nid, n := range s.notices {
		if n.UserID == id {
			delete(s.notices, nid)
		} else if n.SenderID != nil && *n.SenderID == id {
			n.SenderID = nil
		}
	}
	for oid, o := range s.observations {
		if o.ObserverID == id {
			delete(s.observations, oid)
		}
	}
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
