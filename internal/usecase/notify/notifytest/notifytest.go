// Package notifytest provides an in-memory dispatch fixture for tests of
// packages built on notify.
package notifytest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"notice-dispatch/internal/domain/entity"
	"notice-dispatch/internal/infra/adapter/persistence/memory"
	"notice-dispatch/internal/infra/render"
	"notice-dispatch/internal/usecase/notice"
	"notice-dispatch/internal/usecase/notify"
)

// Backend records deliveries and fails or panics for chosen users.
type Backend struct {
	notify.BaseBackend

	mu         sync.Mutex
	deliveries []notify.Delivery
	// Journal, when set, receives "<medium>:<user id>" for every delivery.
	Journal *Journal

	FailFor  map[int64]error
	PanicFor map[int64]any
}

// NewBackend returns a recording backend that uses the stored settings.
func NewBackend(medium notify.Medium, settings *notice.Settings) *Backend {
	return &Backend{
		BaseBackend: notify.NewBaseBackend(medium, settings, notify.Site{Name: "example.com", Domain: "example.com"}),
		FailFor:     map[int64]error{},
		PanicFor:    map[int64]any{},
	}
}

// Deliver records d.
func (b *Backend) Deliver(_ context.Context, d notify.Delivery) error {
	if v, ok := b.PanicFor[d.Recipient.ID]; ok {
		panic(v)
	}
	if err, ok := b.FailFor[d.Recipient.ID]; ok {
		return err
	}
	b.mu.Lock()
	b.deliveries = append(b.deliveries, d)
	b.mu.Unlock()
	if b.Journal != nil {
		b.Journal.Add(fmt.Sprintf("%s:%d", b.Medium().Label, d.Recipient.ID))
	}
	return nil
}

// Deliveries returns a copy of what was delivered so far.
func (b *Backend) Deliveries() []notify.Delivery {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]notify.Delivery(nil), b.deliveries...)
}

// DeliveredTo returns the recipient IDs in delivery order.
func (b *Backend) DeliveredTo() []int64 {
	var ids []int64
	for _, d := range b.Deliveries() {
		ids = append(ids, d.Recipient.ID)
	}
	return ids
}

// Journal is an ordered, concurrency-safe event log.
type Journal struct {
	mu     sync.Mutex
	events []string
}

// Add appends an event.
func (j *Journal) Add(event string) {
	j.mu.Lock()
	j.events = append(j.events, event)
	j.mu.Unlock()
}

// Events returns a copy of the events.
func (j *Journal) Events() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

// Fixture bundles a memory store and a dispatcher over recording backends.
type Fixture struct {
	Store      *memory.Store
	Notices    *notice.Service
	Settings   *notice.Settings
	Dispatcher *notify.Dispatcher
	Backends   []*Backend
	Journal    *Journal
}

// New builds a fixture with one recording backend per medium label,
// all using the default spam sensitivity.
func New(t testing.TB, labels ...string) *Fixture {
	t.Helper()

	store := memory.NewStore()
	repos := store.Repositories()
	settings := &notice.Settings{Repo: repos.Settings}
	notices := &notice.Service{Types: repos.NoticeTypes, Notices: repos.Notices}

	catalog := render.NewCatalog(render.DefaultLocale)
	renderer, err := render.NewTemplateRenderer(catalog)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}

	journal := &Journal{}
	var backends []*Backend
	var registered []notify.Backend
	for i, label := range labels {
		b := NewBackend(notify.Medium{ID: i, Label: label, SpamSensitivity: entity.DefaultSpamSensitivity}, settings)
		b.Journal = journal
		backends = append(backends, b)
		registered = append(registered, b)
	}

	return &Fixture{
		Store:    store,
		Notices:  notices,
		Settings: settings,
		Dispatcher: &notify.Dispatcher{
			Registry: notify.NewRegistry(registered...),
			Notices:  notices,
			Batches:  repos.Batches,
			Renderer: renderer,
			Locales:  catalog,
			Site:     notify.Site{Name: "example.com", Domain: "example.com"},
			Now:      func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
		},
		Backends: backends,
		Journal:  journal,
	}
}

// NoticeType registers a type whose threshold admits the default sensitivity.
func (f *Fixture) NoticeType(t testing.TB, label string) *entity.NoticeType {
	t.Helper()
	nt, _, err := f.Notices.CreateNoticeType(context.Background(), notice.NoticeTypeInput{
		Label: label, Display: label, Description: label + " happened", Default: entity.DefaultSpamSensitivity,
	})
	if err != nil {
		t.Fatalf("create notice type: %v", err)
	}
	return nt
}

// User stores a user with an email address.
func (f *Fixture) User(name string) *entity.User {
	return f.Store.AddUser(&entity.User{Username: name, Email: name + "@example.com", IsActive: true})
}
