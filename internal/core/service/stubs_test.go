package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nearhelp/sos-engine/internal/core/domain"
	"github.com/nearhelp/sos-engine/internal/core/ports"
)

// --- users ---

type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
	err   error
}

func newStubUserRepo(users ...*domain.User) *stubUserRepo {
	r := &stubUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = cloneUser(u)
	}
	return r
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, cloneUser(u))
	}
	return out, nil
}

func (r *stubUserRepo) ApplyReputation(_ context.Context, userID string, d domain.ReputationDelta) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Apply(d)
	return cloneUser(u), nil
}

func (r *stubUserRepo) SetSuspended(_ context.Context, userID string, suspended bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Suspended = suspended
	return cloneUser(u), nil
}

func (r *stubUserRepo) Count(_ context.Context, suspendedOnly bool) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.users {
		if !suspendedOnly || u.Suspended {
			n++
		}
	}
	return n, nil
}

func (r *stubUserRepo) get(id string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneUser(r.users[id])
}

// --- incidents and log ---

// stubIncidentRepo mirrors the conditional semantics of the Mongo store.
type stubIncidentRepo struct {
	mu        sync.Mutex
	incidents map[string]*domain.Incident
	messages  map[string][]domain.Message

	findErr   error
	createErr error
	appendErr error
}

func newStubIncidentRepo() *stubIncidentRepo {
	return &stubIncidentRepo{
		incidents: make(map[string]*domain.Incident),
		messages:  make(map[string][]domain.Message),
	}
}

func cloneIncident(i *domain.Incident) *domain.Incident {
	c := *i
	c.Responders = append([]domain.Responder{}, i.Responders...)
	return &c
}

func (r *stubIncidentRepo) Create(_ context.Context, i *domain.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.incidents[i.ID] = cloneIncident(i)
	return nil
}

func (r *stubIncidentRepo) FindByID(_ context.Context, id string) (*domain.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	i, ok := r.incidents[id]
	if !ok {
		return nil, domain.ErrIncidentNotFound
	}
	return cloneIncident(i), nil
}

func (r *stubIncidentRepo) list(activeOnly bool) []*domain.Incident {
	out := []*domain.Incident{}
	for _, i := range r.incidents {
		if !activeOnly || !i.IsResolved() {
			out = append(out, cloneIncident(i))
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out
}

func (r *stubIncidentRepo) ListActive(_ context.Context) ([]*domain.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(true), nil
}

func (r *stubIncidentRepo) ListAll(_ context.Context) ([]*domain.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(false), nil
}

func (r *stubIncidentRepo) AddResponder(_ context.Context, id string, resp domain.Responder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.incidents[id]
	switch {
	case !ok:
		return domain.ErrIncidentNotFound
	case i.IsResolved():
		return domain.ErrIncidentResolved
	case i.HasResponder(resp.UserID):
		return domain.ErrAlreadyResponding
	}
	i.Responders = append(i.Responders, resp)
	return nil
}

func (r *stubIncidentRepo) SetResponderProgress(_ context.Context, id, userID string, p domain.Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.incidents[id]
	if !ok {
		return domain.ErrIncidentNotFound
	}
	return i.SetProgress(userID, p)
}

func (r *stubIncidentRepo) MarkResolved(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.incidents[id]
	if !ok {
		return domain.ErrIncidentNotFound
	}
	if i.IsResolved() {
		return domain.ErrIncidentResolved
	}
	i.Status = domain.StatusResolved
	i.ResolvedAt = &at
	return nil
}

func (r *stubIncidentRepo) MarkFlagged(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.incidents[id]
	if !ok {
		return domain.ErrIncidentNotFound
	}
	if i.FlaggedFalse {
		return domain.ErrAlreadyFlagged
	}
	i.FlaggedFalse = true
	return nil
}

func (r *stubIncidentRepo) Count(_ context.Context, f ports.IncidentCountFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, i := range r.incidents {
		if f.Status != "" && i.Status != f.Status {
			continue
		}
		if !f.CreatedSince.IsZero() && i.CreatedAt.Before(f.CreatedSince) {
			continue
		}
		n++
	}
	return n, nil
}

func (r *stubIncidentRepo) Append(_ context.Context, id string, m domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	i, ok := r.incidents[id]
	if !ok {
		return domain.ErrIncidentNotFound
	}
	if i.IsResolved() {
		return domain.ErrIncidentResolved
	}
	r.messages[id] = append(r.messages[id], m)
	return nil
}

func (r *stubIncidentRepo) History(_ context.Context, id string) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.incidents[id]; !ok {
		return nil, domain.ErrIncidentNotFound
	}
	return append([]domain.Message{}, r.messages[id]...), nil
}

func (r *stubIncidentRepo) get(id string) *domain.Incident {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneIncident(r.incidents[id])
}

// --- proximity ---

// stubProximity answers from the user repo's stored locations with the
// haversine distance.
type stubProximity struct {
	users     *stubUserRepo
	incidents *stubIncidentRepo
	err       error
}

func (p *stubProximity) NearbyUsers(_ context.Context, at domain.Point, radius float64, excludeID string) ([]domain.NearbyUser, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.users.mu.Lock()
	defer p.users.mu.Unlock()
	out := []domain.NearbyUser{}
	for _, u := range p.users.users {
		if u.Suspended || u.Location == nil || u.ID == excludeID {
			continue
		}
		d := domain.DistanceMeters(at, *u.Location)
		if d <= radius {
			out = append(out, domain.NearbyUser{PublicProfile: u.Profile(), DistanceMeters: d})
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].DistanceMeters < out[b].DistanceMeters })
	return out, nil
}

func (p *stubProximity) NearbyIncidents(_ context.Context, at domain.Point, radius float64) ([]domain.NearbyIncident, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.incidents.mu.Lock()
	defer p.incidents.mu.Unlock()
	out := []domain.NearbyIncident{}
	for _, i := range p.incidents.incidents {
		if i.IsResolved() {
			continue
		}
		d := domain.DistanceMeters(at, i.Origin)
		if d <= radius {
			out = append(out, domain.NearbyIncident{IncidentSummary: i.Summary(), DistanceMeters: d})
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].DistanceMeters < out[b].DistanceMeters })
	return out, nil
}

func (p *stubProximity) UpdateUserLocation(_ context.Context, userID string, at domain.Point) error {
	p.users.mu.Lock()
	defer p.users.mu.Unlock()
	u, ok := p.users.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	loc := at
	u.Location = &loc
	return nil
}

// --- tx and hub ---

type stubTx struct{ calls int }

func (t *stubTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

type published struct {
	Room      string
	Broadcast bool
	Event     domain.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(room string, ev domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{Room: room, Event: ev})
}

func (p *recordingPublisher) Broadcast(ev domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{Broadcast: true, Event: ev})
}

func (p *recordingPublisher) snapshot() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published{}, p.events...)
}

func (p *recordingPublisher) named(name domain.EventName) []published {
	var out []published
	for _, e := range p.snapshot() {
		if e.Event.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

// --- fixtures ---

func newUser(id string, loc *domain.Point) *domain.User {
	return &domain.User{
		ID:         id,
		Name:       "user " + id,
		Email:      id + "@example.com",
		Role:       domain.RoleUser,
		Skills:     []domain.Skill{},
		Location:   loc,
		TrustScore: domain.InitialTrustScore,
	}
}

func pt(lat, lng float64) *domain.Point {
	return &domain.Point{Lat: lat, Lng: lng}
}
