package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"chat-app-be/internal/entity"
	"chat-app-be/internal/realtime"
	"chat-app-be/internal/repository/contract"
	"chat-app-be/internal/repository/specification"
	"chat-app-be/internal/repository/unitofwork"
	"chat-app-be/pkg/events"

	"github.com/google/uuid"
)

type fakeStore struct {
	users    *fakeUserRepo
	otps     *fakeOtpRepo
	presence *fakePresenceRepo
	messages *fakeMessageRepo

	commits int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    &fakeUserRepo{byID: map[uuid.UUID]*entity.User{}},
		otps:     &fakeOtpRepo{},
		presence: &fakePresenceRepo{byID: map[uuid.UUID]*entity.Presence{}},
		messages: &fakeMessageRepo{byID: map[uuid.UUID]*entity.Message{}},
	}
}

func (s *fakeStore) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUoW{store: s}
}

type fakeUoW struct {
	store *fakeStore
}

func (u *fakeUoW) Begin(ctx context.Context) error { return nil }
func (u *fakeUoW) Rollback() error                 { return nil }

func (u *fakeUoW) Commit() error {
	u.store.commits++
	return nil
}

func (u *fakeUoW) UserRepository() contract.UserRepository         { return u.store.users }
func (u *fakeUoW) OtpRepository() contract.OtpRepository           { return u.store.otps }
func (u *fakeUoW) PresenceRepository() contract.PresenceRepository { return u.store.presence }
func (u *fakeUoW) MessageRepository() contract.MessageRepository   { return u.store.messages }

type fakeUserRepo struct {
	byID      map[uuid.UUID]*entity.User
	updateErr error
}

func (r *fakeUserRepo) add(u *entity.User) *entity.User {
	if u.Id == uuid.Nil {
		u.Id = uuid.New()
	}
	if u.Role == "" {
		u.Role = entity.UserRoleUser
	}
	r.byID[u.Id] = u
	return u
}

func matchesUser(u *entity.User, specs []specification.Specification) bool {
	for _, s := range specs {
		switch sp := s.(type) {
		case specification.ByID:
			if u.Id != sp.ID {
				return false
			}
		case specification.ExcludeID:
			if u.Id == sp.ID {
				return false
			}
		case specification.ByEmail:
			if u.Email == nil || *u.Email != sp.Email {
				return false
			}
		case specification.ByMobile:
			if u.Mobile == nil || *u.Mobile != sp.Mobile {
				return false
			}
		}
	}
	return true
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.add(user)
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *entity.User) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	cp := *user
	r.byID[user.Id] = &cp
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.byID, id)
	return nil
}

func (r *fakeUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	all, _ := r.FindAll(ctx, specs...)
	if len(all) == 0 {
		return nil, nil
	}
	cp := *all[0]
	return &cp, nil
}

func (r *fakeUserRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.User, error) {
	var out []*entity.User
	for _, u := range r.byID {
		if matchesUser(u, specs) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeUserRepo) MarkVerified(ctx context.Context, id uuid.UUID) error {
	if u, ok := r.byID[id]; ok {
		u.IsVerified = true
	}
	return nil
}

type fakeOtpRepo struct {
	records []*entity.OTPVerification
}

func (r *fakeOtpRepo) Create(ctx context.Context, otp *entity.OTPVerification) error {
	otp.Id = uuid.New()
	r.records = append(r.records, otp)
	return nil
}

func (r *fakeOtpRepo) FindLatestActive(ctx context.Context, userID uuid.UUID, channel entity.OTPChannel, now time.Time) (*entity.OTPVerification, error) {
	var latest *entity.OTPVerification
	for _, o := range r.records {
		if o.UserId != userID || o.Channel != channel || o.IsUsed || !o.ExpiresAt.After(now) {
			continue
		}
		if latest == nil || !o.CreatedAt.Before(latest.CreatedAt) {
			latest = o
		}
	}
	return latest, nil
}

func (r *fakeOtpRepo) MarkUsed(ctx context.Context, id uuid.UUID) error {
	for _, o := range r.records {
		if o.Id == id {
			o.IsUsed = true
		}
	}
	return nil
}

type fakePresenceRepo struct {
	byID map[uuid.UUID]*entity.Presence
}

func (r *fakePresenceRepo) Upsert(ctx context.Context, p *entity.Presence) error {
	cp := *p
	r.byID[p.UserId] = &cp
	return nil
}

func (r *fakePresenceRepo) FindByUserIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.Presence, error) {
	out := make(map[uuid.UUID]*entity.Presence)
	for _, id := range ids {
		if p, ok := r.byID[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (r *fakePresenceRepo) FindOnline(ctx context.Context, excludeID uuid.UUID) ([]*entity.UserWithPresence, error) {
	return nil, nil
}

type fakeMessageRepo struct {
	byID      map[uuid.UUID]*entity.Message
	lastLimit int
}

func (r *fakeMessageRepo) add(m *entity.Message) *entity.Message {
	if m.Id == uuid.Nil {
		m.Id = uuid.New()
	}
	if m.Status == "" {
		m.Status = entity.MessageStatusSent
	}
	r.byID[m.Id] = m
	return m
}

func (r *fakeMessageRepo) Create(ctx context.Context, msg *entity.Message) error {
	r.add(msg)
	return nil
}

func (r *fakeMessageRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Message, error) {
	m, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMessageRepo) FindConversation(ctx context.Context, a, b uuid.UUID, limit int, before *time.Time) ([]*entity.Message, error) {
	r.lastLimit = limit
	return nil, nil
}

func (r *fakeMessageRepo) FindRecentChats(ctx context.Context, userID uuid.UUID) ([]*entity.RecentChat, error) {
	return nil, nil
}

func (r *fakeMessageRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.MessageStatus, at time.Time) (bool, error) {
	m, ok := r.byID[id]
	if !ok || !entity.CanTransition(m.Status, status) {
		return false, nil
	}
	m.Status = status
	return true, nil
}

func (r *fakeMessageRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.byID, id)
	return nil
}

type fakeEmail struct {
	mu   sync.Mutex
	sent map[string]string
}

func (f *fakeEmail) SendOTP(toEmail, otp string, ttlMinutes int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = map[string]string{}
	}
	f.sent[toEmail] = otp
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) snapshot() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

type fakeSender struct {
	calls []realtime.SendIntent
}

func (f *fakeSender) SendMessage(ctx context.Context, senderID uuid.UUID, in realtime.SendIntent) (*realtime.DeliveryResult, error) {
	f.calls = append(f.calls, in)
	msg := &entity.Message{
		Id:         uuid.New(),
		SenderId:   senderID,
		ReceiverId: in.ReceiverID,
		Body:       in.Body,
		Type:       in.Type,
		Status:     entity.MessageStatusSent,
		CreatedAt:  time.Now(),
	}
	return &realtime.DeliveryResult{Message: msg, Record: realtime.NewMessageRecord(msg), Delivered: true}, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls map[uuid.UUID][]realtime.StatusChangedPayload
}

func (f *fakeNotifier) NotifyStatus(senderID uuid.UUID, payload realtime.StatusChangedPayload) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[uuid.UUID][]realtime.StatusChangedPayload{}
	}
	f.calls[senderID] = append(f.calls[senderID], payload)
	return true
}

func (f *fakeNotifier) count(senderID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls[senderID])
}

func strPtr(s string) *string { return &s }
