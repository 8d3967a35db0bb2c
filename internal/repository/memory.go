package repository

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/edulite/backend/internal/domain"
	"github.com/google/uuid"
)

// ErrProfileExists is returned when an identity already owns a profile
var ErrProfileExists = errors.New("profile already exists for this user")

type pairKey [2]uuid.UUID

func pairOf(a, b uuid.UUID) pairKey {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return pairKey{a, b}
}

// MemoryRepository implements every domain repository in process memory.
// A single mutex serialises writers, which gives ResolveFriendRequest the same
// at-most-one guarantee as the row lock in PostgreSQL.
type MemoryRepository struct {
	mu sync.Mutex

	profiles map[uuid.UUID]*domain.Profile
	byUser   map[uuid.UUID]uuid.UUID
	friends  map[uuid.UUID]map[uuid.UUID]struct{}

	requests map[uuid.UUID]*domain.FriendRequest
	pairs    map[pairKey]uuid.UUID

	rooms       map[uuid.UUID]*domain.ChatRoom
	messages    map[int64]*domain.Message
	nextMessage int64
	lastCreated time.Time

	notifications map[uuid.UUID]*domain.Notification
	fcmTokens     map[uuid.UUID]map[string]struct{}

	now func() time.Time
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		profiles:      make(map[uuid.UUID]*domain.Profile),
		byUser:        make(map[uuid.UUID]uuid.UUID),
		friends:       make(map[uuid.UUID]map[uuid.UUID]struct{}),
		requests:      make(map[uuid.UUID]*domain.FriendRequest),
		pairs:         make(map[pairKey]uuid.UUID),
		rooms:         make(map[uuid.UUID]*domain.ChatRoom),
		messages:      make(map[int64]*domain.Message),
		notifications: make(map[uuid.UUID]*domain.Notification),
		fcmTokens:     make(map[uuid.UUID]map[string]struct{}),
		now:           time.Now,
	}
}

// WithClock replaces the time source; timestamps are truncated to microseconds
// like PostgreSQL's.
func (r *MemoryRepository) WithClock(now func() time.Time) *MemoryRepository {
	r.now = now
	return r
}

func (r *MemoryRepository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Microsecond)
}

// Ping always succeeds
func (r *MemoryRepository) Ping(ctx context.Context) error { return nil }

// Profiles

// CreateProfile stores a profile, assigning ids and timestamps when missing
func (r *MemoryRepository) CreateProfile(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *p
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	if cp.UserID == uuid.Nil {
		cp.UserID = uuid.New()
	}
	if cp.SearchVisibility == "" {
		cp.SearchVisibility = domain.SearchEveryone
	}
	if cp.ProfileVisibility == "" {
		cp.ProfileVisibility = domain.ProfilePublic
	}
	if _, taken := r.byUser[cp.UserID]; taken {
		return nil, ErrProfileExists
	}
	now := r.timestamp()
	cp.CreatedAt, cp.UpdatedAt = now, now

	r.profiles[cp.ID] = &cp
	r.byUser[cp.UserID] = cp.ID
	out := cp
	return &out, nil
}

func (r *MemoryRepository) GetProfileByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (r *MemoryRepository) GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byUser[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *r.profiles[id]
	return &out, nil
}

func (r *MemoryRepository) GetProfilesByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.Profile, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.profiles[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *MemoryRepository) SearchProfiles(ctx context.Context, query string, limit, offset int) ([]*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(query))
	out := []*domain.Profile{}
	for _, p := range r.profiles {
		if strings.Contains(strings.ToLower(p.Username), q) || strings.Contains(strings.ToLower(p.FullName), q) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if offset >= len(out) {
		return []*domain.Profile{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Friendships

func (r *MemoryRepository) AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.areFriends(a, b), nil
}

func (r *MemoryRepository) MutualFriends(ctx context.Context, a, b uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mutualFriends(a, b), nil
}

func (r *MemoryRepository) FriendsOf(ctx context.Context, profileID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.friendsOf(profileID), nil
}

func (r *MemoryRepository) AddFriendship(ctx context.Context, a, b uuid.UUID) error {
	if a == b {
		return domain.ErrSelfRequest
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addEdge(a, b)
	return nil
}

func (r *MemoryRepository) areFriends(a, b uuid.UUID) bool {
	_, ok := r.friends[a][b]
	return ok
}

func (r *MemoryRepository) mutualFriends(a, b uuid.UUID) []uuid.UUID {
	out := []uuid.UUID{}
	for id := range r.friends[a] {
		if id == a || id == b {
			continue
		}
		if _, ok := r.friends[b][id]; ok {
			out = append(out, id)
		}
	}
	sortIDs(out)
	return out
}

func (r *MemoryRepository) friendsOf(id uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(r.friends[id]))
	for f := range r.friends[id] {
		out = append(out, f)
	}
	sortIDs(out)
	return out
}

func (r *MemoryRepository) addEdge(a, b uuid.UUID) {
	if r.friends[a] == nil {
		r.friends[a] = make(map[uuid.UUID]struct{})
	}
	if r.friends[b] == nil {
		r.friends[b] = make(map[uuid.UUID]struct{})
	}
	r.friends[a][b] = struct{}{}
	r.friends[b][a] = struct{}{}
}

// Friend requests

func (r *MemoryRepository) CreateFriendRequest(ctx context.Context, params domain.CreateFriendRequestParams) (*domain.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairOf(params.SenderProfileID, params.ReceiverProfileID)
	if _, exists := r.pairs[key]; exists {
		return nil, domain.ErrDuplicateRequest
	}

	req := &domain.FriendRequest{
		ID:                uuid.New(),
		SenderProfileID:   params.SenderProfileID,
		ReceiverProfileID: params.ReceiverProfileID,
		Message:           params.Message,
		CreatedAt:         r.timestamp(),
	}
	r.requests[req.ID] = req
	r.pairs[key] = req.ID
	out := *req
	return &out, nil
}

func (r *MemoryRepository) GetFriendRequestByID(ctx context.Context, id uuid.UUID) (*domain.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *req
	return &out, nil
}

func (r *MemoryRepository) GetFriendRequestBetween(ctx context.Context, a, b uuid.UUID) (*domain.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.pairs[pairOf(a, b)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *r.requests[id]
	return &out, nil
}

func (r *MemoryRepository) ListIncomingFriendRequests(ctx context.Context, profileID uuid.UUID, limit, offset int) ([]*domain.FriendRequest, error) {
	return r.listRequests(func(req *domain.FriendRequest) bool { return req.ReceiverProfileID == profileID }, limit, offset), nil
}

func (r *MemoryRepository) ListOutgoingFriendRequests(ctx context.Context, profileID uuid.UUID, limit, offset int) ([]*domain.FriendRequest, error) {
	return r.listRequests(func(req *domain.FriendRequest) bool { return req.SenderProfileID == profileID }, limit, offset), nil
}

func (r *MemoryRepository) listRequests(match func(*domain.FriendRequest) bool, limit, offset int) []*domain.FriendRequest {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*domain.FriendRequest{}
	for _, req := range r.requests {
		if match(req) {
			cp := *req
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) > 0
	})
	return page(out, limit, offset)
}

// ResolveFriendRequest holds the repository lock for the whole transition.
// Edges added through the transaction view are applied only if fn succeeds.
func (r *MemoryRepository) ResolveFriendRequest(ctx context.Context, id uuid.UUID, fn domain.ResolveFunc) (*domain.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *req

	tx := &memoryTx{repo: r}
	if err := fn(ctx, &cp, tx); err != nil {
		return nil, err
	}
	for _, e := range tx.edges {
		r.addEdge(e[0], e[1])
	}
	delete(r.requests, id)
	delete(r.pairs, pairOf(req.SenderProfileID, req.ReceiverProfileID))
	return &cp, nil
}

// memoryTx is the FriendshipRepository handed to a ResolveFunc. The parent lock
// is already held.
type memoryTx struct {
	repo  *MemoryRepository
	edges [][2]uuid.UUID
}

func (t *memoryTx) AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error) {
	for _, e := range t.edges {
		if (e[0] == a && e[1] == b) || (e[0] == b && e[1] == a) {
			return true, nil
		}
	}
	return t.repo.areFriends(a, b), nil
}

func (t *memoryTx) MutualFriends(ctx context.Context, a, b uuid.UUID) ([]uuid.UUID, error) {
	return t.repo.mutualFriends(a, b), nil
}

func (t *memoryTx) FriendsOf(ctx context.Context, profileID uuid.UUID) ([]uuid.UUID, error) {
	return t.repo.friendsOf(profileID), nil
}

func (t *memoryTx) AddFriendship(ctx context.Context, a, b uuid.UUID) error {
	if a == b {
		return domain.ErrSelfRequest
	}
	t.edges = append(t.edges, [2]uuid.UUID{a, b})
	return nil
}

// Chat

func (r *MemoryRepository) CreateRoom(ctx context.Context, params domain.CreateRoomParams) (*domain.ChatRoom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.timestamp()
	room := &domain.ChatRoom{
		ID:           uuid.New(),
		Name:         params.Name,
		RoomType:     params.RoomType,
		CreatorID:    params.CreatorID,
		Participants: append([]uuid.UUID(nil), params.Participants...),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.rooms[room.ID] = room
	return copyRoom(room), nil
}

func (r *MemoryRepository) GetRoomByID(ctx context.Context, roomID uuid.UUID) (*domain.ChatRoom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyRoom(room), nil
}

func (r *MemoryRepository) GetRoomsByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.ChatRoom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*domain.ChatRoom{}
	for _, room := range r.rooms {
		if room.HasParticipant(userID) {
			out = append(out, copyRoom(room))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// CreateMessage assigns increasing ids and never lets created_at move backwards
func (r *MemoryRepository) CreateMessage(ctx context.Context, params domain.CreateMessageParams) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[params.ChatRoomID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	now := r.timestamp()
	if now.Before(r.lastCreated) {
		now = r.lastCreated
	}
	r.lastCreated = now
	r.nextMessage++

	msg := &domain.Message{
		ID:         r.nextMessage,
		ChatRoomID: params.ChatRoomID,
		SenderID:   params.SenderID,
		Content:    params.Content,
		CreatedAt:  now,
		IsRead:     params.IsRead,
	}
	r.messages[msg.ID] = msg
	room.UpdatedAt = now
	out := *msg
	return &out, nil
}

func (r *MemoryRepository) GetMessageByID(ctx context.Context, messageID int64) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, ok := r.messages[messageID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *msg
	return &out, nil
}

func (r *MemoryRepository) UpdateMessage(ctx context.Context, messageID int64, params domain.UpdateMessageParams) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, ok := r.messages[messageID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if params.Content != nil {
		msg.Content = *params.Content
	}
	if params.IsRead != nil {
		msg.IsRead = *params.IsRead
	}
	out := *msg
	return &out, nil
}

func (r *MemoryRepository) DeleteMessage(ctx context.Context, messageID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.messages[messageID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.messages, messageID)
	return nil
}

// ListMessages mirrors the keyset query of the PostgreSQL repository
func (r *MemoryRepository) ListMessages(ctx context.Context, q domain.PageQuery) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*domain.Message{}
	for _, m := range r.messages {
		if m.ChatRoomID != q.ChatRoomID {
			continue
		}
		if q.After != nil {
			pos := domain.WatermarkOf(m)
			if q.Reverse && !pos.Before(*q.After) {
				continue
			}
			if !q.Reverse && !q.After.Before(pos) {
				continue
			}
		}
		cp := *m
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		newer := domain.WatermarkOf(out[i]).Before(domain.WatermarkOf(out[j]))
		if q.Reverse {
			return !newer
		}
		return newer
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Notifications

func (r *MemoryRepository) CreateNotification(ctx context.Context, params domain.CreateNotificationParams) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := params.Data
	if data == nil {
		data = domain.Map{}
	}
	n := &domain.Notification{
		ID:        uuid.New(),
		UserID:    params.UserID,
		Kind:      params.Kind,
		Title:     params.Title,
		Body:      params.Body,
		Data:      data,
		CreatedAt: r.timestamp(),
	}
	r.notifications[n.ID] = n
	out := *n
	return &out, nil
}

func (r *MemoryRepository) GetNotificationByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notifications[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *n
	return &out, nil
}

func (r *MemoryRepository) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*domain.Notification{}
	for _, n := range r.notifications {
		if n.UserID == userID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (r *MemoryRepository) MarkNotificationRead(ctx context.Context, notificationID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notifications[notificationID]
	if !ok {
		return domain.ErrNotFound
	}
	n.IsRead = true
	return nil
}

func (r *MemoryRepository) PruneReadNotifications(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, notif := range r.notifications {
		if notif.IsRead && notif.CreatedAt.Before(cutoff) {
			delete(r.notifications, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) UpsertFCMToken(ctx context.Context, userID uuid.UUID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fcmTokens[userID] == nil {
		r.fcmTokens[userID] = make(map[string]struct{})
	}
	r.fcmTokens[userID][token] = struct{}{}
	return nil
}

func (r *MemoryRepository) GetFCMTokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.fcmTokens[userID]))
	for t := range r.fcmTokens[userID] {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

func (r *MemoryRepository) DeleteFCMToken(ctx context.Context, userID uuid.UUID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.fcmTokens[userID], token)
	return nil
}

func copyRoom(room *domain.ChatRoom) *domain.ChatRoom {
	cp := *room
	cp.Participants = append([]uuid.UUID(nil), room.Participants...)
	return &cp
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
