package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/edulite/backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// store is the full surface both implementations provide
type store interface {
	domain.ProfileRepository
	domain.FriendshipRepository
	domain.FriendRequestRepository
	domain.ChatRepository
	domain.NotificationRepository
	NotificationPruner
	CreateProfile(ctx context.Context, p *domain.Profile) (*domain.Profile, error)
}

var (
	_ store = (*MemoryRepository)(nil)
	_ store = (*PostgresRepository)(nil)
)

// stores returns the implementations under test. PostgreSQL joins the set
// when TEST_DATABASE_URL points at a disposable database.
func stores(t *testing.T) map[string]store {
	t.Helper()
	out := map[string]store{"memory": NewMemoryRepository()}

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		return out
	}
	pool, err := pgxpool.New(context.Background(), url)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	repo := NewPostgresRepository(pool)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	out["postgres"] = repo
	return out
}

func newProfile(t *testing.T, s store, name string) *domain.Profile {
	t.Helper()
	p, err := s.CreateProfile(context.Background(), &domain.Profile{
		UserID:              uuid.New(),
		Username:            name + "-" + uuid.NewString()[:8],
		IsActive:            true,
		SearchVisibility:    domain.SearchEveryone,
		ProfileVisibility:   domain.ProfilePublic,
		AllowFriendRequests: true,
		AllowChatInvites:    true,
	})
	if err != nil {
		t.Fatalf("CreateProfile failed: %v", err)
	}
	return p
}

func TestProfileLookups(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p := newProfile(t, s, "lookup")

			byUser, err := s.GetProfileByUserID(ctx, p.UserID)
			if err != nil || byUser.ID != p.ID {
				t.Fatalf("GetProfileByUserID: got %v, %v", byUser, err)
			}
			if _, err := s.GetProfileByID(ctx, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}

			_, err = s.CreateProfile(ctx, &domain.Profile{
				UserID:            p.UserID,
				Username:          "dupe-" + uuid.NewString()[:8],
				SearchVisibility:  domain.SearchEveryone,
				ProfileVisibility: domain.ProfilePublic,
			})
			if !errors.Is(err, ErrProfileExists) {
				t.Errorf("expected ErrProfileExists, got %v", err)
			}

			found, err := s.SearchProfiles(ctx, p.Username[:10], 10, 0)
			if err != nil {
				t.Fatalf("SearchProfiles failed: %v", err)
			}
			if len(found) == 0 || found[0].ID != p.ID {
				t.Errorf("expected search to find %s, got %v", p.Username, found)
			}
			if skipped, _ := s.SearchProfiles(ctx, p.Username, 10, 1); len(skipped) != 0 {
				t.Errorf("expected offset past the only match to return nothing, got %v", skipped)
			}
		})
	}
}

func TestFriendshipEdges(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a, b, c := newProfile(t, s, "a"), newProfile(t, s, "b"), newProfile(t, s, "c")

			for _, pair := range [][2]*domain.Profile{{a, c}, {b, c}, {a, c}} {
				if err := s.AddFriendship(ctx, pair[0].ID, pair[1].ID); err != nil {
					t.Fatalf("AddFriendship failed: %v", err)
				}
			}

			if ok, _ := s.AreFriends(ctx, c.ID, a.ID); !ok {
				t.Error("expected reverse edge")
			}
			friends, _ := s.FriendsOf(ctx, c.ID)
			if len(friends) != 2 {
				t.Errorf("expected 2 friends, got %d", len(friends))
			}
			mutual, _ := s.MutualFriends(ctx, a.ID, b.ID)
			if len(mutual) != 1 || mutual[0] != c.ID {
				t.Errorf("expected c as mutual friend, got %v", mutual)
			}
		})
	}
}

func TestFriendRequestPairIsUnique(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a, b := newProfile(t, s, "a"), newProfile(t, s, "b")

			if _, err := s.CreateFriendRequest(ctx, domain.CreateFriendRequestParams{SenderProfileID: a.ID, ReceiverProfileID: b.ID}); err != nil {
				t.Fatalf("CreateFriendRequest failed: %v", err)
			}
			_, err := s.CreateFriendRequest(ctx, domain.CreateFriendRequestParams{SenderProfileID: b.ID, ReceiverProfileID: a.ID})
			if !errors.Is(err, domain.ErrDuplicateRequest) {
				t.Errorf("expected ErrDuplicateRequest for the reverse direction, got %v", err)
			}

			between, err := s.GetFriendRequestBetween(ctx, b.ID, a.ID)
			if err != nil || between.SenderProfileID != a.ID {
				t.Errorf("GetFriendRequestBetween: got %v, %v", between, err)
			}
		})
	}
}

func TestResolveFriendRequest(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a, b := newProfile(t, s, "a"), newProfile(t, s, "b")
			req, _ := s.CreateFriendRequest(ctx, domain.CreateFriendRequestParams{SenderProfileID: a.ID, ReceiverProfileID: b.ID})

			// A failing callback rolls everything back
			boom := errors.New("boom")
			_, err := s.ResolveFriendRequest(ctx, req.ID, func(ctx context.Context, r *domain.FriendRequest, tx domain.FriendshipRepository) error {
				if err := tx.AddFriendship(ctx, r.SenderProfileID, r.ReceiverProfileID); err != nil {
					return err
				}
				return boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("expected callback error, got %v", err)
			}
			if ok, _ := s.AreFriends(ctx, a.ID, b.ID); ok {
				t.Error("rolled back resolve left an edge behind")
			}
			if _, err := s.GetFriendRequestByID(ctx, req.ID); err != nil {
				t.Errorf("rolled back resolve removed the request: %v", err)
			}

			var (
				wg   sync.WaitGroup
				errs = make([]error, 4)
			)
			for i := range errs {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, errs[i] = s.ResolveFriendRequest(ctx, req.ID, func(ctx context.Context, r *domain.FriendRequest, tx domain.FriendshipRepository) error {
						return tx.AddFriendship(ctx, r.SenderProfileID, r.ReceiverProfileID)
					})
				}()
			}
			wg.Wait()

			won := 0
			for _, err := range errs {
				if err == nil {
					won++
				} else if !errors.Is(err, domain.ErrNotFound) {
					t.Errorf("unexpected error: %v", err)
				}
			}
			if won != 1 {
				t.Errorf("expected exactly one resolver to win, got %d", won)
			}
			if ok, _ := s.AreFriends(ctx, b.ID, a.ID); !ok {
				t.Error("expected friendship after resolve")
			}
		})
	}
}

func TestListMessagesKeyset(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sender := uuid.New()
			room, err := s.CreateRoom(ctx, domain.CreateRoomParams{
				Name:         "keyset",
				RoomType:     domain.RoomGroup,
				CreatorID:    sender,
				Participants: []uuid.UUID{sender},
			})
			if err != nil {
				t.Fatalf("CreateRoom failed: %v", err)
			}

			var msgs []*domain.Message
			for i := 0; i < 5; i++ {
				m, err := s.CreateMessage(ctx, domain.CreateMessageParams{ChatRoomID: room.ID, SenderID: sender, Content: "m"})
				if err != nil {
					t.Fatalf("CreateMessage failed: %v", err)
				}
				msgs = append(msgs, m)
			}

			all, _ := s.ListMessages(ctx, domain.PageQuery{ChatRoomID: room.ID, Limit: 10})
			if len(all) != 5 || all[0].ID != msgs[4].ID || all[4].ID != msgs[0].ID {
				t.Fatalf("expected newest first, got %v", all)
			}

			mid := domain.WatermarkOf(all[2])
			older, _ := s.ListMessages(ctx, domain.PageQuery{ChatRoomID: room.ID, After: &mid, Limit: 10})
			if len(older) != 2 || older[0].ID != all[3].ID {
				t.Errorf("expected the two older messages, got %v", older)
			}

			newer, _ := s.ListMessages(ctx, domain.PageQuery{ChatRoomID: room.ID, After: &mid, Reverse: true, Limit: 10})
			if len(newer) != 2 || newer[0].ID != all[1].ID {
				t.Errorf("expected the two newer messages oldest first, got %v", newer)
			}

			got, _ := s.GetRoomByID(ctx, room.ID)
			if !got.HasParticipant(sender) {
				t.Error("expected sender to be a participant")
			}
		})
	}
}

func newKeysetRoom(t *testing.T, s store, sender uuid.UUID) *domain.ChatRoom {
	t.Helper()
	room, err := s.CreateRoom(context.Background(), domain.CreateRoomParams{
		Name:         "keyset",
		RoomType:     domain.RoomGroup,
		CreatorID:    sender,
		Participants: []uuid.UUID{sender},
	})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	return room
}

func TestCreateMessageOrderUnderConcurrency(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sender := uuid.New()
			room := newKeysetRoom(t, s, sender)

			const writers, each = 8, 5
			var wg sync.WaitGroup
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < each; i++ {
						if _, err := s.CreateMessage(ctx, domain.CreateMessageParams{ChatRoomID: room.ID, SenderID: sender, Content: "m"}); err != nil {
							t.Errorf("CreateMessage failed: %v", err)
							return
						}
					}
				}()
			}
			wg.Wait()

			all, err := s.ListMessages(ctx, domain.PageQuery{ChatRoomID: room.ID, Limit: writers * each})
			if err != nil {
				t.Fatalf("ListMessages failed: %v", err)
			}
			if len(all) != writers*each {
				t.Fatalf("expected %d messages, got %d", writers*each, len(all))
			}
			// (created_at DESC, id DESC) must agree with id order alone
			for i := 1; i < len(all); i++ {
				if all[i].ID >= all[i-1].ID {
					t.Fatalf("message %d (%v) sorts after %d (%v)", all[i].ID, all[i].CreatedAt, all[i-1].ID, all[i-1].CreatedAt)
				}
			}
		})
	}
}

// seedTiedMessages inserts n messages sharing one created_at and returns their ids in insertion order
func seedTiedMessages(t *testing.T, s store, room *domain.ChatRoom, n int) []int64 {
	t.Helper()
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		switch repo := s.(type) {
		case *PostgresRepository:
			var id int64
			err := repo.db.QueryRow(ctx,
				`INSERT INTO messages (chat_room_id, sender_id, content, created_at) VALUES ($1, $2, 'tied', $3) RETURNING id`,
				room.ID, room.CreatorID, at,
			).Scan(&id)
			if err != nil {
				t.Fatalf("insert failed: %v", err)
			}
			ids = append(ids, id)
		default:
			m, err := s.CreateMessage(ctx, domain.CreateMessageParams{ChatRoomID: room.ID, SenderID: room.CreatorID, Content: "tied"})
			if err != nil {
				t.Fatalf("CreateMessage failed: %v", err)
			}
			ids = append(ids, m.ID)
		}
	}
	return ids
}

func TestListMessagesTiedTimestamps(t *testing.T) {
	all := stores(t)
	all["memory"] = NewMemoryRepository().WithClock(func() time.Time {
		return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	})

	for name, s := range all {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			room := newKeysetRoom(t, s, uuid.New())
			ids := seedTiedMessages(t, s, room, 10)

			var forward []int64
			var after *domain.Watermark
			for pages := 0; ; pages++ {
				if pages > len(ids) {
					t.Fatal("forward walk did not terminate")
				}
				page, err := s.ListMessages(ctx, domain.PageQuery{ChatRoomID: room.ID, After: after, Limit: 3})
				if err != nil {
					t.Fatalf("ListMessages failed: %v", err)
				}
				if len(page) == 0 {
					break
				}
				for _, m := range page {
					forward = append(forward, m.ID)
				}
				w := domain.WatermarkOf(page[len(page)-1])
				after = &w
			}
			if len(forward) != len(ids) {
				t.Fatalf("expected %d messages walking forward, got %d", len(ids), len(forward))
			}
			for i, id := range forward {
				if want := ids[len(ids)-1-i]; id != want {
					t.Fatalf("forward position %d: expected id %d, got %d", i, want, id)
				}
			}

			// Reverse from the oldest row returns everything newer, oldest first
			oldest, err := s.GetMessageByID(ctx, ids[0])
			if err != nil {
				t.Fatalf("GetMessageByID failed: %v", err)
			}
			var backward []int64
			w := domain.WatermarkOf(oldest)
			after = &w
			for pages := 0; ; pages++ {
				if pages > len(ids) {
					t.Fatal("reverse walk did not terminate")
				}
				page, err := s.ListMessages(ctx, domain.PageQuery{ChatRoomID: room.ID, After: after, Reverse: true, Limit: 3})
				if err != nil {
					t.Fatalf("ListMessages failed: %v", err)
				}
				if len(page) == 0 {
					break
				}
				for _, m := range page {
					backward = append(backward, m.ID)
				}
				w := domain.WatermarkOf(page[len(page)-1])
				after = &w
			}
			if fmt.Sprint(backward) != fmt.Sprint(ids[1:]) {
				t.Errorf("expected %v walking back, got %v", ids[1:], backward)
			}
		})
	}
}

func seedNotification(t *testing.T, s store, read bool) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	n, err := s.CreateNotification(ctx, domain.CreateNotificationParams{
		UserID: uuid.New(),
		Kind:   domain.NotificationFriendRequest,
		Title:  "New friend request",
	})
	if err != nil {
		t.Fatalf("CreateNotification failed: %v", err)
	}
	if read {
		if err := s.MarkNotificationRead(ctx, n.ID); err != nil {
			t.Fatalf("MarkNotificationRead failed: %v", err)
		}
	}
	return n.ID
}

func TestPruneReadNotifications(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			read := seedNotification(t, s, true)
			unread := seedNotification(t, s, false)

			// A past cutoff keeps everything
			if _, err := s.PruneReadNotifications(ctx, time.Now().Add(-time.Hour)); err != nil {
				t.Fatalf("PruneReadNotifications failed: %v", err)
			}
			if _, err := s.GetNotificationByID(ctx, read); err != nil {
				t.Errorf("expected recent read notification to survive, got %v", err)
			}

			n, err := s.PruneReadNotifications(ctx, time.Now().Add(time.Hour))
			if err != nil {
				t.Fatalf("PruneReadNotifications failed: %v", err)
			}
			if n < 1 {
				t.Errorf("expected at least one pruned row, got %d", n)
			}
			if _, err := s.GetNotificationByID(ctx, read); !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("expected read notification pruned, got %v", err)
			}
			if _, err := s.GetNotificationByID(ctx, unread); err != nil {
				t.Errorf("expected unread notification to survive, got %v", err)
			}
		})
	}
}
