package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"CampusNotify/internal/apperr"
	"CampusNotify/internal/auth"
	"CampusNotify/internal/recipient"
)

var (
	clock   = time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	student = auth.Identity{UserID: "stu-1", Role: recipient.RoleStudent}
)

func newTestService(store Store) *Service {
	s := NewService(store, zap.NewNop())
	s.now = func() time.Time { return clock }
	return s
}

func seed(t *testing.T, store *memStore, n Notification) *Notification {
	t.Helper()
	if n.Status == "" {
		n.Status = StatusSent
	}
	require.NoError(t, store.Insert(context.Background(), &n))
	return &n
}

func TestListMineExcludesExpiredButListForUserKeepsThem(t *testing.T) {
	store := newMemStore()
	past, future := clock.Add(-time.Hour), clock.Add(time.Hour)
	seed(t, store, Notification{RecipientID: "stu-1", Type: "a", SentAt: clock.Add(-3 * time.Hour)})
	seed(t, store, Notification{RecipientID: "stu-1", Type: "b", SentAt: clock.Add(-2 * time.Hour), ExpiresAt: &past})
	seed(t, store, Notification{RecipientID: "stu-1", Type: "c", SentAt: clock.Add(-1 * time.Hour), ExpiresAt: &future})
	seed(t, store, Notification{RecipientID: "stu-2", Type: "d", SentAt: clock})
	svc := newTestService(store)

	mine, err := svc.ListMine(context.Background(), student)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "c", mine[0].Type)
	assert.Equal(t, "a", mine[1].Type)

	all, err := svc.ListForUser(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestListAllFilters(t *testing.T) {
	store := newMemStore()
	seed(t, store, Notification{RecipientID: "s1", Type: "fee-reminder", Semester: 2, SentAt: clock})
	seed(t, store, Notification{RecipientID: "s2", Type: "fee-reminder", Semester: 4, SentAt: clock})
	seed(t, store, Notification{RecipientID: "s3", Type: "exam", Semester: 2, SentAt: clock})
	svc := newTestService(store)

	ns, err := svc.ListAll(context.Background(), ListFilter{Type: "fee-reminder", Semester: 2})
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, "s1", ns[0].RecipientID)

	_, err = svc.ListAll(context.Background(), ListFilter{Status: "archived"})
	var ve *apperr.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestMarkReadIsIdempotentAndTerminal(t *testing.T) {
	store := newMemStore()
	expired := clock.Add(-time.Minute)
	n := seed(t, store, Notification{RecipientID: "stu-1", SentAt: clock.Add(-time.Hour), ExpiresAt: &expired})
	svc := newTestService(store)

	read, err := svc.MarkRead(context.Background(), student, n.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, StatusRead, read.Status)
	require.NotNil(t, read.ReadAt)
	assert.Equal(t, clock, *read.ReadAt)

	svc.now = func() time.Time { return clock.Add(time.Minute) }
	again, err := svc.MarkRead(context.Background(), student, n.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, StatusRead, again.Status)
	assert.Equal(t, clock.Add(time.Minute), *again.ReadAt)
	assert.Equal(t, n.SentAt, again.SentAt)
}

func TestMarkReadAndDeleteMissing(t *testing.T) {
	svc := newTestService(newMemStore())

	_, err := svc.MarkRead(context.Background(), student, primitive.NewObjectID().Hex())
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	err = svc.Delete(context.Background(), student, "not-an-object-id")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestDeleteThenFetchIsNotFound(t *testing.T) {
	store := newMemStore()
	n := seed(t, store, Notification{RecipientID: "stu-1", SentAt: clock})
	svc := newTestService(store)

	require.NoError(t, svc.Delete(context.Background(), student, n.ID.Hex()))
	_, err := store.FindByID(context.Background(), n.ID.Hex())
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	err = svc.Delete(context.Background(), student, n.ID.Hex())
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestOnlyOwnerOrAdminMayMutate(t *testing.T) {
	store := newMemStore()
	n := seed(t, store, Notification{RecipientID: "stu-2", SentAt: clock})
	svc := newTestService(store)

	_, err := svc.MarkRead(context.Background(), student, n.ID.Hex())
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
	err = svc.Delete(context.Background(), student, n.ID.Hex())
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	admin := auth.Identity{UserID: "adm", Role: recipient.RoleAdmin}
	_, err = svc.MarkRead(context.Background(), admin, n.ID.Hex())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), admin, n.ID.Hex()))
}

func TestStatsGroupsByTypeThenStatus(t *testing.T) {
	store := newMemStore()
	seed(t, store, Notification{RecipientID: "a", Type: "fee-reminder", SentAt: clock})
	seed(t, store, Notification{RecipientID: "b", Type: "fee-reminder", SentAt: clock})
	seed(t, store, Notification{RecipientID: "c", Type: "fee-reminder", Status: StatusRead, SentAt: clock})
	svc := newTestService(store)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []TypeStats{{
		Type: "fee-reminder",
		Statuses: []StatusCount{
			{Status: StatusSent, Count: 2},
			{Status: StatusRead, Count: 1},
		},
	}}, stats)
}

func TestRegroupStatsKeepsFirstSeenOrder(t *testing.T) {
	assert.Equal(t, []TypeStats{}, regroupStats(nil))
	got := regroupStats([]CountRow{
		{Type: "exam", Status: StatusRead, Count: 4},
		{Type: "fee", Status: StatusSent, Count: 1},
		{Type: "exam", Status: StatusSent, Count: 2},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "exam", got[0].Type)
	assert.Equal(t, []StatusCount{{StatusRead, 4}, {StatusSent, 2}}, got[0].Statuses)
	assert.Equal(t, "fee", got[1].Type)
}

func TestRecipientFilterAddsExpiryClauseOnlyWhenActive(t *testing.T) {
	assert.Equal(t, bson.M{"recipientId": "u"}, recipientFilter("u", nil))

	f := recipientFilter("u", &clock)
	or, ok := f["$or"].(bson.A)
	require.True(t, ok)
	assert.Len(t, or, 3)
	assert.Equal(t, bson.M{"expiresAt": bson.M{"$gt": clock}}, or[2])
}

func TestListFilterToBSON(t *testing.T) {
	assert.Equal(t, bson.M{}, ListFilter{}.toBSON())
	assert.Equal(t,
		bson.M{"status": StatusRead, "course": "BBA", "academicYear": "2024-2025"},
		ListFilter{Status: StatusRead, Course: "BBA", AcademicYear: "2024-2025"}.toBSON(),
	)
}
