package calendar

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rental-sync/backend/internal/storage/models"
)

func candidate(propertyID, uid, summary string, checkIn, checkOut models.Date) models.Reservation {
	return NewMapper("").ToCandidate(models.CalendarEvent{UID: uid, Summary: summary, Start: checkIn, End: checkOut}, propertyID)
}

func TestReconcile_InsertThenUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.addProperty(t, "Beach House", "", true)
	r := NewReconciler(env.reservations, zap.NewNop())

	first := []models.Reservation{
		candidate(p.ID, "uid-1", "Ann", models.NewDate(2024, 3, 15), models.NewDate(2024, 3, 18)),
		candidate(p.ID, "uid-2", "", models.NewDate(2024, 4, 1), models.NewDate(2024, 4, 5)),
	}
	res, err := r.Reconcile(ctx, p.ID, first)
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{Created: 2, Total: 2}, res)

	// Guest extends the stay and the name is fixed upstream.
	second := []models.Reservation{
		candidate(p.ID, "uid-1", "Ann Smith", models.NewDate(2024, 3, 15), models.NewDate(2024, 3, 19)),
		candidate(p.ID, "uid-2", "", models.NewDate(2024, 4, 1), models.NewDate(2024, 4, 5)),
	}
	res, err = r.Reconcile(ctx, p.ID, second)
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{Updated: 2, Total: 2}, res)

	got, err := env.reservations.GetByExternalID(ctx, p.ID, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "Ann Smith", got.GuestName)
	assert.Equal(t, "2024-03-19", got.CheckOut.String())
	assert.Equal(t, models.SourceICal, got.Source)
	assert.Equal(t, models.ReservationConfirmed, got.Status)

	placeholder, err := env.reservations.GetByExternalID(ctx, p.ID, "uid-2")
	require.NoError(t, err)
	assert.Equal(t, DefaultGuestName, placeholder.GuestName)

	n, err := env.reservations.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestReconcile_SkipsConflictsWithoutWriting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.addProperty(t, "Beach House", "", true)
	env.addManual(t, p.ID, models.NewDate(2024, 3, 10), models.NewDate(2024, 3, 16))
	r := NewReconciler(env.reservations, zap.NewNop())

	cands := []models.Reservation{
		candidate(p.ID, "overlap", "Ann", models.NewDate(2024, 3, 15), models.NewDate(2024, 3, 18)),
		candidate(p.ID, "after", "Bob", models.NewDate(2024, 3, 16), models.NewDate(2024, 3, 20)),
	}

	for i := 0; i < 2; i++ {
		res, err := r.Reconcile(ctx, p.ID, cands)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Skipped, "run %d", i)
		assert.Equal(t, 2, res.Total)
		assert.Equal(t, res.Total, res.Created+res.Updated+res.Skipped)
	}

	skipped, err := env.reservations.GetByExternalID(ctx, p.ID, "overlap")
	require.NoError(t, err)
	assert.Nil(t, skipped, "skipped candidates never get an external id attached")
}

func TestReconcile_DuplicateUIDInOneFeed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.addProperty(t, "Beach House", "", true)
	r := NewReconciler(env.reservations, zap.NewNop())

	res, err := r.Reconcile(ctx, p.ID, []models.Reservation{
		candidate(p.ID, "dup", "one", models.NewDate(2024, 3, 15), models.NewDate(2024, 3, 18)),
		candidate(p.ID, "dup", "two", models.NewDate(2024, 5, 1), models.NewDate(2024, 5, 3)),
	})
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{Created: 1, Updated: 1, Total: 2}, res)

	got, err := env.reservations.GetByExternalID(ctx, p.ID, "dup")
	require.NoError(t, err)
	assert.Equal(t, "two", got.GuestName)
}

func TestReconcile_SameUIDOnTwoProperties(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.addProperty(t, "A", "", true)
	b := env.addProperty(t, "B", "", true)
	r := NewReconciler(env.reservations, zap.NewNop())

	for _, p := range []*models.Property{a, b} {
		res, err := r.Reconcile(ctx, p.ID, []models.Reservation{
			candidate(p.ID, "shared", "Ann", models.NewDate(2024, 3, 15), models.NewDate(2024, 3, 18)),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Created)
	}
}

type mockReservationStore struct {
	mock.Mock
}

func (m *mockReservationStore) GetByExternalID(ctx context.Context, propertyID, externalID string) (*models.Reservation, error) {
	args := m.Called(ctx, propertyID, externalID)
	res, _ := args.Get(0).(*models.Reservation)
	return res, args.Error(1)
}

func (m *mockReservationStore) FindOverlapping(ctx context.Context, propertyID string, checkIn, checkOut models.Date) ([]models.Reservation, error) {
	args := m.Called(ctx, propertyID, checkIn, checkOut)
	res, _ := args.Get(0).([]models.Reservation)
	return res, args.Error(1)
}

func (m *mockReservationStore) Create(ctx context.Context, res *models.Reservation) error {
	return m.Called(ctx, res).Error(0)
}

func (m *mockReservationStore) UpdateFromFeed(ctx context.Context, res *models.Reservation) error {
	return m.Called(ctx, res).Error(0)
}

func TestReconcile_StoreErrorStopsWithPartialCounts(t *testing.T) {
	store := new(mockReservationStore)
	ctx := context.Background()

	store.On("GetByExternalID", ctx, "p1", mock.Anything).Return(nil, nil)
	store.On("FindOverlapping", ctx, "p1", mock.Anything, mock.Anything).Return([]models.Reservation{}, nil)
	store.On("Create", ctx, mock.MatchedBy(func(r *models.Reservation) bool { return *r.ExternalID == "a" })).Return(nil).Once()
	store.On("Create", ctx, mock.MatchedBy(func(r *models.Reservation) bool { return *r.ExternalID == "b" })).Return(assert.AnError).Once()

	r := NewReconciler(store, zap.NewNop())
	res, err := r.Reconcile(ctx, "p1", []models.Reservation{
		candidate("p1", "a", "", models.NewDate(2024, 3, 1), models.NewDate(2024, 3, 2)),
		candidate("p1", "b", "", models.NewDate(2024, 3, 5), models.NewDate(2024, 3, 6)),
		candidate("p1", "c", "", models.NewDate(2024, 3, 9), models.NewDate(2024, 3, 10)),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, ReconcileResult{Created: 1, Total: 1}, res)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "GetByExternalID", ctx, "p1", "c")
}

func TestMapper_ToCandidate(t *testing.T) {
	event := models.CalendarEvent{
		UID:     "abc@airbnb.com",
		Summary: "",
		Start:   models.NewDate(2024, 3, 15),
		End:     models.NewDate(2024, 3, 18),
	}

	got := NewMapper("Réservation Airbnb").ToCandidate(event, "p1")

	assert.Equal(t, "p1", got.PropertyID)
	assert.Equal(t, "Réservation Airbnb", got.GuestName)
	assert.Equal(t, models.SourceICal, got.Source)
	assert.Equal(t, models.ReservationConfirmed, got.Status)
	require.NotNil(t, got.ExternalID)
	assert.Equal(t, "abc@airbnb.com", *got.ExternalID)
	assert.True(t, got.CheckIn.Equal(event.Start))
	assert.True(t, got.CheckOut.Equal(event.End))

	event.Summary = "Ann"
	assert.Equal(t, "Ann", NewMapper("").ToCandidate(event, "p1").GuestName)
}
