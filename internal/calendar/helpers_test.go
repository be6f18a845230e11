package calendar

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rental-sync/backend/internal/lease"
	"github.com/rental-sync/backend/internal/storage"
	"github.com/rental-sync/backend/internal/storage/models"
)

type testEnv struct {
	db           *storage.DB
	properties   *storage.PropertyRepository
	reservations *storage.ReservationRepository
	runs         *storage.SyncRunRepository
	locker       *lease.SQLLocker
	feeds        *feedServer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := storage.NewDB(storage.DriverSQLite, filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.RunMigrations(db, zap.NewNop()))

	feeds := newFeedServer()
	t.Cleanup(feeds.Close)

	return &testEnv{
		db:           db,
		properties:   storage.NewPropertyRepository(db),
		reservations: storage.NewReservationRepository(db),
		runs:         storage.NewSyncRunRepository(db),
		locker:       lease.NewSQLLocker(storage.NewLeaseRepository(db)),
		feeds:        feeds,
	}
}

func (e *testEnv) syncService(publisher EventPublisher) *SyncService {
	fetcher := NewFetcher(5*time.Second, 0, nil, zap.NewNop())
	return NewSyncService(e.properties, e.reservations, fetcher, e.locker, SyncOptions{
		LeaseTTL:  time.Minute,
		Publisher: publisher,
	}, zap.NewNop())
}

func (e *testEnv) triggers(publisher EventPublisher) *Triggers {
	return NewTriggers(e.syncService(publisher), NewRunLogger(e.runs, nil, publisher, zap.NewNop()))
}

func (e *testEnv) addProperty(t *testing.T, name, feedPath string, enabled bool) *models.Property {
	t.Helper()
	p := &models.Property{Name: name, SyncEnabled: enabled}
	if feedPath != "" {
		p.FeedURL = e.feeds.URL + feedPath
	}
	require.NoError(t, e.properties.Create(context.Background(), p))
	return p
}

func (e *testEnv) addManual(t *testing.T, propertyID string, checkIn, checkOut models.Date) *models.Reservation {
	t.Helper()
	r := &models.Reservation{
		PropertyID: propertyID,
		GuestName:  "Walk-in",
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Source:     models.SourceManual,
	}
	require.NoError(t, e.reservations.Create(context.Background(), r))
	return r
}

// feedServer serves canned feeds by path; unknown paths return 404.
type feedServer struct {
	*httptest.Server
	mu     sync.Mutex
	bodies map[string]string
	status map[string]int
}

func newFeedServer() *feedServer {
	fs := &feedServer{bodies: map[string]string{}, status: map[string]int{}}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		body, ok := fs.bodies[r.URL.Path]
		code := fs.status[r.URL.Path]
		fs.mu.Unlock()

		if code != 0 {
			w.WriteHeader(code)
			return
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Write([]byte(body))
	}))
	return fs
}

func (fs *feedServer) set(path, body string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.bodies[path] = body
	delete(fs.status, path)
}

func (fs *feedServer) fail(path string, code int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.status[path] = code
}

type stay struct {
	uid, summary, start, end string
}

func icsFeed(stays ...stay) string {
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//Airbnb Inc//Hosting Calendar 1.0//EN\r\n")
	for _, s := range stays {
		b.WriteString("BEGIN:VEVENT\r\n")
		fmt.Fprintf(&b, "DTSTART;VALUE=DATE:%s\r\n", s.start)
		fmt.Fprintf(&b, "DTEND;VALUE=DATE:%s\r\n", s.end)
		if s.summary != "" {
			fmt.Fprintf(&b, "SUMMARY:%s\r\n", s.summary)
		}
		fmt.Fprintf(&b, "UID:%s\r\n", s.uid)
		b.WriteString("END:VEVENT\r\n")
	}
	b.WriteString("END:VCALENDAR\r\n")
	return b.String()
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu       sync.Mutex
	started  []models.SyncRun
	finished []models.SyncRun
	failed   []models.PropertySyncResult
}

func (p *recordingPublisher) RunStarted(run models.SyncRun) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, run)
}

func (p *recordingPublisher) RunFinished(run models.SyncRun) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished = append(p.finished, run)
}

func (p *recordingPublisher) PropertySyncFailed(_ string, result models.PropertySyncResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, result)
}
