package deliveries

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ponyxpress/ponyxpress/internal/models"
	"github.com/ponyxpress/ponyxpress/internal/photostore"
	"github.com/ponyxpress/ponyxpress/internal/services/stops"
	"github.com/stretchr/testify/require"
)

type memScans struct {
	mu   sync.Mutex
	rows []*models.ScanEvent
}

func (m *memScans) InsertScan(_ context.Context, in models.ScanCreateInput) (*models.ScanEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev := &models.ScanEvent{
		ID: int64(len(m.rows) + 1), CarrierID: in.CarrierID, Barcode: in.Barcode, SizeClass: in.SizeClass,
		Latitude: in.Latitude, Longitude: in.Longitude, PhotoRef: in.PhotoRef, ScannedAt: in.ScannedAt,
	}
	m.rows = append(m.rows, ev)
	return ev, nil
}

type stopKey struct {
	carrier  int64
	lat, lng float64
}

// memStops follows the storage upsert: one row per key, nil photo keeps the old one.
type memStops struct {
	mu   sync.Mutex
	rows map[stopKey]*models.MailboxStop
}

func (m *memStops) UpsertStop(_ context.Context, carrierID int64, lat, lng float64, photoRef *string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rows == nil {
		m.rows = map[stopKey]*models.MailboxStop{}
	}
	k := stopKey{carrierID, lat, lng}
	if st, ok := m.rows[k]; ok {
		if photoRef != nil {
			st.PhotoRef = photoRef
		}
		return st.ID, false, nil
	}
	st := &models.MailboxStop{ID: int64(len(m.rows) + 1), CarrierID: carrierID, Latitude: lat, Longitude: lng, PhotoRef: photoRef}
	m.rows[k] = st
	return st.ID, true, nil
}

func (m *memStops) ListStops(_ context.Context, carrierID *int64) ([]*models.MailboxStop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.MailboxStop
	for _, st := range m.rows {
		if carrierID == nil || st.CarrierID == *carrierID {
			out = append(out, st)
		}
	}
	return out, nil
}

func jpeg(seed byte) []byte {
	return append([]byte{0xFF, 0xD8, 0xFF, 0xE0, seed}, make([]byte, 16)...)
}

func TestRecorder_MailboxScenario(t *testing.T) {
	ps, err := photostore.New(t.TempDir(), 0)
	require.NoError(t, err)
	scans := &memScans{}
	stopRepo := &memStops{}
	reg := stops.New(stopRepo)
	r := New(scans, reg, ps)
	ctx := context.Background()

	carrier1 := &models.Account{ID: 1, Username: "carrier1", Role: models.RoleCarrier, Active: true}
	lat, lng := 40.0, -74.0

	// первый скан: маленькая посылка с фото p1
	res, err := r.RecordScan(ctx, carrier1, 1, ScanInput{Barcode: "ABC123", SizeClass: "small", Latitude: &lat, Longitude: &lng, Photo: jpeg(1)})
	require.NoError(t, err)
	require.True(t, res.AutoStopCreated)
	require.NotNil(t, res.Event.PhotoRef)
	p1 := *res.Event.PhotoRef
	require.True(t, ps.Exists(p1))

	// второй скан в той же точке с фото p2: остановка та же, фото обновлено
	res2, err := r.RecordScan(ctx, carrier1, 1, ScanInput{Barcode: "DEF456", SizeClass: "small", Latitude: &lat, Longitude: &lng, Photo: jpeg(2)})
	require.NoError(t, err)
	require.False(t, res2.AutoStopCreated)
	require.Equal(t, *res.StopID, *res2.StopID)
	p2 := *res2.Event.PhotoRef
	require.NotEqual(t, p1, p2)

	// третий скан без фото: фото остановки не затирается
	_, err = r.RecordScan(ctx, carrier1, 1, ScanInput{Barcode: "GHI789", SizeClass: "small", Latitude: &lat, Longitude: &lng})
	require.NoError(t, err)

	list, err := reg.List(ctx, carrier1, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, p2, *list[0].PhotoRef)

	// большая посылка: только скан
	_, err = r.RecordScan(ctx, carrier1, 1, ScanInput{Barcode: "BIG1", SizeClass: "big", Latitude: &lat, Longitude: &lng})
	require.NoError(t, err)
	require.Len(t, scans.rows, 4)
	require.Len(t, stopRepo.rows, 1)
}

func TestRecorder_ConcurrentSmallScansOneStop(t *testing.T) {
	scans := &memScans{}
	stopRepo := &memStops{}
	r := New(scans, stops.New(stopRepo), nil)
	r.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	carrier := &models.Account{ID: 3, Role: models.RoleCarrier, Active: true}
	lat, lng := 45.0, -93.0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.RecordScan(context.Background(), carrier, 3, ScanInput{Barcode: "P", SizeClass: "small", Latitude: &lat, Longitude: &lng})
		}()
	}
	wg.Wait()

	require.Len(t, scans.rows, 20)
	require.Len(t, stopRepo.rows, 1)
}
