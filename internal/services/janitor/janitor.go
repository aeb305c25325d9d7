package janitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

type Repository interface {
	PhotoRefs(ctx context.Context) (map[string]struct{}, error)
}

type PhotoStore interface {
	Walk(fn func(ref string, modTime time.Time) error) error
	RemoveIfOlder(ref string, cutoff time.Time) (bool, error)
	Exists(ref string) bool
}

// Janitor periodically sweeps the photo directory: files no row points to
// are removed once older than maxAge, rows pointing to missing files are
// counted.
type Janitor struct {
	repo   Repository
	photos PhotoStore

	interval    time.Duration
	maxAge      time.Duration
	concurrency int

	now func() time.Time

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	cycles              atomic.Int64
	totalScanned        atomic.Int64
	totalRemoved        atomic.Int64
	totalErrors         atomic.Int64
	dangling            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(repo Repository, photos PhotoStore) *Janitor {
	return &Janitor{
		repo:              repo,
		photos:            photos,
		interval:          time.Hour,
		maxAge:            30 * 24 * time.Hour,
		concurrency:       4,
		now:               time.Now,
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (j *Janitor) WithSettings(interval, maxAge time.Duration, concurrency int) *Janitor {
	if interval > 0 {
		j.interval = interval
	}
	if maxAge > 0 {
		j.maxAge = maxAge
	}
	if concurrency > 0 {
		j.concurrency = concurrency
	}
	return j
}

// Trigger forces an immediate sweep (best-effort, non-blocking).
func (j *Janitor) Trigger() {
	j.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case j.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt     time.Time  `json:"startedAt"`
	LastCycleAt   *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt *time.Time `json:"lastTriggerAt,omitempty"`
	Cycles        int64      `json:"cycles"`
	TotalScanned  int64      `json:"totalScanned"`
	TotalRemoved  int64      `json:"totalRemoved"`
	TotalErrors   int64      `json:"totalErrors"`
	Dangling      int64      `json:"dangling"`
	LastError     string     `json:"lastError,omitempty"`
}

func (j *Janitor) Stats() Stats {
	st := Stats{
		StartedAt:    time.Unix(0, j.startedAtUnixNano).UTC(),
		Cycles:       j.cycles.Load(),
		TotalScanned: j.totalScanned.Load(),
		TotalRemoved: j.totalRemoved.Load(),
		TotalErrors:  j.totalErrors.Load(),
		Dangling:     j.dangling.Load(),
	}
	if n := j.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := j.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	j.lastErrorMu.Lock()
	st.LastError = j.lastError
	j.lastErrorMu.Unlock()
	return st
}

func (j *Janitor) Run(ctx context.Context) error {
	t := time.NewTicker(j.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			j.runOnce(ctx)
		case <-j.triggerCh:
			j.runOnce(ctx)
		}
	}
}

func (j *Janitor) setLastError(err error) {
	j.totalErrors.Add(1)
	j.lastErrorMu.Lock()
	j.lastError = err.Error()
	j.lastErrorMu.Unlock()
}

func (j *Janitor) runOnce(ctx context.Context) {
	now := j.now().UTC()
	j.lastCycleUnixNano.Store(now.UnixNano())
	j.cycles.Add(1)

	// Сначала обходим диск, потом читаем ссылки: новый файл, записанный
	// между этими шагами, слишком свежий. Повторно загруженный старый файл
	// получает свежий mtime, его отсеивает RemoveIfOlder.
	cutoff := now.Add(-j.maxAge)
	var stale []string
	scanned := 0
	err := j.photos.Walk(func(ref string, modTime time.Time) error {
		scanned++
		if modTime.Before(cutoff) {
			stale = append(stale, ref)
		}
		return ctx.Err()
	})
	j.totalScanned.Add(int64(scanned))
	if err != nil {
		slog.Error("janitor: walk photos", "error", err.Error())
		j.setLastError(errors.Wrap(err, "walk photos"))
		return
	}

	refs, err := j.repo.PhotoRefs(ctx)
	if err != nil {
		slog.Error("janitor: load photo refs", "error", err.Error())
		j.setLastError(err)
		return
	}

	var dangling int64
	for ref := range refs {
		if !j.photos.Exists(ref) {
			dangling++
		}
	}
	j.dangling.Store(dangling)
	if dangling > 0 {
		slog.Warn("janitor: rows reference missing photos", "count", dangling)
	}

	sem := make(chan struct{}, j.concurrency)
	var wg sync.WaitGroup
	var removed atomic.Int64
	for _, ref := range stale {
		if _, ok := refs[ref]; ok {
			continue
		}
		ref := ref
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				<-sem
				wg.Done()
			}()
			ok, err := j.photos.RemoveIfOlder(ref, cutoff)
			if err != nil {
				slog.Error("janitor: remove photo", "ref", ref, "error", err.Error())
				j.setLastError(err)
				return
			}
			if !ok {
				slog.Info("janitor: photo touched during sweep, kept", "ref", ref)
				return
			}
			removed.Add(1)
		}()
	}
	wg.Wait()
	j.totalRemoved.Add(removed.Load())

	slog.Info("janitor: sweep done",
		"scanned", scanned,
		"referenced", len(refs),
		"removed", removed.Load(),
		"dangling", dangling,
	)
}
