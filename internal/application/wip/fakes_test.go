package wip_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/wip-ledger/internal/domain"
	"github.com/jhoicas/wip-ledger/internal/domain/entity"
	"github.com/jhoicas/wip-ledger/internal/domain/repository"
)

// ── Almacén en memoria con semántica transaccional ───────────────────────────
// Run toma el mutex durante toda la transacción y restaura el estado si fn falla.

var errBoom = errors.New("boom")

type memStore struct {
	mu     sync.Mutex
	lots   map[string]*entity.StockLot
	seq    map[string]int
	next   int
	ledger []*entity.LedgerEntry

	failAppend  bool
	failUpdate  bool
	failConsume bool
	runs        int
}

func newMemStore() *memStore {
	return &memStore{lots: map[string]*entity.StockLot{}, seq: map[string]int{}}
}

func (s *memStore) Run(ctx context.Context, fn func(repository.StockLotRepository, repository.LedgerRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++

	lotsBackup := make(map[string]*entity.StockLot, len(s.lots))
	for k, v := range s.lots {
		cp := *v
		lotsBackup[k] = &cp
	}
	seqBackup := make(map[string]int, len(s.seq))
	for k, v := range s.seq {
		seqBackup[k] = v
	}
	ledgerLen := len(s.ledger)

	if err := fn(&memLotRepo{s: s, inTx: true}, &memLedgerRepo{s: s, inTx: true}); err != nil {
		s.lots = lotsBackup
		s.seq = seqBackup
		s.ledger = s.ledger[:ledgerLen]
		return err
	}
	return nil
}

func (s *memStore) lotRepo() *memLotRepo       { return &memLotRepo{s: s} }
func (s *memStore) ledgerRepo() *memLedgerRepo { return &memLedgerRepo{s: s} }

// snapshot devuelve copias ordenadas por creación.
func (s *memStore) snapshot() []*entity.StockLot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(*entity.StockLot) bool { return true })
}

func (s *memStore) entries() []*entity.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.LedgerEntry, len(s.ledger))
	copy(out, s.ledger)
	return out
}

func (s *memStore) sorted(keep func(*entity.StockLot) bool) []*entity.StockLot {
	var out []*entity.StockLot
	for _, l := range s.lots {
		if keep(l) {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return s.seq[out[i].ID] < s.seq[out[j].ID]
	})
	return out
}

type memLotRepo struct {
	s    *memStore
	inTx bool
}

func (r *memLotRepo) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

func (r *memLotRepo) LockKey(context.Context, string, string) error { return nil }

func (r *memLotRepo) GetByID(_ context.Context, id string) (*entity.StockLot, error) {
	defer r.lock()()
	l, ok := r.s.lots[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *memLotRepo) GetLatestForUpdate(_ context.Context, part, lot string) (*entity.StockLot, error) {
	defer r.lock()()
	rows := r.s.sorted(func(l *entity.StockLot) bool { return l.PartNumber == part && l.LotNumber == lot })
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[len(rows)-1], nil
}

func (r *memLotRepo) GetOldestAvailableForUpdate(_ context.Context, part, lot string) (*entity.StockLot, error) {
	defer r.lock()()
	rows := r.s.sorted(func(l *entity.StockLot) bool {
		return l.PartNumber == part && l.LotNumber == lot && l.Status == entity.LotStatusAvailable
	})
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *memLotRepo) ListConsumableForUpdate(_ context.Context, part, lot string) ([]*entity.StockLot, error) {
	defer r.lock()()
	if r.s.failConsume {
		return nil, errBoom
	}
	return r.s.sorted(func(l *entity.StockLot) bool {
		return l.PartNumber == part && (lot == "" || l.LotNumber == lot) && l.Quantity > 0
	}), nil
}

func (r *memLotRepo) Create(_ context.Context, lot *entity.StockLot) error {
	defer r.lock()()
	if lot.LabelID != "" {
		for _, l := range r.s.lots {
			if l.LabelID == lot.LabelID {
				return domain.ErrDuplicate
			}
		}
	}
	cp := *lot
	r.s.lots[lot.ID] = &cp
	r.s.next++
	r.s.seq[lot.ID] = r.s.next
	return nil
}

func (r *memLotRepo) Update(_ context.Context, lot *entity.StockLot) error {
	defer r.lock()()
	if r.s.failUpdate {
		return errBoom
	}
	if _, ok := r.s.lots[lot.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *lot
	r.s.lots[lot.ID] = &cp
	return nil
}

func (r *memLotRepo) ListByKey(_ context.Context, part, lot string) ([]*entity.StockLot, error) {
	defer r.lock()()
	return r.s.sorted(func(l *entity.StockLot) bool { return l.PartNumber == part && l.LotNumber == lot }), nil
}

func (r *memLotRepo) List(_ context.Context, f repository.StockFilter) ([]*entity.StockLot, int, error) {
	defer r.lock()()
	rows := r.s.sorted(func(l *entity.StockLot) bool {
		return (f.PartNumber == "" || l.PartNumber == f.PartNumber) &&
			(f.LotNumber == "" || l.LotNumber == f.LotNumber) &&
			(f.Status == "" || l.Status == f.Status)
	})
	total := len(rows)
	if f.Offset >= total {
		return nil, total, nil
	}
	end := min(f.Offset+f.Limit, total)
	return rows[f.Offset:end], total, nil
}

type memLedgerRepo struct {
	s    *memStore
	inTx bool
}

func (r *memLedgerRepo) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

func (r *memLedgerRepo) Append(_ context.Context, e *entity.LedgerEntry) error {
	defer r.lock()()
	if r.s.failAppend {
		return errBoom
	}
	cp := *e
	r.s.ledger = append(r.s.ledger, &cp)
	return nil
}

func (r *memLedgerRepo) ListByLot(_ context.Context, lot string, limit, offset int) ([]*entity.LedgerEntry, error) {
	defer r.lock()()
	var out []*entity.LedgerEntry
	for i := len(r.s.ledger) - 1; i >= 0; i-- {
		if r.s.ledger[i].LotNumber == lot {
			out = append(out, r.s.ledger[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	return out[offset:min(offset+limit, len(out))], nil
}

func (r *memLedgerRepo) ListByBatch(_ context.Context, batchID string) ([]*entity.LedgerEntry, error) {
	defer r.lock()()
	var out []*entity.LedgerEntry
	for _, e := range r.s.ledger {
		if e.BatchID == batchID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ── Publisher de prueba ──────────────────────────────────────────────────────

type recordingPublisher struct {
	mu      sync.Mutex
	fail    bool
	entries []*entity.LedgerEntry
}

func (p *recordingPublisher) Publish(_ context.Context, entries []*entity.LedgerEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errBoom
	}
	p.entries = append(p.entries, entries...)
	return nil
}

// ── Reloj determinista ───────────────────────────────────────────────────────

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}
