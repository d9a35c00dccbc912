// Package memstore keeps tables, players, hall of fame entries, visits and
// accounts in process memory. It backs STORE_DRIVER=memory and the tests,
// and pushes a fresh snapshot to table subscribers after every write.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/scoreboard"
)

type Store struct {
	mu       sync.RWMutex
	tables   map[string]*models.Table
	players  map[string]map[string]*models.Player
	entries  map[string]*models.HallOfFameEntry
	visits   map[string]map[string]*models.VisitedTable
	accounts map[string]*models.Account
	watchers map[string]map[int]chan scoreboard.Snapshot
	nextID   int
}

func New() *Store {
	return &Store{
		tables:   make(map[string]*models.Table),
		players:  make(map[string]map[string]*models.Player),
		entries:  make(map[string]*models.HallOfFameEntry),
		visits:   make(map[string]map[string]*models.VisitedTable),
		accounts: make(map[string]*models.Account),
		watchers: make(map[string]map[int]chan scoreboard.Snapshot),
	}
}

func cloneTable(t *models.Table) *models.Table {
	c := *t
	if t.ShortCode != nil {
		code := *t.ShortCode
		c.ShortCode = &code
	}
	return &c
}

// Tables

func (s *Store) CreateTable(ctx context.Context, t *models.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.ID] = cloneTable(t)
	s.publishLocked(t.ID)
	return nil
}

func (s *Store) GetTable(ctx context.Context, id string) (*models.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneTable(t), nil
}

func (s *Store) FindTablesByCode(ctx context.Context, code string) ([]*models.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Table
	for _, t := range s.tables {
		if t.ShortCode != nil && *t.ShortCode == code {
			out = append(out, cloneTable(t))
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *Store) ListTablesByHost(ctx context.Context, host string) ([]*models.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Table
	for _, t := range s.tables {
		if t.Host == host {
			out = append(out, cloneTable(t))
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *Store) ClearShortCode(ctx context.Context, id string) error {
	return s.updateTable(id, func(t *models.Table) { t.ShortCode = nil })
}

func (s *Store) ClearStaleCodes(ctx context.Context, createdBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, t := range s.tables {
		if t.ShortCode != nil && t.CreatedAt.Before(createdBefore) {
			t.ShortCode = nil
			n++
			s.publishLocked(t.ID)
		}
	}
	return n, nil
}

func (s *Store) SetStatus(ctx context.Context, id, status string) error {
	return s.updateTable(id, func(t *models.Table) { t.Status = status })
}

func (s *Store) SetHost(ctx context.Context, id, host string) error {
	return s.updateTable(id, func(t *models.Table) { t.Host = host })
}

func (s *Store) DeleteTable(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.tables, id)
	s.publishLocked(id)
	return nil
}

func (s *Store) updateTable(id string, fn func(t *models.Table)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return models.ErrNotFound
	}
	fn(t)
	s.publishLocked(id)
	return nil
}

// Players

func (s *Store) GetPlayer(ctx context.Context, tableID, uid string) (*models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[tableID][uid]
	if !ok {
		return nil, models.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *Store) ListPlayers(ctx context.Context, tableID string) ([]*models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listPlayersLocked(tableID), nil
}

func (s *Store) listPlayersLocked(tableID string) []*models.Player {
	out := make([]*models.Player, 0, len(s.players[tableID]))
	for _, p := range s.players[tableID] {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out
}

func (s *Store) PutPlayer(ctx context.Context, p *models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.players[p.TableID] == nil {
		s.players[p.TableID] = make(map[string]*models.Player)
	}
	s.players[p.TableID][p.UID] = p.Clone()
	s.publishLocked(p.TableID)
	return nil
}

func (s *Store) RenamePlayer(ctx context.Context, tableID, uid, name string) error {
	return s.updatePlayer(tableID, uid, func(p *models.Player) { p.Name = name })
}

func (s *Store) SetHallOfFame(ctx context.Context, tableID, uid string, in bool) error {
	return s.updatePlayer(tableID, uid, func(p *models.Player) { p.InHallOfFame = in })
}

func (s *Store) DeletePlayer(ctx context.Context, tableID, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[tableID][uid]; !ok {
		return models.ErrNotFound
	}
	delete(s.players[tableID], uid)
	s.publishLocked(tableID)
	return nil
}

func (s *Store) updatePlayer(tableID, uid string, fn func(p *models.Player)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[tableID][uid]
	if !ok {
		return models.ErrNotFound
	}
	fn(p)
	s.publishLocked(tableID)
	return nil
}

// Hall of fame

func cloneEntry(e *models.HallOfFameEntry) *models.HallOfFameEntry {
	c := *e
	c.Player = *e.Player.Clone()
	return &c
}

func (s *Store) CreateEntry(ctx context.Context, e *models.HallOfFameEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.ID] = cloneEntry(e)
	return nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (*models.HallOfFameEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneEntry(e), nil
}

func (s *Store) ListTopEntries(ctx context.Context, limit int64) ([]*models.HallOfFameEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.HallOfFameEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, cloneEntry(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].HallOfFameJoinedAt.Before(out[j].HallOfFameJoinedAt)
	})
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

func (s *Store) DeleteEntriesByTable(ctx context.Context, tableID string) (int64, error) {
	return s.deleteEntries(func(e *models.HallOfFameEntry) bool {
		return e.OriginTableID == tableID
	}), nil
}

func (s *Store) DeleteEntriesByOrigin(ctx context.Context, tableID, userID string) (int64, error) {
	return s.deleteEntries(func(e *models.HallOfFameEntry) bool {
		return e.OriginTableID == tableID && e.UserID == userID
	}), nil
}

func (s *Store) deleteEntries(match func(e *models.HallOfFameEntry) bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, e := range s.entries {
		if match(e) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// Visits

func (s *Store) RecordVisit(ctx context.Context, v *models.VisitedTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.visits[v.UserID] == nil {
		s.visits[v.UserID] = make(map[string]*models.VisitedTable)
	}
	c := *v
	s.visits[v.UserID][v.TableID] = &c
	return nil
}

func (s *Store) ListVisits(ctx context.Context, userID string) ([]*models.VisitedTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.VisitedTable, 0, len(s.visits[userID]))
	for _, v := range s.visits[userID] {
		c := *v
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.After(out[j].JoinedAt) })
	return out, nil
}

// Accounts

func (s *Store) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (s *Store) FindAccountByCredential(ctx context.Context, provider, subject string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.Provider == provider && a.Subject == subject {
			c := *a
			return &c, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *Store) CreateAccount(ctx context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *a
	s.accounts[a.ID] = &c
	return nil
}

func (s *Store) LinkCredential(ctx context.Context, id, provider, subject, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return models.ErrNotFound
	}
	a.Provider = provider
	a.Subject = subject
	a.DisplayName = displayName
	a.IsAnonymous = false
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func sortByCreated(ts []*models.Table) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].CreatedAt.After(ts[j].CreatedAt) })
}
