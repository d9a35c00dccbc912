package memstore

import (
	"context"

	"github.com/avvvet/buffet-bingo/internal/tablesvc/scoreboard"
)

// Subscribe delivers the current snapshot of the table followed by a new
// one after every write touching it. Only the latest pending snapshot is
// kept for a slow reader.
func (s *Store) Subscribe(ctx context.Context, tableID string) (<-chan scoreboard.Snapshot, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan scoreboard.Snapshot, 1)
	id := s.nextID
	s.nextID++
	if s.watchers[tableID] == nil {
		s.watchers[tableID] = make(map[int]chan scoreboard.Snapshot)
	}
	s.watchers[tableID][id] = ch
	ch <- s.snapshotLocked(tableID)

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.watchers[tableID][id]; ok {
			delete(s.watchers[tableID], id)
			close(c)
		}
	}
	return ch, cancel, nil
}

// Drop closes every subscription of the table, as a lost connection would.
func (s *Store) Drop(tableID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.watchers[tableID] {
		delete(s.watchers[tableID], id)
		close(c)
	}
}

func (s *Store) snapshotLocked(tableID string) scoreboard.Snapshot {
	snap := scoreboard.Snapshot{TableID: tableID, Players: s.listPlayersLocked(tableID)}
	if t, ok := s.tables[tableID]; ok {
		snap.Table = cloneTable(t)
	}
	return snap
}

func (s *Store) publishLocked(tableID string) {
	if len(s.watchers[tableID]) == 0 {
		return
	}
	snap := s.snapshotLocked(tableID)
	for _, ch := range s.watchers[tableID] {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
