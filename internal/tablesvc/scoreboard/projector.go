package scoreboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/avvvet/buffet-bingo/internal/missions"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
)

// Snapshot is the full state of one table as delivered by a Source. Table is
// nil once the table has been deleted.
type Snapshot struct {
	TableID string
	Table   *models.Table
	Players []*models.Player
}

type RankedPlayer struct {
	Rank    int            `json:"rank"`
	Verdict string         `json:"verdict"`
	Player  *models.Player `json:"player"`
}

// View is what a client renders: scored plates ranked highest first and the
// full membership list.
type View struct {
	TableID string           `json:"table_id"`
	Name    string           `json:"name,omitempty"`
	Code    string           `json:"code,omitempty"`
	Host    string           `json:"host,omitempty"`
	Closed  bool             `json:"closed"`
	Deleted bool             `json:"deleted"`
	Ranked  []RankedPlayer   `json:"ranked"`
	Members []*models.Player `json:"members"`
	Total   int              `json:"total"`
}

type Notification struct {
	ID        string    `json:"id"`
	TableID   string    `json:"table_id"`
	PlayerUID string    `json:"player_uid"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

// Projector turns snapshots of one table into views for a single viewer.
// It is not safe for concurrent use.
type Projector struct {
	viewer string
	primed bool
	known  map[string]struct{}
	seq    int
	now    func() time.Time
}

func NewProjector(viewer string) *Projector {
	return &Projector{
		viewer: viewer,
		known:  make(map[string]struct{}),
		now:    time.Now,
	}
}

// Apply projects a snapshot. The first snapshot only primes the set of known
// players; later ones yield a join notification for every player that was
// not present before, except the viewer.
func (p *Projector) Apply(s Snapshot) (View, []Notification) {
	members := dedupe(s.Players)
	view := Project(s.TableID, s.Table, members)

	current := make(map[string]struct{}, len(members))
	for _, m := range members {
		current[m.UID] = struct{}{}
	}

	var joined []Notification
	if p.primed {
		for _, m := range members {
			if _, ok := p.known[m.UID]; ok || m.UID == p.viewer {
				continue
			}
			p.seq++
			joined = append(joined, Notification{
				ID:        fmt.Sprintf("%s-%d", s.TableID, p.seq),
				TableID:   s.TableID,
				PlayerUID: m.UID,
				Message:   fmt.Sprintf("%s joined", displayName(m)),
				At:        p.now().UTC(),
			})
		}
	}

	p.primed = true
	p.known = current
	return view, joined
}

// Project ranks the scored players of a table. Unscored players count as
// members but are left out of the ranking. Ties keep their input order.
func Project(tableID string, table *models.Table, players []*models.Player) View {
	view := View{
		TableID: tableID,
		Members: players,
		Total:   len(players),
		Ranked:  []RankedPlayer{},
	}
	if view.Members == nil {
		view.Members = []*models.Player{}
	}

	if table == nil {
		view.Deleted = true
	} else {
		view.Name = table.Name
		view.Code = table.Code()
		view.Host = table.Host
		view.Closed = table.IsClosed()
	}

	scored := make([]*models.Player, 0, len(players))
	for _, pl := range players {
		if pl.IsScored() {
			scored = append(scored, pl)
		}
	}
	// equal scores: earlier submission first, then uid
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if at, bt := submitted(a), submitted(b); !at.Equal(bt) {
			return at.Before(bt)
		}
		return a.UID < b.UID
	})

	for i, pl := range scored {
		view.Ranked = append(view.Ranked, RankedPlayer{
			Rank:    i + 1,
			Verdict: missions.Verdict(pl.Score),
			Player:  pl,
		})
	}
	return view
}

func dedupe(players []*models.Player) []*models.Player {
	index := make(map[string]int, len(players))
	out := make([]*models.Player, 0, len(players))
	for _, pl := range players {
		if i, ok := index[pl.UID]; ok {
			out[i] = pl
			continue
		}
		index[pl.UID] = len(out)
		out = append(out, pl)
	}
	return out
}

func displayName(p *models.Player) string {
	if p.Name == "" {
		return "Someone"
	}
	return p.Name
}

func submitted(p *models.Player) time.Time {
	if p.SubmittedAt == nil {
		return time.Time{}
	}
	return *p.SubmittedAt
}
