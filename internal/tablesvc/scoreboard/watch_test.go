package scoreboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
)

// feedSource hands every subscription's channel to the test.
type feedSource struct {
	feeds chan chan Snapshot
	fail  int
}

func newFeedSource() *feedSource {
	return &feedSource{feeds: make(chan chan Snapshot, 4)}
}

func (f *feedSource) Subscribe(ctx context.Context, tableID string) (<-chan Snapshot, func(), error) {
	if f.fail > 0 {
		f.fail--
		return nil, nil, errors.New("broker unavailable")
	}
	ch := make(chan Snapshot, 4)
	f.feeds <- ch
	return ch, func() {}, nil
}

func nextFeed(t *testing.T, src *feedSource) chan Snapshot {
	t.Helper()
	select {
	case ch := <-src.feeds:
		return ch
	case <-time.After(2 * time.Second):
		t.Fatal("no subscription")
		return nil
	}
}

func nextEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "watch stopped")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
		return Event{}
	}
}

func snapshot(uids ...string) Snapshot {
	s := Snapshot{TableID: "t1", Table: openTable()}
	for _, uid := range uids {
		s.Players = append(s.Players, player(uid, uid, 0))
	}
	return s
}

func TestWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := newFeedSource()
	src.fail = 1
	events := Watch(ctx, src, "t1", "me", Options{ToastDuration: 20 * time.Millisecond, ResubscribeDelay: 5 * time.Millisecond})

	feed := nextFeed(t, src)
	feed <- snapshot("me")
	ev := nextEvent(t, events)
	require.NotNil(t, ev.View)
	assert.Empty(t, ev.Joined)

	feed <- snapshot("me", "ann")
	ev = nextEvent(t, events)
	require.Len(t, ev.Joined, 1)
	toast := ev.Joined[0].ID

	ev = nextEvent(t, events)
	assert.Nil(t, ev.View)
	assert.Equal(t, toast, ev.Dismissed)

	// a dropped feed is replaced and known players stay known
	close(feed)
	feed = nextFeed(t, src)
	feed <- snapshot("me", "ann", "bob")
	ev = nextEvent(t, events)
	require.Len(t, ev.Joined, 1)
	assert.Equal(t, "bob", ev.Joined[0].PlayerUID)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatchDeletedTable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := newFeedSource()
	events := Watch(ctx, src, "t1", "me", Options{})

	feed := nextFeed(t, src)
	feed <- Snapshot{TableID: "t1", Players: []*models.Player{}}
	ev := nextEvent(t, events)
	require.NotNil(t, ev.View)
	assert.True(t, ev.View.Deleted)
}
