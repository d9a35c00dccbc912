package scoreboard

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Source delivers snapshots of one table, starting with the current state.
// The returned channel is closed when the underlying feed drops; calling
// the cancel func releases the subscription.
type Source interface {
	Subscribe(ctx context.Context, tableID string) (<-chan Snapshot, func(), error)
}

type Options struct {
	ToastDuration    time.Duration
	ResubscribeDelay time.Duration
}

const (
	DefaultToastDuration    = 3 * time.Second
	DefaultResubscribeDelay = time.Second
)

// Event is one update for a watching client: a fresh view with any join
// notifications, or the dismissal of an earlier notification.
type Event struct {
	View      *View          `json:"view,omitempty"`
	Joined    []Notification `json:"joined,omitempty"`
	Dismissed string         `json:"dismissed,omitempty"`
}

// Watch projects the table for viewer until ctx is done, re-subscribing
// whenever the source drops. The returned channel is closed on exit.
func Watch(ctx context.Context, src Source, tableID, viewer string, opts Options) <-chan Event {
	if opts.ToastDuration <= 0 {
		opts.ToastDuration = DefaultToastDuration
	}
	if opts.ResubscribeDelay <= 0 {
		opts.ResubscribeDelay = DefaultResubscribeDelay
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)

		proj := NewProjector(viewer)
		dismiss := make(chan string, 16)

		send := func(ev Event) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			snaps, cancel, err := src.Subscribe(ctx, tableID)
			if err != nil {
				log.Warnf("[scoreboard.Watch] subscribe %s: %s", tableID, err)
			} else {
				alive := consume(ctx, snaps, dismiss, proj, opts.ToastDuration, send)
				cancel()
				if !alive {
					return
				}
				log.Debugf("[scoreboard.Watch] feed for %s dropped, re-subscribing", tableID)
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(opts.ResubscribeDelay):
			}
		}
	}()
	return out
}

// consume drains one subscription. It returns false when the watch must stop.
func consume(ctx context.Context, snaps <-chan Snapshot, dismiss chan string, proj *Projector, toast time.Duration, send func(Event) bool) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case id := <-dismiss:
			if !send(Event{Dismissed: id}) {
				return false
			}
		case snap, ok := <-snaps:
			if !ok {
				return true
			}
			view, joined := proj.Apply(snap)
			for _, n := range joined {
				id := n.ID
				time.AfterFunc(toast, func() {
					select {
					case dismiss <- id:
					case <-ctx.Done():
					}
				})
			}
			if !send(Event{View: &view, Joined: joined}) {
				return false
			}
		}
	}
}
