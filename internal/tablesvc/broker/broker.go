package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/buffet-bingo/internal/comm"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/scoreboard"
)

// Subject carries change signals for the players of one table.
func Subject(tableID string) string {
	return "tables." + tableID + ".players"
}

// Loader reads the current state of a table from the session store.
type Loader func(ctx context.Context, tableID string) (scoreboard.Snapshot, error)

// Broker announces table changes over NATS and turns those announcements
// back into snapshot feeds for the scoreboard.
type Broker struct {
	Conn       *nats.Conn
	InstanceId string
	load       Loader
	subscribe  func(subject string, cb nats.MsgHandler) (*nats.Subscription, error)

	mu    sync.Mutex
	feeds map[*feed]struct{}
}

func NewBroker(nc *nats.Conn, instanceId string, load Loader) *Broker {
	return &Broker{
		Conn:       nc,
		InstanceId: instanceId,
		load:       load,
		subscribe:  nc.Subscribe,
		feeds:      make(map[*feed]struct{}),
	}
}

// Changed implements service.Notifier.
func (b *Broker) Changed(ctx context.Context, tableID string) {
	data, err := json.Marshal(comm.TableChanged{TableID: tableID, Origin: b.InstanceId, At: time.Now().UTC()})
	if err != nil {
		log.Errorf("[Broker.Changed] unable to marshal change for %s: %s", tableID, err)
		return
	}

	msg := &comm.WSMessage{
		Type: comm.TypeTableChanged,
		Data: data,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	b.Publish(Subject(tableID), payload)
}

func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

type feed struct {
	tableID string
	ch      chan scoreboard.Snapshot
	reload  func()
}

// Subscribe implements scoreboard.Source. The subject is subscribed before
// the current state is loaded so no change falls in between; every change
// message triggers a reload. Reloads of one feed run one at a time.
func (b *Broker) Subscribe(ctx context.Context, tableID string) (<-chan scoreboard.Snapshot, func(), error) {
	f := &feed{tableID: tableID, ch: make(chan scoreboard.Snapshot, 1)}

	var (
		mu     sync.Mutex
		loadMu sync.Mutex
		closed bool
	)
	f.reload = func() {
		loadMu.Lock()
		defer loadMu.Unlock()

		snap, err := b.load(ctx, tableID)
		if err != nil {
			log.Errorf("[Broker.Subscribe] load %s: %s", tableID, err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case <-f.ch:
		default:
		}
		f.ch <- snap
	}

	sub, err := b.subscribe(Subject(tableID), func(_ *nats.Msg) {
		f.reload()
	})
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe %s: %w", Subject(tableID), err)
	}

	f.reload()

	b.mu.Lock()
	b.feeds[f] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			if err := sub.Unsubscribe(); err != nil && err != nats.ErrConnectionClosed && err != nats.ErrBadSubscription {
				log.Warnf("[Broker.Subscribe] unsubscribe %s: %s", tableID, err)
			}
			b.mu.Lock()
			delete(b.feeds, f)
			b.mu.Unlock()

			mu.Lock()
			closed = true
			close(f.ch)
			mu.Unlock()
		})
	}
	return f.ch, cancel, nil
}

// Resync reloads every open feed. Changes published while the connection
// was down are lost, so it runs after each reconnect.
func (b *Broker) Resync() {
	b.mu.Lock()
	feeds := make([]*feed, 0, len(b.feeds))
	for f := range b.feeds {
		feeds = append(feeds, f)
	}
	b.mu.Unlock()

	for _, f := range feeds {
		go f.reload()
	}
	log.Infof("resynced %d table feeds", len(feeds))
}
