package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/avvvet/buffet-bingo/internal/comm"
)

// wsURL turns the http(s) base URL into the scoreboard socket URL.
func (c *Client) wsURL(tableID string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/ws"
	q := url.Values{}
	q.Set("table", tableID)
	q.Set("jwt", c.token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Watch streams scoreboard messages of a table to fn until ctx is done or
// the server closes the socket.
func (c *Client) Watch(ctx context.Context, tableID string, fn func(*comm.WSMessage)) error {
	target, err := c.wsURL(tableID)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("connect scoreboard: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read scoreboard: %w", err)
		}

		msg := &comm.WSMessage{}
		if err := json.Unmarshal(raw, msg); err != nil {
			continue
		}
		fn(msg)
	}
}
