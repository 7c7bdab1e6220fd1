package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/centrifugal/centrifuge"
	"github.com/ogero/filmoteca/internal/common"
	"github.com/ogero/filmoteca/pkg/catalog"
)

// StatsBroadcaster publishes catalog statistics to a websocket channel so a
// frontend can keep its counters live without polling.
type StatsBroadcaster struct {
	channel          string
	currentStats     func() *catalog.Stats
	node             *centrifuge.Node
	websocketHandler *centrifuge.WebsocketHandler
}

// NewStatsBroadcaster creates a broadcaster publishing on the given channel.
// currentStats is invoked to serve the snapshot a client receives right after
// subscribing.
func NewStatsBroadcaster(channel string, currentStats func() *catalog.Stats) (*StatsBroadcaster, error) {

	b := &StatsBroadcaster{
		channel:      channel,
		currentStats: currentStats,
	}

	node, err := centrifuge.New(centrifuge.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to centrifuge.New: %w", err)
	}
	b.node = node

	node.OnConnecting(func(ctx context.Context, e centrifuge.ConnectEvent) (centrifuge.ConnectReply, error) {
		return centrifuge.ConnectReply{}, nil
	})

	node.OnConnect(func(client *centrifuge.Client) {
		client.OnSubscribe(func(e centrifuge.SubscribeEvent, cb centrifuge.SubscribeCallback) {
			if e.Channel != channel {
				cb(centrifuge.SubscribeReply{}, centrifuge.ErrorPermissionDenied)
				return
			}

			cb(centrifuge.SubscribeReply{
				Options: centrifuge.SubscribeOptions{},
			}, nil)

			go func() {
				if err := b.Publish(b.currentStats()); err != nil {
					common.Log.Warn("Failed to StatsBroadcaster.Publish", "err", err)
				}
			}()
		})
	})

	if err := node.Run(); err != nil {
		return nil, fmt.Errorf("failed to centrifuge.Node.Run: %w", err)
	}

	b.websocketHandler = centrifuge.NewWebsocketHandler(node, centrifuge.WebsocketConfig{
		ReadBufferSize:     1024,
		UseWriteBufferPool: true,
	})

	return b, nil
}

// Publish sends the given statistics to every subscriber. A nil stats value
// (empty collection) is published as JSON null.
func (b *StatsBroadcaster) Publish(stats *catalog.Stats) error {

	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to json.Marshal: %w", err)
	}

	if _, err := b.node.Publish(b.channel, data); err != nil {
		return fmt.Errorf("failed to centrifuge.Node.Publish: %w", err)
	}

	return nil
}

// ServeHTTP upgrades the request to a websocket connection.
func (b *StatsBroadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r = r.WithContext(centrifuge.SetCredentials(r.Context(), &centrifuge.Credentials{}))
	b.websocketHandler.ServeHTTP(w, r)
}

// Shutdown stops the websocket node, disconnecting every client.
func (b *StatsBroadcaster) Shutdown(ctx context.Context) error {
	return b.node.Shutdown(ctx)
}
