package dashboard

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// wsPair dials a throwaway httptest server and returns both ends of one
// WebSocket connection.
func wsPair(t *testing.T) (server, client *websocket.Conn) {
	t.Helper()

	connCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		connCh <- c
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	select {
	case server = <-connCh:
	case <-time.After(2 * time.Second):
		t.Fatal("server conn not established")
	}
	t.Cleanup(func() { server.Close() })
	return server, client
}

func clientCount(h *WSHub) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestWSHub_BroadcastDropsDeadClientDuringConcurrentReads(t *testing.T) {
	h := NewWSHub()
	go h.Run()

	deadSrv, deadClient := wsPair(t)
	deadClient.Close()
	deadSrv.Close()
	h.register <- deadSrv

	liveSrv, liveClient := wsPair(t)
	h.register <- liveSrv
	waitFor(t, func() bool { return clientCount(h) == 2 })

	// Mirror the ping goroutine: check membership under the read lock while
	// broadcasts drop the dead client. Run under -race this catches any
	// client-set mutation outside the write lock.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				h.mu.RLock()
				_, _ = h.clients[liveSrv]
				h.mu.RUnlock()
			}
		}
	}()

	for i := 0; i < 10; i++ {
		h.Broadcast(WSMessage{Type: "snapshot_refreshed", SnapshotID: "s1"})
	}

	waitFor(t, func() bool { return clientCount(h) == 1 })
	close(stop)
	wg.Wait()

	liveClient.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := liveClient.ReadJSON(&msg); err != nil {
		t.Fatalf("live client read: %v", err)
	}
	if msg.Type != "snapshot_refreshed" {
		t.Errorf("unexpected message type %q", msg.Type)
	}
}

func TestWSHub_UnregisterRemovesClient(t *testing.T) {
	h := NewWSHub()
	go h.Run()

	srv, _ := wsPair(t)
	h.register <- srv
	waitFor(t, func() bool { return clientCount(h) == 1 })

	h.unregister <- srv
	waitFor(t, func() bool { return clientCount(h) == 0 })
}
