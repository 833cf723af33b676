package website

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/flashbots/streamscan/services/resolver"
	"github.com/gorilla/websocket"
	"github.com/lithammer/shortuuid"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type subscription struct {
	uid  string
	msgC chan []byte
}

func (srv *Webserver) addSubscriber(sub *subscription) {
	srv.subscribersLock.Lock()
	defer srv.subscribersLock.Unlock()
	srv.subscribers[sub.uid] = sub
}

func (srv *Webserver) removeSubscriber(sub *subscription) {
	srv.subscribersLock.Lock()
	defer srv.subscribersLock.Unlock()
	delete(srv.subscribers, sub.uid)
	srv.log.WithField("subscribers", len(srv.subscribers)).Info("removed subscriber")
}

func (srv *Webserver) numSubscribers() int {
	srv.subscribersLock.RLock()
	defer srv.subscribersLock.RUnlock()
	return len(srv.subscribers)
}

func newSubscription() *subscription {
	return &subscription{
		uid:  shortuuid.New(),
		msgC: make(chan []byte, 16),
	}
}

// broadcast sends the snapshot to all subscribers whose channel is not full
func (srv *Webserver) broadcast(snapshot *resolver.Snapshot) {
	srv.subscribersLock.RLock()
	defer srv.subscribersLock.RUnlock()
	if len(srv.subscribers) == 0 {
		return
	}

	msg, err := json.Marshal(snapshot)
	if err != nil {
		srv.log.WithError(err).Error("error marshalling snapshot")
		return
	}
	for _, sub := range srv.subscribers {
		select {
		case sub.msgC <- msg:
		default:
		}
	}
}

func (srv *Webserver) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		srv.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := newSubscription()
	srv.addSubscriber(sub)
	defer srv.removeSubscriber(sub)

	// the client sends nothing, reading only detects the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := srv.writeWebsocket(conn, srv.currentSnapshot()); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case msg := <-sub.msgC:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				srv.log.WithError(err).Debug("websocket write failed")
				return
			}
		}
	}
}

func (srv *Webserver) writeWebsocket(conn *websocket.Conn, snapshot *resolver.Snapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(snapshot)
}
