package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/solsight/paygate/internal/domain"
)

func testView(subjectID, sessionID, padding string) domain.SessionView {
	return domain.SessionView{
		SessionID:      sessionID,
		SubjectID:      subjectID,
		Kind:           domain.SessionKindIndividual,
		ExpectedAmount: 500_000_000,
		AmountSOL:      "0.5",
		CustodialAddr:  "addr-" + padding,
		Status:         domain.SessionStatusPaid,
		ExpiresAt:      time.Now().Add(30 * time.Minute),
	}
}

// hubServer upgrades incoming connections and registers them on the hub under
// the subject id carried in the query string. Each registration is signalled
// on the returned channel once it has been queued.
func hubServer(t *testing.T, hub *WsHub) (*httptest.Server, chan struct{}) {
	t.Helper()
	registered := make(chan struct{}, 8)
	upgrader := gws.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register <- &WsClient{
			SubjectID: r.URL.Query().Get("subject_id"),
			Conn:      conn,
		}
		registered <- struct{}{}
	}))
	t.Cleanup(srv.Close)
	return srv, registered
}

func dialHub(t *testing.T, srv *httptest.Server, subjectID string) *gws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?subject_id=" + subjectID
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial test hub: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWsHub_BroadcastSessionNeverBlocks(t *testing.T) {
	// The hub loop is deliberately not running: the queue fills and every
	// further send must be shed instead of stalling the caller.
	hub := NewWsHub(zerolog.Nop())
	view := testView("subject-1", "s1", "")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			hub.BroadcastSession(view)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("BroadcastSession blocked on a congested hub")
	}
}

func TestWsHub_DeliversToSubscribedSubject(t *testing.T) {
	hub := NewWsHub(zerolog.Nop())
	go hub.Run()

	srv, registered := hubServer(t, hub)
	conn := dialHub(t, srv, "subject-1")
	<-registered

	hub.BroadcastSession(testView("subject-1", "s1", ""))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var message WsMessage
	if err := conn.ReadJSON(&message); err != nil {
		t.Fatalf("expected a session update, got read error: %v", err)
	}
	if message.Type != "session_status" || message.Session == nil || message.Session.SessionID != "s1" {
		t.Fatalf("unexpected message: %+v", message)
	}
}

func TestWsHub_DropsClosedConnection(t *testing.T) {
	hub := NewWsHub(zerolog.Nop())
	go hub.Run()

	srv, registered := hubServer(t, hub)
	dead := dialHub(t, srv, "subject-dead")
	<-registered
	dead.Close()

	// Writes to the closed peer error and the connection is discarded; a
	// healthy connection registered afterwards still gets its updates.
	hub.BroadcastSession(testView("subject-dead", "s-dead", ""))

	live := dialHub(t, srv, "subject-live")
	<-registered

	hub.BroadcastSession(testView("subject-live", "s-live", ""))

	live.SetReadDeadline(time.Now().Add(2 * time.Second))
	var message WsMessage
	if err := live.ReadJSON(&message); err != nil {
		t.Fatalf("healthy client starved after a dead connection: %v", err)
	}
	if message.Session.SessionID != "s-live" {
		t.Fatalf("unexpected session in update: %s", message.Session.SessionID)
	}
}

func TestWsHub_StalledConnectionDoesNotStarveBroadcasts(t *testing.T) {
	hub := NewWsHub(zerolog.Nop())
	hub.WriteTimeout = 50 * time.Millisecond
	go hub.Run()

	srv, registered := hubServer(t, hub)

	// The stalled peer never reads. Large payloads fill its send buffers
	// until a write hits the deadline and the connection is dropped.
	dialHub(t, srv, "subject-stalled")
	<-registered

	padding := strings.Repeat("x", 128*1024)
	for i := 0; i < 100; i++ {
		hub.BroadcastSession(testView("subject-stalled", "s-stalled", padding))
	}

	// Give the loop time to hit the deadline and drain the shed backlog.
	time.Sleep(300 * time.Millisecond)

	live := dialHub(t, srv, "subject-live")
	<-registered

	hub.BroadcastSession(testView("subject-live", "s-live", ""))

	live.SetReadDeadline(time.Now().Add(2 * time.Second))
	var message WsMessage
	if err := live.ReadJSON(&message); err != nil {
		t.Fatalf("hub starved by a stalled connection: %v", err)
	}
	if message.Session.SessionID != "s-live" {
		t.Fatalf("unexpected session in update: %s", message.Session.SessionID)
	}
}
