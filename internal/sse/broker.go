// Package sse implements a Server-Sent Events broker for live doctor results.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/openkit/internal/kernel"
)

// Event types.
const (
	EventDoctorCompleted = "doctor.completed"
	EventHealthChanged   = "health.changed"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// DoctorEvent is the payload of doctor.completed.
type DoctorEvent struct {
	RunID    int64             `json:"run_id,omitempty"`
	DocsRoot string            `json:"docs_root"`
	Score    int               `json:"score"`
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks"`
	Broken   []string          `json:"broken"`
}

// NewDoctorEvent builds the payload for a completed run.
func NewDoctorEvent(run *kernel.DoctorRun) DoctorEvent {
	ev := DoctorEvent{
		DocsRoot: run.DocsRoot,
		Score:    run.Result.Report.Score,
		Status:   run.Result.Report.Status,
		Checks:   run.Result.Report.Checks,
		Broken:   run.Result.BrokenLinks(),
	}
	if run.Run != nil {
		ev.RunID = run.Run.ID
	}
	return ev
}

// HealthChange is the payload of health.changed.
type HealthChange struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Score int    `json:"score"`
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients, the doctor throttle and the last seen status). Public methods
// communicate with this loop through channels, so no mutexes are required.
type Broker struct {
	doctorMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	doctorCh      chan DoctorEvent
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. doctor.completed is sent at most once
// per doctorThrottle; the latest held-back result follows when it elapses.
func NewBroker(doctorThrottle time.Duration) *Broker {
	if doctorThrottle <= 0 {
		doctorThrottle = 2 * time.Second
	}

	b := &Broker{
		doctorMin:     doctorThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		doctorCh:      make(chan DoctorEvent, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})

	var (
		lastDoctor time.Time
		lastStatus string
		pending    *DoctorEvent
		flushCh    <-chan time.Time
	)

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		msg := fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)
		raw := []byte(msg)

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case ev := <-b.doctorCh:
			if lastStatus != "" && ev.Status != lastStatus {
				broadcast(Event{Type: EventHealthChanged, Data: HealthChange{From: lastStatus, To: ev.Status, Score: ev.Score}})
			}
			lastStatus = ev.Status

			now := time.Now()
			if elapsed := now.Sub(lastDoctor); elapsed >= b.doctorMin {
				lastDoctor = now
				pending = nil
				broadcast(Event{Type: EventDoctorCompleted, Data: ev})
			} else {
				pending = &ev
				if flushCh == nil {
					flushCh = time.After(b.doctorMin - elapsed)
				}
			}

		case <-flushCh:
			flushCh = nil
			if pending != nil {
				lastDoctor = time.Now()
				broadcast(Event{Type: EventDoctorCompleted, Data: *pending})
				pending = nil
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishDoctor publishes a throttled doctor.completed event, preceded by
// health.changed when the status differs from the previous run.
func (b *Broker) PublishDoctor(run *kernel.DoctorRun) {
	if b.closed.Load() {
		return
	}
	select {
	case b.doctorCh <- NewDoctorEvent(run):
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
