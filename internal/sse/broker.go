// Package sse implements a Server-Sent Events broker that announces new
// lint reports to connected clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// EventReportUpdated is sent after every lint pass.
const EventReportUpdated = "report.updated"

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ReportSummary is the payload of a report.updated event.
type ReportSummary struct {
	Files      int  `json:"files"`
	Findings   int  `json:"findings"`
	Duplicates int  `json:"duplicates"`
	OK         bool `json:"ok"`
}

// Broker fans encoded events out to SSE clients. A single goroutine owns
// the client set and the most recent report frame, which is replayed to
// every new client so it starts from the current state.
type Broker struct {
	heartbeat time.Duration

	join   chan chan []byte
	leave  chan chan []byte
	events chan Event
	stats  chan chan int

	done      chan struct{}
	exited    chan struct{}
	closeOnce sync.Once
}

// NewBroker creates and starts a broker. A positive heartbeat makes
// ServeHTTP emit keep-alive comments at that interval.
func NewBroker(heartbeat time.Duration) *Broker {
	b := &Broker{
		heartbeat: heartbeat,
		join:      make(chan chan []byte),
		leave:     make(chan chan []byte),
		events:    make(chan Event, 64),
		stats:     make(chan chan int),
		done:      make(chan struct{}),
		exited:    make(chan struct{}),
	}
	go b.loop()
	return b
}

func encode(e Event) ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", e.Type, payload), nil
}

func (b *Broker) loop() {
	defer close(b.exited)

	subs := make(map[chan []byte]struct{})
	defer func() {
		for ch := range subs {
			close(ch)
		}
	}()

	var lastReport []byte
	for {
		select {
		case <-b.done:
			return

		case ch := <-b.join:
			subs[ch] = struct{}{}
			if lastReport != nil {
				ch <- lastReport
			}

		case ch := <-b.leave:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}

		case e := <-b.events:
			frame, err := encode(e)
			if err != nil {
				continue
			}
			if e.Type == EventReportUpdated {
				lastReport = frame
			}
			for ch := range subs {
				select {
				case ch <- frame:
				default:
					// Slow client; drop rather than block the loop.
				}
			}

		case resp := <-b.stats:
			resp <- len(subs)
		}
	}
}

// Close stops the broker and closes every client channel. It is safe to
// call more than once.
func (b *Broker) Close() {
	b.closeOnce.Do(func() { close(b.done) })
	<-b.exited
}

// Subscribe registers a client. The returned channel is closed on
// Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 16)
	select {
	case b.join <- ch:
	case <-b.exited:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	select {
	case b.leave <- ch:
	case <-b.exited:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	resp := make(chan int, 1)
	select {
	case b.stats <- resp:
		return <-resp
	case <-b.exited:
		return 0
	}
}

// Publish queues an event for all connected clients. Events published
// after Close are dropped.
func (b *Broker) Publish(e Event) {
	select {
	case b.events <- e:
	case <-b.exited:
	}
}

// PublishReport announces a finished lint run.
func (b *Broker) PublishReport(s ReportSummary) {
	b.Publish(Event{Type: EventReportUpdated, Data: s})
}

// ServeHTTP streams events to one client until it disconnects or the
// broker closes.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	var tick <-chan time.Time
	if b.heartbeat > 0 {
		t := time.NewTicker(b.heartbeat)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-tick:
			if _, err := w.Write([]byte(": keep-alive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case frame, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
