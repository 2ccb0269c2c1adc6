package websocket

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"market/internal/metrics"
)

const defaultBuffer = 32

// Subscription is one live connection's view of the channel.
type Subscription struct {
	AccountID string
	Handle    string
	send      chan []byte
	closed    bool
}

// Messages yields encoded events. It is closed by Hub.Unsubscribe.
func (s *Subscription) Messages() <-chan []byte {
	return s.send
}

// Hub fans chat events out to every live subscriber and balance updates to
// the subscribers of one account.
type Hub struct {
	mu        sync.RWMutex
	subs      map[*Subscription]struct{}
	byAccount map[string]map[*Subscription]struct{}
	buffer    int
	metrics   metrics.Recorder
}

func NewHub(buffer int, recorder metrics.Recorder) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Hub{
		subs:      make(map[*Subscription]struct{}),
		byAccount: make(map[string]map[*Subscription]struct{}),
		buffer:    buffer,
		metrics:   recorder,
	}
}

func (h *Hub) Subscribe(accountID, handle string) *Subscription {
	sub := &Subscription{
		AccountID: accountID,
		Handle:    handle,
		send:      make(chan []byte, h.buffer),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sub] = struct{}{}
	if h.byAccount[accountID] == nil {
		h.byAccount[accountID] = make(map[*Subscription]struct{})
	}
	h.byAccount[accountID][sub] = struct{}{}
	h.metrics.SetChatSubscribers(len(h.subs))
	return sub
}

// Unsubscribe is idempotent.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub.closed {
		return
	}
	sub.closed = true
	delete(h.subs, sub)
	if peers := h.byAccount[sub.AccountID]; peers != nil {
		delete(peers, sub)
		if len(peers) == 0 {
			delete(h.byAccount, sub.AccountID)
		}
	}
	close(sub.send)
	h.metrics.SetChatSubscribers(len(h.subs))
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish assigns msg a fresh id and delivers it to every subscriber present
// at this instant, the publisher included. Publishes are serialised so every
// subscriber observes the same order. A subscriber with a full buffer misses
// the event.
func (h *Hub) Publish(msg ChatMessage) (ChatMessage, error) {
	msg.ID = uuid.NewString()
	payload, err := json.Marshal(event{Event: EventChat, Data: msg})
	if err != nil {
		return ChatMessage{}, err
	}

	h.mu.Lock()
	delivered, dropped := 0, 0
	for sub := range h.subs {
		select {
		case sub.send <- payload:
			delivered++
		default:
			dropped++
		}
	}
	h.mu.Unlock()

	h.metrics.RecordChatPublished(delivered)
	for i := 0; i < dropped; i++ {
		h.metrics.RecordChatDropped()
	}
	if dropped > 0 {
		log.WithFields(log.Fields{"message_id": msg.ID, "dropped": dropped}).Warn("chat subscribers lagging")
	}
	return msg, nil
}

func (h *Hub) NotifyBalance(accountID string, update BalanceUpdate) {
	payload, err := json.Marshal(event{Event: EventBalance, Data: update})
	if err != nil {
		log.WithError(err).Error("encode balance update")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.byAccount[accountID] {
		select {
		case sub.send <- payload:
		default:
		}
	}
}

// Close drops every subscriber. Their connections wind down once the send
// channels close.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()
	for _, sub := range subs {
		h.Unsubscribe(sub)
	}
}
