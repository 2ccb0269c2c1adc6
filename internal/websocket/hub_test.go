package websocket

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decodedEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func decodeChat(t *testing.T, payload []byte) map[string]any {
	t.Helper()
	var ev decodedEvent
	require.NoError(t, json.Unmarshal(payload, &ev))
	require.Equal(t, EventChat, ev.Event)
	fields := map[string]any{}
	require.NoError(t, json.Unmarshal(ev.Data, &fields))
	return fields
}

func drain(sub *Subscription) [][]byte {
	var out [][]byte
	for {
		select {
		case payload, ok := <-sub.Messages():
			if !ok {
				return out
			}
			out = append(out, payload)
		default:
			return out
		}
	}
}

func chat(t *testing.T, sender, body string) ChatMessage {
	t.Helper()
	msg, err := NewChatMessage("id-"+sender, sender, []byte(body))
	require.NoError(t, err)
	return msg
}

func TestPublishReachesEverySubscriberIncludingPublisher(t *testing.T) {
	hub := NewHub(8, nil)
	alice := hub.Subscribe("acc-alice", "alice")
	bob := hub.Subscribe("acc-bob", "bob")

	sent, err := hub.Publish(chat(t, "alice", `{"text":"hi"}`))
	require.NoError(t, err)
	require.NotEmpty(t, sent.ID)

	for _, sub := range []*Subscription{alice, bob} {
		events := drain(sub)
		require.Len(t, events, 1)
		fields := decodeChat(t, events[0])
		assert.Equal(t, "hi", fields["text"])
		assert.Equal(t, sent.ID, fields["message_id"])
		assert.Equal(t, "alice", fields["sender"])
	}
}

func TestPublishAssignsDistinctIDs(t *testing.T) {
	hub := NewHub(8, nil)
	first, err := hub.Publish(chat(t, "alice", `{}`))
	require.NoError(t, err)
	second, err := hub.Publish(chat(t, "alice", `{}`))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestLateSubscriberSeesNoEarlierEvents(t *testing.T) {
	hub := NewHub(8, nil)
	early := hub.Subscribe("acc-alice", "alice")
	_, err := hub.Publish(chat(t, "alice", `{"n":1}`))
	require.NoError(t, err)

	late := hub.Subscribe("acc-carol", "carol")
	_, err = hub.Publish(chat(t, "alice", `{"n":2}`))
	require.NoError(t, err)

	assert.Len(t, drain(early), 2)
	events := drain(late)
	require.Len(t, events, 1)
	assert.EqualValues(t, 2, decodeChat(t, events[0])["n"])
}

func TestConcurrentPublishersProduceOneGlobalOrder(t *testing.T) {
	const publishers, perPublisher, subscribers = 8, 50, 5
	hub := NewHub(publishers*perPublisher, nil)
	subs := make([]*Subscription, subscribers)
	for i := range subs {
		subs[i] = hub.Subscribe(fmt.Sprintf("acc-%d", i), fmt.Sprintf("user%d", i))
	}

	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				msg, err := NewChatMessage("sender", "sender", []byte(fmt.Sprintf(`{"p":%d,"i":%d}`, p, i)))
				if err == nil {
					_, _ = hub.Publish(msg)
				}
			}
		}(p)
	}
	wg.Wait()

	var reference []string
	for i, sub := range subs {
		events := drain(sub)
		require.Len(t, events, publishers*perPublisher)
		ids := make([]string, 0, len(events))
		for _, payload := range events {
			ids = append(ids, decodeChat(t, payload)["message_id"].(string))
		}
		if i == 0 {
			reference = ids
			continue
		}
		assert.Equal(t, reference, ids)
	}
}

func TestFullBufferDropsOnlyForThatSubscriber(t *testing.T) {
	hub := NewHub(1, nil)
	slow := hub.Subscribe("acc-slow", "slow")
	fast := hub.Subscribe("acc-fast", "fast")

	_, err := hub.Publish(chat(t, "fast", `{"n":1}`))
	require.NoError(t, err)
	require.Len(t, drain(fast), 1)

	_, err = hub.Publish(chat(t, "fast", `{"n":2}`))
	require.NoError(t, err)

	assert.Len(t, drain(fast), 1)
	events := drain(slow)
	require.Len(t, events, 1)
	assert.EqualValues(t, 1, decodeChat(t, events[0])["n"])
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	hub := NewHub(4, nil)
	sub := hub.Subscribe("acc-alice", "alice")
	require.Equal(t, 1, hub.Subscribers())

	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)
	assert.Equal(t, 0, hub.Subscribers())

	_, ok := <-sub.Messages()
	assert.False(t, ok)

	_, err := hub.Publish(chat(t, "bob", `{}`))
	require.NoError(t, err)
}

func TestNotifyBalanceTargetsOneAccount(t *testing.T) {
	hub := NewHub(4, nil)
	alice := hub.Subscribe("acc-alice", "alice")
	bob := hub.Subscribe("acc-bob", "bob")

	hub.NotifyBalance("acc-alice", BalanceUpdate{AccountID: "acc-alice", Balance: 9900, Formatted: "9,900"})

	assert.Empty(t, drain(bob))
	events := drain(alice)
	require.Len(t, events, 1)
	var ev struct {
		Event string        `json:"event"`
		Data  BalanceUpdate `json:"data"`
	}
	require.NoError(t, json.Unmarshal(events[0], &ev))
	assert.Equal(t, EventBalance, ev.Event)
	assert.Equal(t, int64(9900), ev.Data.Balance)
}

func TestCloseReleasesSubscribers(t *testing.T) {
	hub := NewHub(4, nil)
	sub := hub.Subscribe("acc-alice", "alice")
	hub.Close()
	assert.Equal(t, 0, hub.Subscribers())
	_, ok := <-sub.Messages()
	assert.False(t, ok)
	hub.Unsubscribe(sub)
}
