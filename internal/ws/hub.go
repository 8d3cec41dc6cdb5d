package ws

import "sync"

// AllTopic receives every entry regardless of author.
const AllTopic = "*"

// Subscriber abstracts a streaming viewer.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub fans log entries out to viewers subscribed to an author or to AllTopic.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]map[Subscriber]struct{}
	register  chan subscription
	unreg     chan subscription
	broadcast chan message
	done      chan struct{}
	stopOnce  sync.Once
}

type message struct {
	author  string
	payload []byte
}

type subscription struct {
	topic  string
	client Subscriber
}

// NewHub creates a running Hub. buffer sizes the broadcast queue and is at least one.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	h := &Hub{
		clients:   make(map[string]map[Subscriber]struct{}),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan message, buffer),
		done:      make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for topic, clients := range h.clients {
				for c := range clients {
					c.Close()
				}
				delete(h.clients, topic)
			}
			h.mu.Unlock()
			return
		case sub := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[sub.topic]; !ok {
				h.clients[sub.topic] = make(map[Subscriber]struct{})
			}
			h.clients[sub.topic][sub.client] = struct{}{}
			h.mu.Unlock()
		case sub := <-h.unreg:
			h.mu.Lock()
			h.remove(sub.topic, sub.client)
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			h.deliver(AllTopic, msg.payload)
			if msg.author != AllTopic {
				h.deliver(msg.author, msg.payload)
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) deliver(topic string, payload []byte) {
	for c := range h.clients[topic] {
		if err := c.Send(payload); err != nil {
			c.Close()
			h.remove(topic, c)
		}
	}
}

func (h *Hub) remove(topic string, client Subscriber) {
	clients, ok := h.clients[topic]
	if !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.clients, topic)
	}
}

// Register adds a viewer for topic. An empty topic means AllTopic.
func (h *Hub) Register(topic string, client Subscriber) {
	select {
	case h.register <- subscription{topic: normalize(topic), client: client}:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes a viewer.
func (h *Hub) Unregister(topic string, client Subscriber) {
	select {
	case h.unreg <- subscription{topic: normalize(topic), client: client}:
	case <-h.done:
	}
}

// Broadcast queues payload for AllTopic viewers and viewers of author.
// It never blocks: when the queue is full or the hub is stopped the payload
// is dropped and Broadcast reports false.
func (h *Hub) Broadcast(author string, payload []byte) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.broadcast <- message{author: author, payload: payload}:
		return true
	default:
		return false
	}
}

// Count reports the viewers currently registered on topic.
func (h *Hub) Count(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[normalize(topic)])
}

// Stop closes every viewer and ends the hub loop.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func normalize(topic string) string {
	if topic == "" {
		return AllTopic
	}
	return topic
}
