// bus.go
package bus

import (
	"strings"
	"sync"
)

// -----------------------------------------------------------------------------
// Topics
// -----------------------------------------------------------------------------

// Topic is a sequence of path tokens, e.g. {"indicator", "status"}.
// Subscription topics may contain the wildcards "+" (one token) and "#"
// (all remaining tokens). Publish topics must be concrete.
type Topic []string

// T builds a topic from its tokens.
func T(tokens ...string) Topic { return Topic(tokens) }

// Append returns a new topic with extra tokens added.
func (t Topic) Append(tokens ...string) Topic {
	out := make(Topic, 0, len(t)+len(tokens))
	out = append(out, t...)
	out = append(out, tokens...)
	return out
}

func (t Topic) Len() int { return len(t) }

// At returns the i-th token, or "" when out of range.
func (t Topic) At(i int) string {
	if i < 0 || i >= len(t) {
		return ""
	}
	return t[i]
}

func (t Topic) String() string { return strings.Join(t, "/") }

// HasWildcard reports whether the topic contains "+" or "#".
func (t Topic) HasWildcard() bool {
	for _, tok := range t {
		if tok == "+" || tok == "#" {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection // owning connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// send delivers without blocking; the oldest queued message is dropped
// when the subscriber queue is full.
func (s *Subscription) send(msg *Message) {
	select {
	case s.ch <- msg:
	default:
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- msg:
		default:
		}
	}
}

// -----------------------------------------------------------------------------
// Trie node
// -----------------------------------------------------------------------------

type node struct {
	children map[string]*node
	subs     []*Subscription
	retained *Message
}

func (n *node) child(tok string, create bool) *node {
	if n.children == nil {
		if !create {
			return nil
		}
		n.children = make(map[string]*node)
	}
	c, ok := n.children[tok]
	if !ok {
		if !create {
			return nil
		}
		c = &node{}
		n.children[tok] = c
	}
	return c
}

func (n *node) fanout(msg *Message) {
	for _, sub := range n.subs {
		sub.send(msg)
	}
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu   sync.Mutex
	root *node
	qLen int
}

// NewBus creates a new bus with the given subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8 // safe default
	}
	return &Bus{
		root: &node{},
		qLen: queueLen,
	}
}

// NewMessage builds a message for this bus.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// Publish delivers a message to every subscription matching its topic.
// The topic must be concrete; wildcard publishes are dropped.
func (b *Bus) Publish(msg *Message) {
	if msg.Topic.HasWildcard() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.deliver(b.root, msg.Topic, msg)

	if msg.Retained {
		n := b.root
		for _, tok := range msg.Topic {
			n = n.child(tok, true)
		}
		if msg.Payload == nil {
			n.retained = nil
		} else {
			n.retained = msg
		}
	}
}

// deliver walks the trie, fanning out to exact, "+" and "#" branches.
func (b *Bus) deliver(n *node, tokens Topic, msg *Message) {
	if h := n.child("#", false); h != nil {
		h.fanout(msg)
	}
	if len(tokens) == 0 {
		n.fanout(msg)
		return
	}
	if c := n.child(tokens[0], false); c != nil {
		b.deliver(c, tokens[1:], msg)
	}
	if p := n.child("+", false); p != nil {
		b.deliver(p, tokens[1:], msg)
	}
}

// addSubscription inserts a subscription into the trie and replays any
// retained messages its topic matches.
func (b *Bus) addSubscription(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, tok := range sub.topic {
		n = n.child(tok, true)
	}
	n.subs = append(n.subs, sub)

	b.replayRetained(b.root, sub.topic, sub)
}

// replayRetained delivers stored retained messages matching a (possibly
// wildcarded) subscription topic.
func (b *Bus) replayRetained(n *node, pattern Topic, sub *Subscription) {
	if len(pattern) == 0 {
		if n.retained != nil {
			sub.send(n.retained)
		}
		return
	}
	switch tok := pattern[0]; tok {
	case "#":
		b.replayAll(n, sub)
	case "+":
		for _, c := range n.children {
			b.replayRetained(c, pattern[1:], sub)
		}
	default:
		if c := n.child(tok, false); c != nil {
			b.replayRetained(c, pattern[1:], sub)
		}
	}
}

func (b *Bus) replayAll(n *node, sub *Subscription) {
	if n.retained != nil {
		sub.send(n.retained)
	}
	for _, c := range n.children {
		b.replayAll(c, sub)
	}
}

// unsubscribe removes a subscription from the trie and prunes empty nodes.
func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	var stack []*node
	for _, tok := range sub.topic {
		c := n.child(tok, false)
		if c == nil {
			return
		}
		stack = append(stack, n)
		n = c
	}

	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}

	for i := len(sub.topic) - 1; i >= 0; i-- {
		parent := stack[i]
		key := sub.topic[i]
		child := parent.children[key]
		if len(child.subs) == 0 && len(child.children) == 0 && child.retained == nil {
			delete(parent.children, key)
		} else {
			break
		}
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	subs []*Subscription
	mu   sync.Mutex
	id   string // placeholder for future identity/auth
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{
		bus: b,
		id:  id,
	}
}

// NewMessage builds a message for publication on this connection's bus.
func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) {
	c.bus.Publish(msg)
}

// Subscribe registers a subscription owned by this connection.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.bus.addSubscription(sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription owned by this connection.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	close(sub.ch)
}

// Disconnect closes all subscriptions and clears them.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub)
		close(sub.ch)
	}
}
