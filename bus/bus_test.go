// bus/bus_test.go
package bus

import (
	"testing"
	"time"
)

func expectOneOf(t *testing.T, sub *Subscription, want any) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		if got.Payload != want {
			t.Errorf("expected payload %v, got %v", want, got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timeout waiting for %v on %s", want, sub.Topic())
	}
}

func expectNoMessage(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		t.Errorf("unexpected message %v on %s", got.Payload, sub.Topic())
	default:
	}
}

func TestBasicPubSub(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("indicator", "status"))

	conn.Publish(conn.NewMessage(T("indicator", "status"), "hello", false))
	expectOneOf(t, sub, "hello")
}

func TestRetainedMessage(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(T("battery", "state"), "persist", true))

	sub := conn.Subscribe(T("battery", "state"))
	expectOneOf(t, sub, "persist")
}

func TestRetainedClear(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(T("battery", "state"), "persist", true))
	conn.Publish(conn.NewMessage(T("battery", "state"), nil, true))

	sub := conn.Subscribe(T("battery", "state"))
	expectNoMessage(t, sub)
}

func TestWildcard_SingleLevel(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	s1 := c.Subscribe(T("a", "+", "c"))
	s2 := c.Subscribe(T("a", "+", "+"))
	s3 := c.Subscribe(T("a", "b", "+"))
	sNo := c.Subscribe(T("a", "+", "d"))

	c.Publish(b.NewMessage(T("a", "b", "c"), "m1", false))

	expectOneOf(t, s1, "m1")
	expectOneOf(t, s2, "m1")
	expectOneOf(t, s3, "m1")
	expectNoMessage(t, sNo)

	c.Publish(b.NewMessage(T("a", "x", "y"), "m2", false))

	expectOneOf(t, s2, "m2")
	expectNoMessage(t, s1)
	expectNoMessage(t, s3)
	expectNoMessage(t, sNo)

	c.Publish(b.NewMessage(T("a", "c"), "m3", false))
	expectNoMessage(t, s1)
	expectNoMessage(t, s2)
	expectNoMessage(t, s3)
	expectNoMessage(t, sNo)
}

func TestWildcard_MultiLevel(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	sAHash := c.Subscribe(T("a", "#"))
	sHash := c.Subscribe(T("#"))
	sABHash := c.Subscribe(T("a", "b", "#"))
	sAExact := c.Subscribe(T("a"))

	c.Publish(b.NewMessage(T("a"), "p1", false))
	expectOneOf(t, sAHash, "p1")
	expectOneOf(t, sHash, "p1")
	expectOneOf(t, sAExact, "p1")
	expectNoMessage(t, sABHash)

	c.Publish(b.NewMessage(T("a", "b"), "p2", false))
	expectOneOf(t, sAHash, "p2")
	expectOneOf(t, sHash, "p2")
	expectOneOf(t, sABHash, "p2")
	expectNoMessage(t, sAExact)

	c.Publish(b.NewMessage(T("a", "b", "c"), "p3", false))
	expectOneOf(t, sAHash, "p3")
	expectOneOf(t, sHash, "p3")
	expectOneOf(t, sABHash, "p3")
	expectNoMessage(t, sAExact)
}

func TestWildcard_RetainedDelivery(t *testing.T) {
	b := NewBus(32)
	c := b.NewConnection("test")

	c.Publish(b.NewMessage(T("a"), "r0", true))
	c.Publish(b.NewMessage(T("a", "b"), "r1", true))
	c.Publish(b.NewMessage(T("a", "c"), "r2", true))

	sub := c.Subscribe(T("a", "+"))
	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case m := <-sub.Channel():
			got[m.Payload.(string)] = true
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for retained messages")
		}
	}
	if !got["r1"] || !got["r2"] {
		t.Errorf("expected retained r1 and r2, got %v", got)
	}
	expectNoMessage(t, sub)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")

	sub := c.Subscribe(T("x"))
	sub.Unsubscribe()

	// Channel is closed; publish must not panic.
	c.Publish(b.NewMessage(T("x"), "gone", false))

	if _, ok := <-sub.Channel(); ok {
		t.Error("expected closed channel after unsubscribe")
	}
}

func TestQueueFullDropsOldest(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("test")

	sub := c.Subscribe(T("q"))
	c.Publish(b.NewMessage(T("q"), 1, false))
	c.Publish(b.NewMessage(T("q"), 2, false))
	c.Publish(b.NewMessage(T("q"), 3, false))

	expectOneOf(t, sub, 2)
	expectOneOf(t, sub, 3)
	expectNoMessage(t, sub)
}

func TestDisconnectClosesAll(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")

	s1 := c.Subscribe(T("x"))
	s2 := c.Subscribe(T("y"))
	c.Disconnect()

	if _, ok := <-s1.Channel(); ok {
		t.Error("expected s1 closed")
	}
	if _, ok := <-s2.Channel(); ok {
		t.Error("expected s2 closed")
	}
}
