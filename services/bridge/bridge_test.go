package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/require"

	"statusled-go/bus"
	"statusled-go/errcode"
	"statusled-go/services/config"
	"statusled-go/types"
)

type fakePublish struct {
	Topic    string
	Retained bool
	Payload  []byte
}

type fakePublisher struct {
	mu     sync.Mutex
	out    chan fakePublish
	closed bool
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{out: make(chan fakePublish, 32)}
}

func (p *fakePublisher) Publish(topic string, retained bool, payload []byte) error {
	p.out <- fakePublish{Topic: topic, Retained: retained, Payload: payload}
	return nil
}

func (p *fakePublisher) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *fakePublisher) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakePublisher) next(t *testing.T) fakePublish {
	t.Helper()
	select {
	case m := <-p.out:
		return m
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for forwarded publish")
		return fakePublish{}
	}
}

func waitState(t *testing.T, sub *bus.Subscription, level, status string) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case msg := <-sub.Channel():
			st, ok := msg.Payload.(State)
			require.True(t, ok, "unexpected payload %T", msg.Payload)
			if st.Level == level && st.Status == status {
				return
			}
		case <-deadline:
			t.Fatalf("timeout waiting for bridge state %s/%s", level, status)
		}
	}
}

func TestBridgeForwardsTraffic(t *testing.T) {
	defer leaktest.Check(t)()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.NewBus(16)
	pub := newFakePublisher()
	svc := NewService(func(cfg config.Bridge) (Publisher, error) {
		require.Equal(t, "tcp://broker.local:1883", cfg.Broker)
		return pub, nil
	})

	done := make(chan struct{})
	go func() {
		svc.Run(ctx, b.NewConnection("bridge"))
		close(done)
	}()

	client := b.NewConnection("test")
	stateSub := client.Subscribe(bus.T("bridge", "state"))
	waitState(t, stateSub, "idle", "awaiting_config")

	client.Publish(client.NewMessage(bus.T("config", "bridge"), config.Bridge{
		Enabled:     true,
		Broker:      "tcp://broker.local:1883",
		TopicPrefix: "devices/collar",
	}, true))
	waitState(t, stateSub, "up", "")

	status := types.IndicatorStatus{Status: types.StatusBLEPairing, Phase: types.PhaseActive}
	client.Publish(client.NewMessage(bus.T("indicator", "status"), status, true))

	fwd := pub.next(t)
	require.Equal(t, "devices/collar/indicator/status", fwd.Topic)
	require.True(t, fwd.Retained)
	var got types.IndicatorStatus
	require.NoError(t, json.Unmarshal(fwd.Payload, &got))
	require.Equal(t, status, got)

	client.Publish(client.NewMessage(bus.T("battery", "state"),
		types.BatteryStateChange{Old: types.BatteryNormal, New: types.BatteryLow}, true))
	fwd = pub.next(t)
	require.Equal(t, "devices/collar/battery/state", fwd.Topic)

	cancel()
	<-done
	require.Eventually(t, pub.Closed, time.Second, time.Millisecond)
	client.Disconnect()
}

func TestBridgeDisabledConfig(t *testing.T) {
	defer leaktest.Check(t)()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.NewBus(16)
	dialed := false
	svc := NewService(func(config.Bridge) (Publisher, error) {
		dialed = true
		return newFakePublisher(), nil
	})

	done := make(chan struct{})
	go func() {
		svc.Run(ctx, b.NewConnection("bridge"))
		close(done)
	}()

	client := b.NewConnection("test")
	stateSub := client.Subscribe(bus.T("bridge", "state"))
	waitState(t, stateSub, "idle", "awaiting_config")

	client.Publish(client.NewMessage(bus.T("config", "bridge"),
		config.Bridge{Enabled: false}, true))
	waitState(t, stateSub, "idle", "disabled")
	require.False(t, dialed)

	cancel()
	<-done
	client.Disconnect()
}

func TestBridgeReconfigureReplacesLink(t *testing.T) {
	defer leaktest.Check(t)()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.NewBus(16)
	var mu sync.Mutex
	var pubs []*fakePublisher
	svc := NewService(func(config.Bridge) (Publisher, error) {
		p := newFakePublisher()
		mu.Lock()
		pubs = append(pubs, p)
		mu.Unlock()
		return p, nil
	})

	done := make(chan struct{})
	go func() {
		svc.Run(ctx, b.NewConnection("bridge"))
		close(done)
	}()

	client := b.NewConnection("test")
	stateSub := client.Subscribe(bus.T("bridge", "state"))
	waitState(t, stateSub, "idle", "awaiting_config")

	cfg := config.Bridge{Enabled: true, Broker: "tcp://a:1883", TopicPrefix: "a"}
	client.Publish(client.NewMessage(bus.T("config", "bridge"), cfg, true))
	waitState(t, stateSub, "up", "")

	cfg.Broker, cfg.TopicPrefix = "tcp://b:1883", "b"
	client.Publish(client.NewMessage(bus.T("config", "bridge"), cfg, true))
	waitState(t, stateSub, "up", "")

	mu.Lock()
	require.Len(t, pubs, 2)
	first, second := pubs[0], pubs[1]
	mu.Unlock()
	require.Eventually(t, first.Closed, time.Second, time.Millisecond)

	client.Publish(client.NewMessage(bus.T("battery", "value"),
		types.BatteryReading{Percent: 50}, false))
	fwd := second.next(t)
	require.Equal(t, "b/battery/value", fwd.Topic)

	cancel()
	<-done
	client.Disconnect()
}

func TestDecodeConfig(t *testing.T) {
	cfg, err := decodeConfig(map[string]any{
		"enabled":      true,
		"broker":       "tcp://x:1883",
		"topic_prefix": "p",
	})
	require.NoError(t, err)
	require.Equal(t, config.Bridge{Enabled: true, Broker: "tcp://x:1883", TopicPrefix: "p"}, cfg)

	_, err = decodeConfig(42)
	require.Equal(t, errcode.InvalidPayload, errcode.Of(err))
}
