// bridge/bridge.go
package bridge

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"statusled-go/bus"
	"statusled-go/errcode"
	"statusled-go/services/config"
	"statusled-go/x/timex"
)

// -----------------------------------------------------------------------------
// Public entry point
// -----------------------------------------------------------------------------

// Start runs the bridge service. It blocks until ctx is cancelled.
// It listens for configuration on config/bridge and (re)configures the link.
func Start(ctx context.Context, conn *bus.Connection) {
	NewService(DialMQTT).run(ctx, conn)
}

// -----------------------------------------------------------------------------
// Service
// -----------------------------------------------------------------------------

// Publisher is the outbound side of a link.
type Publisher interface {
	Publish(topic string, retained bool, payload []byte) error
	Close()
}

// Dialer opens a link for a configuration.
type Dialer func(cfg config.Bridge) (Publisher, error)

// State is the retained service state on bridge/state.
type State struct {
	Level  string `json:"level"`  // "idle", "up", "error"
	Status string `json:"status"` // short code
	TSms   int64  `json:"ts_ms"`
}

type Service struct {
	dial Dialer
	conn *bus.Connection

	mu     sync.Mutex
	curRun context.CancelFunc
}

func NewService(dial Dialer) *Service {
	return &Service{dial: dial}
}

// Run blocks until ctx is cancelled, supervising at most one link.
func (s *Service) Run(ctx context.Context, conn *bus.Connection) {
	s.run(ctx, conn)
}

func (s *Service) run(ctx context.Context, conn *bus.Connection) {
	s.conn = conn
	cfgSub := conn.Subscribe(bus.T("config", "bridge"))
	defer conn.Unsubscribe(cfgSub)

	s.publishState("idle", "awaiting_config")

	for {
		select {
		case <-ctx.Done():
			s.stopCurrent()
			return
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				s.publishState("error", "config_subscription_closed")
				return
			}
			cfg, err := decodeConfig(msg.Payload)
			if err != nil {
				s.publishState("error", string(errcode.Of(err)))
				continue
			}
			s.reconfigure(ctx, cfg)
		}
	}
}

// decodeConfig accepts the typed section or a JSON-like map.
func decodeConfig(payload any) (config.Bridge, error) {
	switch p := payload.(type) {
	case config.Bridge:
		return p, nil
	case map[string]any:
		b, err := json.Marshal(p)
		if err != nil {
			return config.Bridge{}, &errcode.E{C: errcode.ConfigDecode, Op: "bridge.decodeConfig", Err: err}
		}
		var cfg config.Bridge
		if err := json.Unmarshal(b, &cfg); err != nil {
			return config.Bridge{}, &errcode.E{C: errcode.ConfigDecode, Op: "bridge.decodeConfig", Err: err}
		}
		return cfg, nil
	default:
		return config.Bridge{}, errcode.InvalidPayload
	}
}

func (s *Service) stopCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
}

func (s *Service) reconfigure(parent context.Context, cfg config.Bridge) {
	s.stopCurrent()

	if !cfg.Enabled {
		s.publishState("idle", "disabled")
		return
	}

	pub, err := s.dial(cfg)
	if err != nil {
		log.Printf("bridge: dial %s: %v", cfg.Broker, err)
		s.publishState("error", string(errcode.LinkDown))
		return
	}

	ctx, cancel := context.WithCancel(parent)
	s.mu.Lock()
	s.curRun = cancel
	s.mu.Unlock()

	// Subscribe before announcing the link so nothing published after the
	// state change can be missed.
	indSub := s.conn.Subscribe(bus.T("indicator", "#"))
	batSub := s.conn.Subscribe(bus.T("battery", "#"))
	s.publishState("up", "")
	go s.linkLoop(ctx, cfg, pub, indSub, batSub)
}

// linkLoop forwards indicator and battery traffic outward until cancelled.
func (s *Service) linkLoop(ctx context.Context, cfg config.Bridge, pub Publisher, indSub, batSub *bus.Subscription) {
	defer pub.Close()
	defer s.conn.Unsubscribe(indSub)
	defer s.conn.Unsubscribe(batSub)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-indSub.Channel():
			s.forward(cfg, pub, msg)
		case msg := <-batSub.Channel():
			s.forward(cfg, pub, msg)
		}
	}
}

func (s *Service) forward(cfg config.Bridge, pub Publisher, msg *bus.Message) {
	if msg == nil || msg.Payload == nil {
		return
	}
	payload, err := json.Marshal(msg.Payload)
	if err != nil {
		log.Printf("bridge: encode %s: %v", msg.Topic, err)
		return
	}
	topic := cfg.TopicPrefix + "/" + msg.Topic.String()
	if err := pub.Publish(topic, msg.Retained, payload); err != nil {
		log.Printf("bridge: publish %s: %v", topic, err)
	}
}

func (s *Service) publishState(level, status string) {
	s.conn.Publish(s.conn.NewMessage(bus.T("bridge", "state"), State{
		Level:  level,
		Status: status,
		TSms:   timex.NowMs(),
	}, true))
}
