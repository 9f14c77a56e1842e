package indicator

import (
	"context"

	"statusled-go/bus"
	"statusled-go/errcode"
	"statusled-go/types"
	"statusled-go/x/timex"
)

var (
	topicCtrlSet  = bus.T("indicator", "control", "set")
	topicCtrlStop = bus.T("indicator", "control", "stop")
	topicStatus   = bus.T("indicator", "status")
)

// Service exposes an engine on the bus: control messages in, retained status
// out.
type Service struct {
	eng  *Engine
	conn *bus.Connection
}

func NewService(eng *Engine) *Service {
	return &Service{eng: eng}
}

// Start installs the status observer and launches the control loop. It
// returns immediately; the loop runs until ctx is cancelled.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	s.conn = conn
	s.eng.SetNotify(func(st types.Status, ph types.Phase) {
		conn.Publish(conn.NewMessage(topicStatus, types.IndicatorStatus{
			Status: st,
			Phase:  ph,
			TSms:   timex.NowMs(),
		}, true))
	})
	// Subscribe before launching the loop so control messages published as
	// soon as Start returns are never dropped.
	setSub := conn.Subscribe(topicCtrlSet)
	stopSub := conn.Subscribe(topicCtrlStop)
	go s.serviceLoop(ctx, conn, setSub, stopSub)
	return nil
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, setSub, stopSub *bus.Subscription) {
	defer conn.Unsubscribe(setSub)
	defer conn.Unsubscribe(stopSub)

	s.publishStatus()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-setSub.Channel():
			s.handleSet(msg)
		case msg := <-stopSub.Channel():
			s.eng.Stop()
			s.reply(msg, nil)
		}
	}
}

func (s *Service) handleSet(msg *bus.Message) {
	status, ok := decodeSet(msg.Payload)
	if !ok {
		s.reply(msg, errcode.InvalidPayload)
		return
	}
	s.reply(msg, s.eng.Set(status))
}

// decodeSet accepts the typed payload, a bare status string, or the
// JSON-object form produced by external config.
func decodeSet(payload any) (types.Status, bool) {
	switch p := payload.(type) {
	case types.IndicatorSet:
		return p.Status, true
	case types.Status:
		return p, true
	case string:
		return types.Status(p), true
	case map[string]any:
		if v, ok := p["status"].(string); ok {
			return types.Status(v), true
		}
	}
	return "", false
}

func (s *Service) publishStatus() {
	s.conn.Publish(s.conn.NewMessage(topicStatus, types.IndicatorStatus{
		Status: s.eng.Current(),
		Phase:  s.eng.Phase(),
		TSms:   timex.NowMs(),
	}, true))
}

func (s *Service) reply(msg *bus.Message, err error) {
	if msg.ReplyTo == nil {
		return
	}
	var payload any = types.OKReply{OK: true}
	if err != nil {
		payload = types.ErrorReply{Error: string(errcode.Of(err))}
	}
	s.conn.Publish(s.conn.NewMessage(msg.ReplyTo, payload, false))
}
