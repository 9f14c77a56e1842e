// bridge/mqtt.go
package bridge

import (
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"statusled-go/errcode"
	"statusled-go/services/config"
)

const connectTimeout = 10 * time.Second

type mqttPublisher struct {
	client mqtt.Client
}

// DialMQTT connects a paho client for the given configuration.
func DialMQTT(cfg config.Bridge) (Publisher, error) {
	id := cfg.ClientID
	if id == "" {
		id = "statusled-" + uuid.NewString()[:8]
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(id).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(connectTimeout)

	client := mqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		client.Disconnect(0)
		return nil, errcode.Timeout
	}
	if err := tok.Error(); err != nil {
		return nil, err
	}
	return &mqttPublisher{client: client}, nil
}

func (p *mqttPublisher) Publish(topic string, retained bool, payload []byte) error {
	tok := p.client.Publish(topic, 0, retained, payload)
	tok.Wait()
	return tok.Error()
}

func (p *mqttPublisher) Close() {
	p.client.Disconnect(250)
}
