package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"github.com/symonb/drone-knr/internal/types"
)

// Name is the bus address of the MQTT transport.
const Name = "mqtt"

// subfolders lists the commands accepted under each /devices/<id>/commands/<subfolder>.
var subfolders = map[string][]string{
	"control": {types.Arm, types.Takeoff, types.Land, types.Cancel, types.GetStatus},
	"goto":    {types.GotoRelative, types.GotoGlobal},
	"query":   {types.GetAttitude, types.GetLocationRelative},
}

func commandTopic(deviceID string) string {
	return fmt.Sprintf("/devices/%s/commands/", deviceID)
}

func eventTopic(deviceID, messageType string) string {
	return fmt.Sprintf("/devices/%s/events/%s", deviceID, messageType)
}

// decodeCommand turns a payload received on topic into a bus message for deviceID.
func decodeCommand(topic string, payload []byte, deviceID string) (types.Message, error) {
	subfolder := strings.TrimPrefix(topic, commandTopic(deviceID))
	allowed, ok := subfolders[subfolder]
	if !ok {
		return types.Message{}, errors.Errorf("unknown command subfolder: %v", subfolder)
	}

	msg, err := types.DecodeCommand(payload, Name, deviceID)
	if err != nil {
		return types.Message{}, err
	}
	for _, c := range allowed {
		if c == msg.MessageType {
			return msg, nil
		}
	}
	return types.Message{}, errors.Errorf("command %s not accepted on %s", msg.MessageType, subfolder)
}

// isTrustCommand reports whether payload on topic is a control initialize-trust command.
func isTrustCommand(topic string, payload []byte, deviceID string) bool {
	if topic != commandTopic(deviceID)+"control" {
		return false
	}
	var cmd types.Command
	return json.Unmarshal(payload, &cmd) == nil && cmd.Command == InitializeTrust
}

type transport struct {
	client   mqtt.Client
	deviceID string
	keyPath  string
}

// New bridges the message bus and the MQTT broker: commands are posted to the
// device and every reply addressed to this transport is published as an event.
func New(client mqtt.Client, cfg Config, deviceID string) types.MessageHandler {
	return &transport{client, deviceID, cfg.SSHKeyPath}
}

func (t *transport) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	log.Printf("Subscribing to MQTT commands")
	topic := commandTopic(t.deviceID)
	token := t.client.Subscribe(fmt.Sprintf("%v#", topic), QoS, func(client mqtt.Client, m mqtt.Message) {
		log.Printf("Got command on %s: %v", m.Topic(), string(m.Payload()))
		if isTrustCommand(m.Topic(), m.Payload(), t.deviceID) {
			log.Printf("Initializing trust with backend")
			go initializeTrust(client, t.deviceID, t.keyPath)
			return
		}
		msg, err := decodeCommand(m.Topic(), m.Payload(), t.deviceID)
		if err != nil {
			log.Printf("Could not decode command: %v", err)
			t.publish(types.CreateMessage(types.CommandRejected, t.deviceID, Name, types.Rejected{
				Command: strings.TrimPrefix(m.Topic(), topic),
				Reason:  err.Error(),
			}))
			return
		}
		post(msg)
	})
	if token.Wait() && token.Error() != nil {
		log.Printf("Error on subscribe: %v", token.Error())
	}

	t.publishDeviceState()

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		t.client.Unsubscribe(fmt.Sprintf("%v#", topic))
	}()
}

func (t *transport) Receive(message types.Message) {
	if !message.Addressed(Name) {
		return
	}
	t.publish(message)
}

func (t *transport) publish(message types.Message) {
	b, err := json.Marshal(message)
	if err != nil {
		log.Printf("Could not marshal %s: %v", message.MessageType, err)
		return
	}
	t.client.Publish(eventTopic(t.deviceID, message.MessageType), QoS, Retain, b)
}

func (t *transport) publishDeviceState() {
	topic := fmt.Sprintf("/devices/%s/state", t.deviceID)
	msg := types.DeviceStarted{
		StartedAt: time.Now().UTC(),
		Message:   "drone handler started",
	}
	b, _ := json.Marshal(msg)
	t.client.Publish(topic, QoS, Retain, b)
}
