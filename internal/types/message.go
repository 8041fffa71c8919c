package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Broadcast addresses a message to every transport.
const Broadcast = "*"

type Message struct {
	Timestamp   time.Time   `json:"timestamp"`
	From        string      `json:"from"`
	To          string      `json:"to"`
	ID          string      `json:"id"`
	MessageType string      `json:"message_type"`
	Message     interface{} `json:"message"`
}

// StringMessage is the wire form of Message, with the payload serialized.
type StringMessage struct {
	Timestamp   time.Time `json:"timestamp"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	ID          string    `json:"id"`
	MessageType string    `json:"message_type"`
	Message     string    `json:"message"`
}

// ToStringMessage serializes the payload to JSON for the MQTT and ROS transports.
func (message *Message) ToStringMessage() (StringMessage, error) {
	b, err := json.Marshal(message.Message)
	if err != nil {
		return StringMessage{}, err
	}

	return StringMessage{
		Timestamp:   message.Timestamp,
		From:        message.From,
		To:          message.To,
		ID:          message.ID,
		MessageType: message.MessageType,
		Message:     string(b),
	}, nil
}

// Reply addresses v back to the sender, keeping the correlation id.
func (message *Message) Reply(messageType string, v interface{}) Message {
	return Message{
		time.Now().UTC(),
		message.To,
		message.From,
		message.ID,
		messageType,
		v,
	}
}

// Addressed reports whether a handler called name should take message.
func (message *Message) Addressed(name string) bool {
	return message.To == name || message.To == Broadcast
}

func CreateMessage(messageType, from, to string, message interface{}) Message {
	return Message{
		time.Now().UTC(),
		from,
		to,
		uuid.New().String(),
		messageType,
		message,
	}
}
