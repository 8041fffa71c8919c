package types

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

type logger struct {
	quiet map[string]bool
}

// NewLogger prints every message on the bus except the high-rate ones.
func NewLogger() MessageHandler {
	return &logger{map[string]bool{
		GotoProgress: true,
		Telemetry:    true,
	}}
}

func (l *logger) Receive(message Message) {
	if l.quiet[message.MessageType] {
		return
	}

	b, _ := json.Marshal(message.Message)
	log.Printf("Message: %s (%s -> %s): %s", message.MessageType, message.From, message.To, string(b))
}

func (l *logger) Run(ctx context.Context, wg *sync.WaitGroup, post PostFn) {
}
