package types

import (
	"context"
	"log"
	"sync"
)

// PostFn queues msg on the bus. It blocks while the bus is full and gives
// up once the bus context is done.
type PostFn = func(msg Message)

// MessageHandler is a participant on the bus. Run is called once, before any
// message is delivered, and must start its own goroutines. Receive is called
// on the bus goroutine for every message and must not block: a handler whose
// Receive waits on its own worker while that worker is posting stalls the
// whole bus.
type MessageHandler interface {
	Run(ctx context.Context, wg *sync.WaitGroup, post PostFn)
	Receive(message Message)
}

type MessageBus struct {
	bus       chan Message
	receivers []MessageHandler
}

func NewMessageBus(bus chan Message, receivers ...MessageHandler) *MessageBus {
	return &MessageBus{bus, receivers}
}

func (mb *MessageBus) Run(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	defer wg.Done()

	busCapacity := cap(mb.bus)
	post := func(msg Message) {
		busLen := len(mb.bus)
		if busLen > busCapacity/2 {
			log.Printf("WARNING: Bus capacity over 50%% [ %d / %d ]", busLen, busCapacity)
		}
		select {
		case mb.bus <- msg:
		case <-ctx.Done():
		}
	}

	for _, x := range mb.receivers {
		x.Run(ctx, wg, post)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-mb.bus:
			for _, x := range mb.receivers {
				x.Receive(msg)
			}
		}
	}
}
