package handler

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/symonb/drone-knr/internal/types"
	"github.com/symonb/drone-knr/internal/vehicle"
)

// Handler owns the vehicle on the message bus. Queries are answered inline;
// arm, takeoff, land and goto each run in their own goroutine and may overlap.
type Handler struct {
	deviceID string
	vehicle  *vehicle.Vehicle
	clock    clock.Clock
	inbox    chan types.Message
	post     types.PostFn

	mu      sync.Mutex
	actions map[string]*action
	running sync.WaitGroup
}

type action struct {
	id        string
	kind      string
	startedAt time.Time
	cancel    context.CancelFunc
}

func New(deviceID string, v *vehicle.Vehicle, clk clock.Clock) *Handler {
	return &Handler{
		deviceID: deviceID,
		vehicle:  v,
		clock:    clk,
		inbox:    make(chan types.Message, 32),
		actions:  make(map[string]*action),
	}
}

func (h *Handler) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	h.post = post
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.runMessageLoop(ctx, post)
	}()
}

// Receive queues requests addressed to this device. Everything else is ignored.
// A request arriving while the inbox is full is rejected instead of blocking
// the bus, which the message loop may itself be waiting on.
func (h *Handler) Receive(message types.Message) {
	if message.To != h.deviceID || !types.IsRequest(message.MessageType) {
		return
	}
	select {
	case h.inbox <- message:
	default:
		log.Printf("Drone handler inbox full, dropping %s %s", message.MessageType, message.ID)
		if h.post != nil {
			go reject(message, errors.New("drone handler inbox full"), h.post)
		}
	}
}

func (h *Handler) runMessageLoop(ctx context.Context, post types.PostFn) {
	for {
		select {
		case <-ctx.Done():
			log.Println("Drone handler shutting down")
			h.cancelAll()
			h.running.Wait()
			return
		case msg := <-h.inbox:
			h.handle(ctx, msg, post)
		}
	}
}

func (h *Handler) handle(ctx context.Context, msg types.Message, post types.PostFn) {
	switch m := msg.Message.(type) {
	case types.AttitudeQuery:
		attitude, err := h.vehicle.Link.CurrentAttitude(ctx)
		if err != nil {
			reject(msg, err, post)
			return
		}
		post(msg.Reply(types.AttitudeReply, attitude))
	case types.LocationRelativeQuery:
		local, err := h.vehicle.Link.CurrentLocal(ctx)
		if err != nil {
			reject(msg, err, post)
			return
		}
		post(msg.Reply(types.LocationRelativeReply, local))
	case types.StatusRequest:
		post(msg.Reply(types.StatusReply, h.Status()))
	case types.CancelRequest:
		cancelled := h.Cancel(m.ID)
		post(msg.Reply(types.CancelResult, types.CancelResponse{ID: m.ID, Cancelled: cancelled}))
	case types.ArmRequest:
		h.start(ctx, msg, types.ArmResult, post, func(actx context.Context) (vehicle.Result, error) {
			return resultOf(h.vehicle.Arming.Arm(actx))
		})
	case types.TakeoffRequest:
		if m.Altitude <= 0 {
			reject(msg, errors.Errorf("invalid takeoff altitude %.2f", m.Altitude), post)
			return
		}
		h.start(ctx, msg, types.TakeoffResult, post, func(actx context.Context) (vehicle.Result, error) {
			return resultOf(h.vehicle.Takeoff.Takeoff(actx, m.Altitude))
		})
	case types.LandRequest:
		h.start(ctx, msg, types.LandResult, post, func(actx context.Context) (vehicle.Result, error) {
			return resultOf(h.vehicle.Land.Land(actx))
		})
	case types.GotoRelativeRequest:
		h.startGoto(ctx, msg, vehicle.Request{Frame: vehicle.FrameLocalNED, Local: m.LocalPose}, post)
	case types.GotoGlobalRequest:
		h.startGoto(ctx, msg, vehicle.Request{Frame: vehicle.FrameGlobalRelativeAlt, Global: m.GlobalPose}, post)
	default:
		log.Printf("Drone handler: unexpected payload %T for %s", msg.Message, msg.MessageType)
	}
}

func (h *Handler) startGoto(ctx context.Context, msg types.Message, req vehicle.Request, post types.PostFn) {
	h.start(ctx, msg, types.GotoResult, post, func(actx context.Context) (vehicle.Result, error) {
		return h.vehicle.Goto.Goto(actx, req, func(p vehicle.Progress) {
			post(msg.Reply(types.GotoProgress, types.ActionProgress{ID: msg.ID, Distance: p.Distance}))
		})
	})
}

// start registers the action under the message id and runs it in its own
// goroutine. Gotos are acknowledged before they start emitting progress.
func (h *Handler) start(ctx context.Context, msg types.Message, resultType string, post types.PostFn, run func(context.Context) (vehicle.Result, error)) {
	h.mu.Lock()
	if _, ok := h.actions[msg.ID]; ok {
		h.mu.Unlock()
		reject(msg, errors.Errorf("action %s already running", msg.ID), post)
		return
	}
	actx, cancel := context.WithCancel(ctx)
	h.actions[msg.ID] = &action{id: msg.ID, kind: msg.MessageType, startedAt: h.clock.Now(), cancel: cancel}
	h.mu.Unlock()

	log.Printf("Action %s (%s) started", msg.ID, msg.MessageType)
	if resultType == types.GotoResult {
		post(msg.Reply(types.GotoAccepted, types.ActionAccepted{ID: msg.ID, Action: msg.MessageType}))
	}
	h.running.Add(1)
	go func() {
		defer h.running.Done()
		defer cancel()

		res, err := run(actx)

		h.mu.Lock()
		delete(h.actions, msg.ID)
		h.mu.Unlock()

		out := types.ActionResult{ID: msg.ID, Action: msg.MessageType, Result: res.Code}
		if err != nil {
			log.Printf("Action %s (%s) failed: %v", msg.ID, msg.MessageType, err)
			out.Error = err.Error()
		} else {
			log.Printf("Action %s (%s) finished", msg.ID, msg.MessageType)
		}
		post(msg.Reply(resultType, out))
	}()
}

// Cancel stops the action with the given id. It reports false if no such
// action is running.
func (h *Handler) Cancel(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	a, ok := h.actions[id]
	if !ok {
		return false
	}
	log.Printf("Cancelling action %s (%s)", id, a.kind)
	a.cancel()
	return true
}

func (h *Handler) cancelAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, a := range h.actions {
		a.cancel()
	}
}

// Status reports readiness, arming state and the running actions, oldest first.
func (h *Handler) Status() types.Status {
	h.mu.Lock()
	actions := make([]types.ActionStatus, 0, len(h.actions))
	for _, a := range h.actions {
		actions = append(actions, types.ActionStatus{ID: a.id, Action: a.kind, State: "running", StartedAt: a.startedAt})
	}
	h.mu.Unlock()

	sort.Slice(actions, func(i, j int) bool {
		if actions[i].StartedAt.Equal(actions[j].StartedAt) {
			return actions[i].ID < actions[j].ID
		}
		return actions[i].StartedAt.Before(actions[j].StartedAt)
	})

	return types.Status{
		Readiness: h.vehicle.State.Get().String(),
		ArmState:  h.vehicle.Arming.State().String(),
		Actions:   actions,
	}
}

func reject(msg types.Message, err error, post types.PostFn) {
	log.Printf("Rejecting %s %s: %v", msg.MessageType, msg.ID, err)
	post(msg.Reply(types.CommandRejected, types.Rejected{Command: msg.MessageType, Reason: err.Error()}))
}

func resultOf(err error) (vehicle.Result, error) {
	if err != nil {
		return vehicle.Result{Code: vehicle.ResultAborted}, err
	}
	return vehicle.Result{Code: vehicle.ResultSucceeded}, nil
}
