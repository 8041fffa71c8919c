package telemetry

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/symonb/drone-knr/internal/types"
	"github.com/symonb/drone-knr/internal/vehicle"
)

const DefaultInterval = time.Second

type telemetry struct {
	deviceID string
	pose     vehicle.PoseSource
	state    *vehicle.State
	clock    clock.Clock
	interval time.Duration
}

// New posts a telemetry report to every transport once per interval.
func New(deviceID string, pose vehicle.PoseSource, state *vehicle.State, clk clock.Clock, interval time.Duration) types.MessageHandler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &telemetry{deviceID, pose, state, clk, interval}
}

func (t *telemetry) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		t.startSendingTelemetry(ctx, post)
	}()
}

func (t *telemetry) Receive(message types.Message) {
}

func (t *telemetry) startSendingTelemetry(ctx context.Context, post types.PostFn) {
	ticker := t.clock.Ticker(t.interval)
	defer ticker.Stop()

	unavailable := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, ok := t.sample(ctx)
			if !ok {
				if !unavailable {
					log.Printf("Telemetry: vehicle link unavailable, skipping reports")
				}
				unavailable = true
				continue
			}
			unavailable = false
			post(types.CreateMessage(types.Telemetry, t.deviceID, types.Broadcast, report))
		}
	}
}

// sample reads the vehicle once. ok is false when no field could be read.
func (t *telemetry) sample(ctx context.Context) (types.TelemetryReport, bool) {
	report := types.TelemetryReport{
		Timestamp: t.clock.Now().UnixNano() / 1000,
		Readiness: t.state.Get().String(),
	}
	if a, err := t.pose.CurrentAttitude(ctx); err == nil {
		report.Attitude = &a
	}
	if l, err := t.pose.CurrentLocal(ctx); err == nil {
		report.Local = &l
	}
	if g, err := t.pose.CurrentGlobal(ctx); err == nil {
		report.Global = &g
	}
	return report, report.Attitude != nil || report.Local != nil || report.Global != nil
}
