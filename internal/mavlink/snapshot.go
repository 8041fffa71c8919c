package mavlink

import (
	"sync"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
)

// snapshot caches the latest telemetry streamed by the vehicle.
type snapshot struct {
	mu sync.RWMutex

	systemID    uint8
	componentID uint8
	heartbeat   *common.MessageHeartbeat
	heartbeatAt time.Time
	local       *common.MessageLocalPositionNed
	global      *common.MessageGlobalPositionInt
	attitude    *common.MessageAttitude
	gps         *common.MessageGpsRawInt

	once      sync.Once
	connected chan struct{}
}

func newSnapshot() *snapshot {
	return &snapshot{connected: make(chan struct{})}
}

// handle stores msg if it comes from the vehicle. The vehicle is the first
// system that sends a heartbeat with a real autopilot; everything else is ignored.
func (s *snapshot) handle(systemID, componentID uint8, msg message.Message, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if hb, ok := msg.(*common.MessageHeartbeat); ok {
		if hb.Autopilot == common.MAV_AUTOPILOT_INVALID {
			return
		}
		if s.heartbeat == nil {
			s.systemID, s.componentID = systemID, componentID
		}
		if systemID != s.systemID {
			return
		}
		s.heartbeat, s.heartbeatAt = hb, now
		s.once.Do(func() { close(s.connected) })
		return
	}

	if s.heartbeat == nil || systemID != s.systemID {
		return
	}
	switch m := msg.(type) {
	case *common.MessageLocalPositionNed:
		s.local = m
	case *common.MessageGlobalPositionInt:
		s.global = m
	case *common.MessageAttitude:
		s.attitude = m
	case *common.MessageGpsRawInt:
		s.gps = m
	}
}

func (s *snapshot) target() (uint8, uint8) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.systemID, s.componentID
}
