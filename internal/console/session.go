package console

import (
	"sync"
	"time"

	"github.com/skobkin/serialwifi/internal/bus"
	"github.com/skobkin/serialwifi/internal/domain"
	"github.com/skobkin/serialwifi/internal/events"
)

// Snapshot is a consistent view of the session at revision Rev.
type Snapshot struct {
	Rev     uint64                  `json:"rev"`
	Status  events.ConnectionStatus `json:"status"`
	Device  domain.DeviceInfo       `json:"device"`
	Entries []domain.LogEntry       `json:"entries"`
}

// Session owns the console log, DeviceInfo and the last connection status.
// It outlives individual connections: DeviceInfo is never reset on disconnect.
//
// Every mutation bumps one revision counter and is published on the bus in
// revision order. publishMu serializes publishing; mu guards the state, so a
// slow bus subscriber never blocks Snapshot.
type Session struct {
	publishMu sync.Mutex
	mu        sync.RWMutex
	rev       uint64
	log       *domain.LogBuffer
	device    domain.DeviceInfo
	status    events.ConnectionStatus
	bus       bus.MessageBus
	now       func() time.Time
}

// NewSession creates a session with the given log capacity. b may be nil.
func NewSession(capacity int, b bus.MessageBus) *Session {
	return &Session{
		log:    domain.NewLogBuffer(capacity),
		status: events.ConnectionStatus{State: events.ConnectionStateDisconnected},
		bus:    b,
		now:    time.Now,
	}
}

func (s *Session) System(msg string) domain.LogEntry {
	return s.Log(domain.LogKindSystem, "[system] "+msg)
}

func (s *Session) Error(detail string) domain.LogEntry {
	return s.Log(domain.LogKindError, "[error] "+detail)
}

// Sent records an outgoing line or request.
func (s *Session) Sent(text string) domain.LogEntry {
	return s.Log(domain.LogKindTx, "> "+text)
}

func (s *Session) Log(kind domain.LogKind, text string) domain.LogEntry {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	s.rev++
	ev := events.LogAppended{Rev: s.rev, Entry: s.log.Append(kind, text)}
	s.mu.Unlock()

	s.publish(events.TopicConsoleLog, ev)

	return ev.Entry
}

// HandleRecord routes one framed record: a recognized reply updates
// DeviceInfo and logs the formatted value, anything else is logged verbatim.
func (s *Session) HandleRecord(record string) Route {
	route := RouteRecord(record)

	switch route.Kind {
	case RouteIP:
		s.updateDevice(func(d domain.DeviceInfo) domain.DeviceInfo { return d.WithIP(route.Value) },
			domain.LogKindIP, "[ip] "+route.Value)
	case RouteMACAddress:
		s.updateDevice(func(d domain.DeviceInfo) domain.DeviceInfo { return d.WithMACAddress(route.Value) },
			domain.LogKindMAC, "[mac] "+route.Value)
	default:
		s.Log(domain.LogKindRx, record)
	}

	return route
}

func (s *Session) updateDevice(apply func(domain.DeviceInfo) domain.DeviceInfo, kind domain.LogKind, text string) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	s.device = apply(s.device)
	s.rev++
	deviceEv := events.DeviceInfoChanged{Rev: s.rev, Info: s.device}
	s.rev++
	logEv := events.LogAppended{Rev: s.rev, Entry: s.log.Append(kind, text)}
	s.mu.Unlock()

	s.publish(events.TopicDeviceInfo, deviceEv)
	s.publish(events.TopicConsoleLog, logEv)
}

// SetStatus stores and publishes a connection status. Timestamp is filled in
// when zero.
func (s *Session) SetStatus(status events.ConnectionStatus) events.ConnectionStatus {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	s.rev++
	status.Rev = s.rev
	if status.Timestamp.IsZero() {
		status.Timestamp = s.now()
	}
	s.status = status
	s.mu.Unlock()

	s.publish(events.TopicConnStatus, status)

	return status
}

func (s *Session) Status() events.ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.status
}

func (s *Session) DeviceInfo() domain.DeviceInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.device
}

func (s *Session) Entries() []domain.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.log.Entries()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Rev:     s.rev,
		Status:  s.status,
		Device:  s.device,
		Entries: s.log.Entries(),
	}
}

func (s *Session) publish(topic string, msg any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(topic, msg)
}
