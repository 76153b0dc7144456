package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/skobkin/serialwifi/internal/bus"
	"github.com/skobkin/serialwifi/internal/config"
	"github.com/skobkin/serialwifi/internal/events"
	"github.com/skobkin/serialwifi/internal/notifications"
)

const (
	notificationTitleIP  = "Device IP address"
	notificationTitleMAC = "Device MAC address"
)

// NotificationService listens to bus events and emits user-facing notifications.
type NotificationService struct {
	bus           bus.MessageBus
	currentConfig func() config.AppConfig
	sender        notifications.Sender
	logger        *slog.Logger

	mu               sync.Mutex
	lastConnState    events.ConnectionState
	lastConnStateSet bool
	lastIP           *string
	lastMAC          *string
}

func NewNotificationService(
	messageBus bus.MessageBus,
	currentConfig func() config.AppConfig,
	sender notifications.Sender,
	logger *slog.Logger,
) *NotificationService {
	if logger == nil {
		logger = slog.Default().With("component", "app.notifications")
	}

	return &NotificationService{
		bus:           messageBus,
		currentConfig: currentConfig,
		sender:        sender,
		logger:        logger,
	}
}

func (s *NotificationService) Start(ctx context.Context) {
	if s == nil || s.bus == nil || s.sender == nil {
		return
	}

	connSub := s.bus.Subscribe(events.TopicConnStatus)
	deviceSub := s.bus.Subscribe(events.TopicDeviceInfo)

	go func() {
		defer s.bus.Unsubscribe(connSub, events.TopicConnStatus)
		defer s.bus.Unsubscribe(deviceSub, events.TopicDeviceInfo)

		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-connSub:
				if !ok {
					return
				}
				status, ok := raw.(events.ConnectionStatus)
				if !ok {
					continue
				}
				s.handleConnectionStatus(status)
			case raw, ok := <-deviceSub:
				if !ok {
					return
				}
				changed, ok := raw.(events.DeviceInfoChanged)
				if !ok {
					continue
				}
				s.handleDeviceInfo(changed)
			}
		}
	}()
}

func (s *NotificationService) handleConnectionStatus(status events.ConnectionStatus) {
	if status.State == "" {
		return
	}

	s.mu.Lock()
	if s.lastConnStateSet && s.lastConnState == status.State {
		s.mu.Unlock()

		return
	}
	s.lastConnState = status.State
	s.lastConnStateSet = true
	s.mu.Unlock()

	if status.State != events.ConnectionStateConnected &&
		status.State != events.ConnectionStateDisconnected {
		return
	}
	if !s.enabled() {
		return
	}

	transportName := notificationTransportName(status.TransportName)
	if transportName == "" {
		transportName = "Unknown"
	}
	details := strings.TrimSpace(status.Target)
	if details == "" {
		details = "No connection details"
	}
	if errText := strings.TrimSpace(status.Err); errText != "" {
		details = fmt.Sprintf("%s (error: %s)", details, errText)
	}

	s.send(notifications.Payload{
		Title:   fmt.Sprintf("%s - %s", transportName, status.State),
		Content: details,
	})
}

// handleDeviceInfo notifies only when a reported value differs from the
// previous report.
func (s *NotificationService) handleDeviceInfo(changed events.DeviceInfoChanged) {
	s.mu.Lock()
	ipChanged := changedValue(s.lastIP, changed.Info.IP)
	macChanged := changedValue(s.lastMAC, changed.Info.MACAddress)
	s.lastIP = copyValue(changed.Info.IP)
	s.lastMAC = copyValue(changed.Info.MACAddress)
	s.mu.Unlock()

	if !s.enabled() {
		return
	}
	if ipChanged {
		s.send(notifications.Payload{Title: notificationTitleIP, Content: changed.Info.IPOrDash()})
	}
	if macChanged {
		s.send(notifications.Payload{Title: notificationTitleMAC, Content: changed.Info.MACAddressOrDash()})
	}
}

func (s *NotificationService) enabled() bool {
	if s.currentConfig == nil {
		return config.Default().Notifications.Enabled
	}

	return s.currentConfig().Notifications.Enabled
}

func (s *NotificationService) send(notification notifications.Payload) {
	title := strings.TrimSpace(notification.Title)
	content := strings.TrimSpace(notification.Content)
	if title == "" && content == "" {
		return
	}
	s.logger.Debug("sending notification", "title", title)
	s.sender.Send(notifications.Payload{
		Title:   title,
		Content: content,
	})
}

func changedValue(prev, next *string) bool {
	if next == nil {
		return false
	}

	return prev == nil || *prev != *next
}

func copyValue(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v

	return &c
}

func notificationTransportName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ip":
		return "IP"
	case "serial":
		return "Serial"
	default:
		return strings.TrimSpace(name)
	}
}
