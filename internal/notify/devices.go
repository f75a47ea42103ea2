// Package notify owns the device registry and the push-notification boundary.
package notify

import "sync"

// Device identifies one registered push endpoint.
type Device struct {
	Token      string `json:"token"`
	Platform   string `json:"platform"` // ios | android
	Language   string `json:"language,omitempty"`
	AppVersion string `json:"app_version,omitempty"`
}

// DeviceStore is an in-memory registry of device tokens.
type DeviceStore struct {
	mu      sync.Mutex
	devices map[string]Device
}

// NewDeviceStore constructs an empty registry.
func NewDeviceStore() *DeviceStore {
	return &DeviceStore{devices: make(map[string]Device)}
}

// Register adds or refreshes a device keyed by token.
func (s *DeviceStore) Register(device Device) {
	s.mu.Lock()
	s.devices[device.Token] = device
	s.mu.Unlock()
}

// Remove drops a device token; unknown tokens are a no-op.
func (s *DeviceStore) Remove(token string) {
	s.mu.Lock()
	delete(s.devices, token)
	s.mu.Unlock()
}

// All snapshots every registered device.
func (s *DeviceStore) All() []Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Device, 0, len(s.devices))
	for _, device := range s.devices {
		out = append(out, device)
	}
	return out
}
