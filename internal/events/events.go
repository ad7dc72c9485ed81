// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package events is the outbound signalling surface of the link manager.
// Components publish typed events to a Hub; front-ends subscribe either
// in-process or through the websocket relay.
package events

import (
	"sync"
	"time"
)

// CancelKeySentinel is the exact reply a front-end sends when the user
// dismisses a key prompt.
const CancelKeySentinel = "***canceled***"

// Type identifies an event.
type Type string

const (
	EventDeviceStatusChanged     Type = "device_status_changed"
	EventDeviceIP4AddressChanged Type = "device_ip4_address_changed"
	EventWirelessNetworkAppeared Type = "wireless_network_appeared"
	EventWirelessNetworkGone     Type = "wireless_network_disappeared"
	EventUserKeyRequested        Type = "user_key_requested"
)

// Status is the activation phase reported in DeviceStatusChanged.
type Status string

const (
	StatusActivating     Status = "activating"
	StatusNoLongerActive Status = "no_longer_active"
	StatusNowActive      Status = "now_active"
)

// Event is one published occurrence.
type Event struct {
	Type Type      `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data"`
}

// DeviceStatusData accompanies EventDeviceStatusChanged.
type DeviceStatusData struct {
	DevicePath string `json:"device"`
	Iface      string `json:"iface"`
	Status     Status `json:"status"`
}

// IP4AddressData accompanies EventDeviceIP4AddressChanged.
type IP4AddressData struct {
	DevicePath string `json:"device"`
	Iface      string `json:"iface"`
	Address    string `json:"address"`
}

// NetworkData accompanies the network appeared/disappeared events.
type NetworkData struct {
	DevicePath  string `json:"device"`
	Iface       string `json:"iface"`
	ESSID       string `json:"essid"`
	BSSID       string `json:"bssid,omitempty"`
	NetworkPath string `json:"network_path,omitempty"`
}

// KeyRequestData accompanies EventUserKeyRequested.
type KeyRequestData struct {
	DevicePath string `json:"device"`
	Iface      string `json:"iface"`
	ESSID      string `json:"essid"`
	Attempt    int    `json:"attempt"`
}

// Hub fans events out to subscribers.  Slow subscribers drop events rather
// than block publishers.
type Hub struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// NewHub creates an event hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe registers a listener.  The returned cancel function must be
// called to release the subscription.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan Event, 64)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Publish delivers an event to all subscribers.  Publication is synchronous
// with respect to the caller's state transition; delivery to a full
// subscriber queue is dropped.
func (h *Hub) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
