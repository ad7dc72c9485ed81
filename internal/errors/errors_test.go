// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package errors

import (
	"errors"
	"testing"
)

func TestError(t *testing.T) {
	err := New(KindInvalidArgument, "bad essid")
	if err.Error() != "bad essid" {
		t.Errorf("expected 'bad essid', got '%s'", err.Error())
	}

	wrapped := Wrap(err, KindIO, "failed to configure radio")
	if wrapped.Error() != "failed to configure radio: bad essid" {
		t.Errorf("expected 'failed to configure radio: bad essid', got '%s'", wrapped.Error())
	}
}

func TestGetKind(t *testing.T) {
	err := New(KindAssociationFailed, "no link after pause")
	if GetKind(err) != KindAssociationFailed {
		t.Errorf("expected KindAssociationFailed, got %v", GetKind(err))
	}

	wrapped := Wrap(err, KindAuthFailed, "shared key rejected")
	if GetKind(wrapped) != KindAuthFailed {
		t.Errorf("expected KindAuthFailed, got %v", GetKind(wrapped))
	}

	if GetKind(errors.New("std error")) != KindUnknown {
		t.Errorf("expected KindUnknown, got %v", GetKind(errors.New("std error")))
	}
}

func TestAttributes(t *testing.T) {
	err := New(KindDhcpFailed, "no offer")
	err = Attr(err, "iface", "wlan0")
	err = Attr(err, "attempt", 2)

	attrs := GetAttributes(err)
	if attrs["iface"] != "wlan0" {
		t.Errorf("expected wlan0, got %v", attrs["iface"])
	}
	if attrs["attempt"] != 2 {
		t.Errorf("expected 2, got %v", attrs["attempt"])
	}

	wrapped := Wrap(err, KindActivationCancelled, "worker unwinding")
	wrapped = Attr(wrapped, "phase", "configure_ip")

	allAttrs := GetAttributes(wrapped)
	if allAttrs["iface"] != "wlan0" || allAttrs["phase"] != "configure_ip" {
		t.Errorf("missing attributes: %v", allAttrs)
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindIO:                  "io",
		KindNoDriverSupport:     "no_driver_support",
		KindAssociationFailed:   "association_failed",
		KindAuthFailed:          "auth_failed",
		KindKeyRequired:         "key_required",
		KindUserCancelled:       "user_cancelled",
		KindActivationCancelled: "activation_cancelled",
		KindDhcpFailed:          "dhcp_failed",
		KindInvalidArgument:     "invalid_argument",
		KindUnknown:             "unknown",
	}
	for k, want := range cases {
		if k.String() != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, k.String(), want)
		}
	}
}
