package login1

import (
	"context"

	"github.com/godbus/dbus/v5"
)

// Backend reads logind's inhibitor list on the system bus. Portal
// backends forward sleep and idle inhibitions there, so it shows whether
// an Inhibit request actually reached the system.
type Backend struct {
	conn *dbus.Conn
	ctx  context.Context
}

// Inhibitor mirrors one a(ssssuu) entry of ListInhibitors.
type Inhibitor struct {
	What string `json:"what"`
	Who  string `json:"who"`
	Why  string `json:"why"`
	Mode string `json:"mode"`
	UID  uint32 `json:"uid"`
	PID  uint32 `json:"pid"`
}

type Report struct {
	BlockInhibited []string    `json:"block_inhibited"`
	DelayInhibited []string    `json:"delay_inhibited"`
	Inhibitors     []Inhibitor `json:"inhibitors"`
}
