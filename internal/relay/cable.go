// SPDX-License-Identifier: AGPL-3.0-only
package relay

import (
	"encoding/json"
)

// ActionCable JSON protocol.
const (
	Subprotocol = "actioncable-v1-json"

	typeWelcome      = "welcome"
	typePing         = "ping"
	typeDisconnect   = "disconnect"
	typeConfirm      = "confirm_subscription"
	typeReject       = "reject_subscription"
	commandSubscribe = "subscribe"
	commandUnsub     = "unsubscribe"
	commandMessage   = "message"
)

type serverFrame struct {
	Type       string          `json:"type,omitempty"`
	Identifier string          `json:"identifier,omitempty"`
	Message    json.RawMessage `json:"message,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

type clientFrame struct {
	Command    string `json:"command"`
	Identifier string `json:"identifier"`
	Data       string `json:"data,omitempty"`
}

func channelIdentifier(channel string) string {
	b, _ := json.Marshal(struct {
		Channel string `json:"channel"`
	}{Channel: channel})
	return string(b)
}

// performData encodes an action call the way ActionCable expects: the
// payload fields plus "action", serialized into a string.
func performData(action string, payload map[string]any) (string, error) {
	m := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		m[k] = v
	}
	m["action"] = action
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
