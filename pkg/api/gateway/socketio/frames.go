// Package socketio speaks just enough Engine.IO v4 / Socket.IO to receive
// gateway events over a websocket.
package socketio

import (
	"bytes"
	"encoding/json"
	"strings"
)

// recordSeparator splits several Engine.IO packets batched into one
// websocket message.
const recordSeparator = 0x1e

func SplitFrames(msg []byte) [][]byte {
	if bytes.IndexByte(msg, recordSeparator) < 0 {
		return [][]byte{msg}
	}
	parts := bytes.Split(msg, []byte{recordSeparator})
	out := make([][]byte, 0, len(parts))
	for _, p := range parts {
		if len(p) > 0 {
			out = append(out, p)
		}
	}
	return out
}

// EmitFrame encodes a Socket.IO event packet.
func EmitFrame(event string, payload any) (string, error) {
	frame, err := json.Marshal([]any{event, payload})
	if err != nil {
		return "", err
	}
	return "42" + string(frame), nil
}

func decodeEventPayload(raw []byte) (eventName string, payload json.RawMessage, ok bool, err error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return "", nil, false, err
	}
	if len(arr) == 0 {
		return "", nil, false, nil
	}
	if err := json.Unmarshal(arr[0], &eventName); err != nil {
		return "", nil, false, err
	}
	if strings.TrimSpace(eventName) == "" {
		return "", nil, false, nil
	}
	if len(arr) < 2 {
		return eventName, nil, true, nil
	}
	return eventName, arr[1], true, nil
}
