package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound frame vocabulary (client -> server).
const (
	FramePing           = "ping"
	FrameMarkRead       = "mark_read"
	FrameMarkAllRead    = "mark_all_read"
	FrameGetUnreadCount = "get_unread_count"
	FrameChatMessage    = "chat_message"
)

var ErrMalformedFrame = errors.New("malformed frame")

// InboundFrame is the decoded client request. Fields beyond Type are only
// meaningful for the frame types that declare them.
type InboundFrame struct {
	Type           string `json:"type"`
	NotificationID int64  `json:"notification_id,omitempty"`
	Message        string `json:"message,omitempty"`
	ReceiverID     int64  `json:"receiver_id,omitempty"`
}

// DecodeFrame parses a raw client frame. Undecodable payloads yield
// ErrMalformedFrame; the caller answers with an error frame and keeps the
// connection open.
func DecodeFrame(data []byte) (*InboundFrame, error) {
	var f InboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return &f, nil
}

// Validate checks per-type required fields.
func (f *InboundFrame) Validate() error {
	switch f.Type {
	case FrameMarkRead:
		if f.NotificationID == 0 {
			return fmt.Errorf("%w: mark_read requires notification_id", ErrMalformedFrame)
		}
	case FrameChatMessage:
		if f.Message == "" {
			return fmt.Errorf("%w: chat_message requires message", ErrMalformedFrame)
		}
	}
	return nil
}
