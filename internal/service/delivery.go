package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/smarthunt/realtime-service/internal/domain/registry"
)

// Deliverer is the primary interface for transport handlers (websocket and
// long-poll).
type Deliverer interface {
	Subscribe(ctx context.Context, userID int64) (registry.Connector, error)
	Unsubscribe(connID uuid.UUID)
}

type DeliveryService struct {
	hub           registry.Hubber
	sessionBuffer int
}

func NewDeliveryService(hub registry.Hubber, sessionBuffer int) *DeliveryService {
	if sessionBuffer <= 0 {
		sessionBuffer = 256
	}
	return &DeliveryService{hub: hub, sessionBuffer: sessionBuffer}
}

// Subscribe creates a connector bound to the caller's context, registers it
// under the user's group and returns it for the transport to pump.
func (s *DeliveryService) Subscribe(ctx context.Context, userID int64) (registry.Connector, error) {
	conn := registry.NewConnector(ctx, userID, s.sessionBuffer)
	s.hub.Register(conn)
	return conn, nil
}

// Unsubscribe detaches the connection from every group and closes it.
// Idempotent; the transport's deferred call may race a hub-initiated close.
func (s *DeliveryService) Unsubscribe(connID uuid.UUID) {
	s.hub.Unregister(connID)
}
