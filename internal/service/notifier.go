//go:generate go run go.uber.org/mock/mockgen -source=notifier.go -destination=../mocks/mock_notifier.go -package=mocks
package service

import (
	"context"

	"github.com/Shivanand-hulikatti/slotswap/internal/model"
)

// Notifier pushes a signal to one user. Delivery is best effort: the services
// log a failed Notify and carry on, since the state change is already
// committed by the time it is called.
type Notifier interface {
	Notify(ctx context.Context, userID string, kind model.NotificationKind, payload any) error
}
