package services

import (
	"context"
	"errors"
	"fmt"

	"eventphotos/internal/database"
	"eventphotos/internal/models"
)

// EventCodeLength - длина кода присоединения.
const EventCodeLength = 6

// createAttempts - сколько раз пробуем новый код при совпадении с существующим.
const createAttempts = 5

// EventCreator сохраняет событие.
type EventCreator interface {
	CreateEvent(ctx context.Context, code, name string, ownerID int64) (*models.Event, error)
}

// CreateEvent создаёт событие со случайным кодом присоединения.
// При совпадении кода генерируется новый.
func CreateEvent(ctx context.Context, events EventCreator, name string, ownerID int64) (*models.Event, error) {
	for attempt := 0; attempt < createAttempts; attempt++ {
		code, err := GenerateEventCode(EventCodeLength)
		if err != nil {
			return nil, err
		}
		event, err := events.CreateEvent(ctx, code, name, ownerID)
		if errors.Is(err, database.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("не удалось создать событие '%s': %w", name, err)
		}
		return event, nil
	}
	return nil, fmt.Errorf("не удалось подобрать свободный код события за %d попыток: %w", createAttempts, database.ErrDuplicate)
}
