package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventphotos/internal/models"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Events - хранилище событий. Реализуется SQLite (*Store) и Firestore.
type Events interface {
	CreateEvent(ctx context.Context, code, name string, ownerID int64) (*models.Event, error)
	GetEventByCode(ctx context.Context, code string) (*models.Event, error)
	ListEventsByOwner(ctx context.Context, ownerID int64) ([]models.Event, error)
}

var (
	_ Events = (*Store)(nil)
	_ Events = (*FirestoreEvents)(nil)
)

const eventsCollection = "events"

// FirestoreEvents хранит события в коллекции Firestore, документ = код события.
type FirestoreEvents struct {
	client *firestore.Client
}

// NewFirestoreEvents подключается к Firestore проекта projectID.
// credentialsFile может быть пустым - тогда используются учётные данные по умолчанию.
func NewFirestoreEvents(ctx context.Context, projectID, credentialsFile string) (*FirestoreEvents, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к Firestore (%s): %w", projectID, err)
	}
	slog.Info("Успешно подключились к Firestore", "project", projectID)
	return &FirestoreEvents{client: client}, nil
}

// Close закрывает клиент Firestore.
func (f *FirestoreEvents) Close() error {
	return f.client.Close()
}

func (f *FirestoreEvents) CreateEvent(ctx context.Context, code, name string, ownerID int64) (*models.Event, error) {
	now := time.Now().UTC()
	ev := &models.Event{ID: now.UnixNano(), Code: code, Name: name, OwnerID: ownerID, CreatedAt: now}

	// Create, в отличие от Set, не перезаписывает существующий документ.
	if _, err := f.client.Collection(eventsCollection).Doc(code).Create(ctx, ev); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, fmt.Errorf("событие с кодом '%s': %w", code, ErrDuplicate)
		}
		return nil, fmt.Errorf("ошибка записи события в Firestore: %w", err)
	}
	slog.Info("Событие создано в Firestore", "code", code, "owner_id", ownerID)
	return ev, nil
}

func (f *FirestoreEvents) GetEventByCode(ctx context.Context, code string) (*models.Event, error) {
	snap, err := f.client.Collection(eventsCollection).Doc(code).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("событие '%s': %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения события из Firestore: %w", err)
	}
	var ev models.Event
	if err := snap.DataTo(&ev); err != nil {
		return nil, fmt.Errorf("ошибка разбора документа события %s: %w", code, err)
	}
	return &ev, nil
}

func (f *FirestoreEvents) ListEventsByOwner(ctx context.Context, ownerID int64) ([]models.Event, error) {
	iter := f.client.Collection(eventsCollection).
		Where("owner_id", "==", ownerID).
		OrderBy("created_at", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var events []models.Event
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения событий хоста %d из Firestore: %w", ownerID, err)
		}
		var ev models.Event
		if err := snap.DataTo(&ev); err != nil {
			return nil, fmt.Errorf("ошибка разбора документа %s: %w", snap.Ref.ID, err)
		}
		events = append(events, ev)
	}
	return events, nil
}
