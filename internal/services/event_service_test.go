package services

import (
	"context"
	"errors"
	"testing"

	"eventphotos/internal/database"
	"eventphotos/internal/models"
)

// takenCodes отвечает ErrDuplicate первые dups раз.
type takenCodes struct {
	dups  int
	calls int
	err   error
}

func (f *takenCodes) CreateEvent(_ context.Context, code, name string, ownerID int64) (*models.Event, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.calls <= f.dups {
		return nil, database.ErrDuplicate
	}
	return &models.Event{ID: 1, Code: code, Name: name, OwnerID: ownerID}, nil
}

func TestCreateEventRetriesOnDuplicateCode(t *testing.T) {
	f := &takenCodes{dups: 2}
	ev, err := CreateEvent(context.Background(), f, "Свадьба", 7)
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if f.calls != 3 {
		t.Errorf("попыток %d, ожидалось 3", f.calls)
	}
	if len(ev.Code) != EventCodeLength || ev.OwnerID != 7 {
		t.Errorf("неожиданное событие %+v", ev)
	}
}

func TestCreateEventGivesUp(t *testing.T) {
	f := &takenCodes{dups: createAttempts}
	_, err := CreateEvent(context.Background(), f, "Свадьба", 7)
	if !errors.Is(err, database.ErrDuplicate) {
		t.Fatalf("ожидалась ErrDuplicate, получено %v", err)
	}
	if f.calls != createAttempts {
		t.Errorf("попыток %d, ожидалось %d", f.calls, createAttempts)
	}
}

func TestCreateEventStoreError(t *testing.T) {
	boom := errors.New("диск заполнен")
	f := &takenCodes{err: boom}
	if _, err := CreateEvent(context.Background(), f, "Свадьба", 7); !errors.Is(err, boom) {
		t.Fatalf("ожидалась исходная ошибка, получено %v", err)
	}
	if f.calls != 1 {
		t.Errorf("при прочей ошибке повторов быть не должно, попыток %d", f.calls)
	}
}
