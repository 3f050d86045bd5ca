package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"eventphotos/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateUserDuplicate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.CreateUser(ctx, "host", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if id == 0 {
		t.Fatal("ожидался ненулевой ID")
	}
	if _, err := s.CreateUser(ctx, "host", "hash2"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("ожидалась ErrDuplicate, получено %v", err)
	}

	u, err := s.GetUserByUsername(ctx, "host")
	if err != nil || u == nil || u.ID != id {
		t.Fatalf("GetUserByUsername = %+v, %v", u, err)
	}
	missing, err := s.GetUserByUsername(ctx, "nobody")
	if err != nil || missing != nil {
		t.Fatalf("для отсутствующего пользователя ожидалось (nil, nil), получено %+v, %v", missing, err)
	}
}

func TestEvents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	owner, _ := s.CreateUser(ctx, "host", "hash")

	ev, err := s.CreateEvent(ctx, "ABC123", "Свадьба", owner)
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if _, err := s.CreateEvent(ctx, "ABC123", "Другое", owner); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("ожидалась ErrDuplicate, получено %v", err)
	}

	got, err := s.GetEventByCode(ctx, "ABC123")
	if err != nil {
		t.Fatalf("GetEventByCode: %v", err)
	}
	if got.ID != ev.ID || got.Name != "Свадьба" {
		t.Errorf("GetEventByCode = %+v", got)
	}
	if _, err := s.GetEventByCode(ctx, "NOPE"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидалась ErrNotFound, получено %v", err)
	}

	list, err := s.ListEventsByOwner(ctx, owner)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListEventsByOwner = %v, %v", list, err)
	}
}

func TestAppendStagedLimitAndOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	var ids []int64
	for i := 0; i < 3; i++ {
		// Одинаковое время создания: ID всё равно должны строго возрастать.
		id, err := s.AppendStaged(ctx, "dev", "EV", []byte{byte(i)}, now, 3)
		if err != nil {
			t.Fatalf("AppendStaged #%d: %v", i, err)
		}
		ids = append(ids, id)
	}
	if !(ids[0] < ids[1] && ids[1] < ids[2]) {
		t.Errorf("ID не возрастают: %v", ids)
	}
	if _, err := s.AppendStaged(ctx, "dev", "EV", []byte{9}, now, 3); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("ожидалась ErrLimitReached, получено %v", err)
	}

	// Другое устройство имеет собственный лимит.
	if _, err := s.AppendStaged(ctx, "other", "EV", []byte{1}, now, 3); err != nil {
		t.Fatalf("AppendStaged для другого устройства: %v", err)
	}
	// Другое событие того же устройства тоже.
	foreign, err := s.AppendStaged(ctx, "dev", "EV2", []byte{7}, now, 3)
	if err != nil {
		t.Fatalf("AppendStaged для другого события: %v", err)
	}
	if foreign <= ids[2] {
		t.Errorf("ID %d в другом событии не больше %d", foreign, ids[2])
	}
	if _, err := s.TakeStaged(ctx, "dev", "EV", foreign); !errors.Is(err, ErrNotFound) {
		t.Errorf("снимок другого события изъят: %v", err)
	}
	if other, err := s.ListStaged(ctx, "dev", "EV2"); err != nil || len(other) != 1 || other[0].EventCode != "EV2" {
		t.Errorf("ListStaged EV2 = %+v, %v", other, err)
	}

	taken, err := s.TakeStaged(ctx, "dev", "EV", ids[0])
	if err != nil {
		t.Fatalf("TakeStaged: %v", err)
	}
	if len(taken.Data) != 1 || taken.Data[0] != 0 {
		t.Errorf("TakeStaged вернул данные %v", taken.Data)
	}
	if _, err := s.TakeStaged(ctx, "dev", "EV", ids[0]); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторный TakeStaged: ожидалась ErrNotFound, получено %v", err)
	}

	if err := s.RestoreStaged(ctx, "dev", *taken); err != nil {
		t.Fatalf("RestoreStaged: %v", err)
	}
	list, err := s.ListStaged(ctx, "dev", "EV")
	if err != nil {
		t.Fatalf("ListStaged: %v", err)
	}
	want := []int64{ids[1], ids[2], ids[0]}
	if len(list) != len(want) {
		t.Fatalf("ListStaged вернул %d строк", len(list))
	}
	for i, r := range list {
		if r.ImageID != want[i] {
			t.Errorf("позиция %d: ID %d, ожидался %d", i, r.ImageID, want[i])
		}
	}

	n, err := s.ClearStaged(ctx, "dev")
	if err != nil || n != 4 {
		t.Fatalf("ClearStaged = %d, %v", n, err)
	}
	n, err = s.ClearStaged(ctx, "dev")
	if err != nil || n != 0 {
		t.Fatalf("повторный ClearStaged = %d, %v", n, err)
	}
}

func TestUploadedRecords(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rec := models.UploadedPhotoRecord{
		FileName: "1-a.jpg", URL: "http://x/1-a.jpg", DeviceID: "dev", EventCode: "EV", UploadedAt: time.Now(),
	}
	if err := s.AppendUploaded(ctx, rec); err != nil {
		t.Fatalf("AppendUploaded: %v", err)
	}
	if err := s.AppendUploaded(ctx, rec); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("ожидалась ErrDuplicate, получено %v", err)
	}

	byEvent, err := s.ListUploadedByEvent(ctx, "EV")
	if err != nil || len(byEvent) != 1 {
		t.Fatalf("ListUploadedByEvent = %v, %v", byEvent, err)
	}
	if _, err := s.DeleteUploaded(ctx, "someone-else", "1-a.jpg"); !errors.Is(err, ErrNotFound) {
		t.Errorf("чужое устройство не должно удалять запись: %v", err)
	}
	if _, err := s.DeleteUploaded(ctx, "dev", "1-a.jpg"); err != nil {
		t.Fatalf("DeleteUploaded: %v", err)
	}
	byDevice, _ := s.ListUploadedByDevice(ctx, "dev")
	if len(byDevice) != 0 {
		t.Errorf("после удаления осталось %d записей", len(byDevice))
	}
}
