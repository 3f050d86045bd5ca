package staging

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"eventphotos/internal/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "staging.db"))
	if err != nil {
		t.Fatalf("database.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, 0)
}

func TestAppendRefusedAtLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < Limit; i++ {
		if _, err := s.Append(ctx, "dev", "EV", []byte{byte(i)}); err != nil {
			t.Fatalf("Append #%d: %v", i, err)
		}
	}
	if _, err := s.Append(ctx, "dev", "EV", []byte{42}); !errors.Is(err, ErrFull) {
		t.Fatalf("шестой снимок: ожидалась ErrFull, получено %v", err)
	}
	n, err := s.Len(ctx, "dev", "EV")
	if err != nil || n != Limit {
		t.Fatalf("Len = %d, %v; ожидалось %d", n, err, Limit)
	}
}

func TestTakeRestoreKeepsCacheFresh(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, _ := s.Append(ctx, "dev", "EV", []byte("a"))
	b, _ := s.Append(ctx, "dev", "EV", []byte("b"))

	// Прогреваем кэш.
	if list, _ := s.List(ctx, "dev", "EV"); len(list) != 2 {
		t.Fatalf("List вернул %d снимков", len(list))
	}

	taken, err := s.Take(ctx, "dev", "EV", a.ID)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if string(taken.Data) != "a" {
		t.Errorf("Take вернул данные %q", taken.Data)
	}
	list, _ := s.List(ctx, "dev", "EV")
	if len(list) != 1 || list[0].ID != b.ID {
		t.Fatalf("после Take список = %+v", list)
	}

	if err := s.Restore(ctx, "dev", "EV", taken); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	list, _ = s.List(ctx, "dev", "EV")
	if len(list) != 2 || list[0].ID != b.ID || list[1].ID != a.ID {
		t.Fatalf("Restore должен вставить снимок в конец, список = %+v", list)
	}
	if list[1].URL != URL("EV", a.ID) {
		t.Errorf("URL = %q", list[1].URL)
	}
}

func TestEnterGalleryIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Append(ctx, "dev", "EV", []byte("a"))
	s.Append(ctx, "dev", "EV", []byte("b"))

	for i := 0; i < 2; i++ {
		if err := s.EnterGallery(ctx, "dev"); err != nil {
			t.Fatalf("EnterGallery #%d: %v", i, err)
		}
		list, err := s.EnterReview(ctx, "dev", "EV")
		if err != nil || len(list) != 0 {
			t.Fatalf("после EnterGallery список = %+v, %v", list, err)
		}
	}
}

func TestTakeMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Take(context.Background(), "dev", "EV", 12345); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound, получено %v", err)
	}
}

func TestListsAreSeparatePerEvent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < Limit; i++ {
		if _, err := s.Append(ctx, "dev", "A", []byte{byte(i)}); err != nil {
			t.Fatalf("Append A #%d: %v", i, err)
		}
	}
	// Полный список события A не мешает съёмке в B.
	img, err := s.Append(ctx, "dev", "B", []byte("b"))
	if err != nil {
		t.Fatalf("Append B: %v", err)
	}
	if img.EventCode != "B" || img.URL != URL("B", img.ID) {
		t.Errorf("снимок B = %+v", img)
	}

	list, err := s.EnterReview(ctx, "dev", "B")
	if err != nil || len(list) != 1 || list[0].ID != img.ID {
		t.Fatalf("список B = %+v, %v", list, err)
	}
	a, _ := s.List(ctx, "dev", "A")
	if len(a) != Limit {
		t.Fatalf("список A = %d снимков", len(a))
	}
	if _, err := s.Take(ctx, "dev", "B", a[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("снимок A изъят из B: %v", err)
	}
	if _, err := s.Get(ctx, "dev", "B", a[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("снимок A прочитан из B: %v", err)
	}
}

func TestStaleLoadIsNotCached(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.Append(ctx, "dev", "EV", []byte("a"))

	// Запись завершается между чтением из базы и записью в кэш.
	s.afterLoad = func() {
		s.afterLoad = nil
		if _, err := s.Append(ctx, "dev", "EV", []byte("b")); err != nil {
			t.Errorf("Append: %v", err)
		}
	}
	if list, _ := s.List(ctx, "dev", "EV"); len(list) != 1 {
		t.Fatalf("первое чтение вернуло %d снимков", len(list))
	}
	if list, _ := s.List(ctx, "dev", "EV"); len(list) != 2 {
		t.Fatalf("в кэше остался устаревший список: %d снимков", len(list))
	}
	if n, _ := s.Len(ctx, "dev", "EV"); n != 2 {
		t.Fatalf("Len = %d", n)
	}
}
