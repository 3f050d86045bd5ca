package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventphotos/internal/models"
)

// CreateUser создаёт нового хоста с уже хешированным паролем.
// Возвращает ID новой записи или ErrDuplicate, если имя занято.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (int64, error) {
	// Используем транзакцию, чтобы вставка и получение ID были атомарными.
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции CreateUser: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "INSERT INTO users (username, password_hash) VALUES (?, ?)", username, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("пользователь с именем '%s': %w", username, ErrDuplicate)
		}
		return 0, fmt.Errorf("ошибка при выполнении запроса CreateUser: %w", err)
	}

	lastID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ошибка при получении ID пользователя CreateUser: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("ошибка фиксации транзакции CreateUser: %w", err)
	}

	slog.Info("Создан пользователь", "username", username, "id", lastID)
	return lastID, nil
}

// GetUserByUsername ищет пользователя по имени.
// Возвращает (nil, nil), если пользователь не найден.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	row := s.DB.QueryRowContext(ctx, "SELECT id, username, password_hash FROM users WHERE username = ?", username)

	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка сканирования GetUserByUsername для %s: %w", username, err)
	}
	return user, nil
}

// CreateEvent сохраняет событие с кодом присоединения code.
func (s *Store) CreateEvent(ctx context.Context, code, name string, ownerID int64) (*models.Event, error) {
	ev := &models.Event{Code: code, Name: name, OwnerID: ownerID, CreatedAt: time.Now().UTC()}

	res, err := s.DB.ExecContext(ctx,
		"INSERT INTO events (code, name, owner_id, created_at) VALUES (?, ?, ?, ?)",
		ev.Code, ev.Name, ev.OwnerID, ev.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("событие с кодом '%s': %w", code, ErrDuplicate)
		}
		return nil, fmt.Errorf("ошибка выполнения запроса CreateEvent: %w", err)
	}

	ev.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения ID события CreateEvent: %w", err)
	}
	slog.Info("Событие создано", "id", ev.ID, "code", code, "owner_id", ownerID)
	return ev, nil
}

// GetEventByCode ищет событие по коду присоединения.
func (s *Store) GetEventByCode(ctx context.Context, code string) (*models.Event, error) {
	ev := &models.Event{}
	row := s.DB.QueryRowContext(ctx,
		"SELECT id, code, name, owner_id, created_at FROM events WHERE code = ?", code)

	if err := row.Scan(&ev.ID, &ev.Code, &ev.Name, &ev.OwnerID, &ev.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("событие '%s': %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка сканирования GetEventByCode для %s: %w", code, err)
	}
	return ev, nil
}

// ListEventsByOwner возвращает события хоста, новые первыми.
func (s *Store) ListEventsByOwner(ctx context.Context, ownerID int64) ([]models.Event, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT id, code, name, owner_id, created_at FROM events WHERE owner_id = ? ORDER BY created_at DESC, id DESC", ownerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса ListEventsByOwner для %d: %w", ownerID, err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var ev models.Event
		if err := rows.Scan(&ev.ID, &ev.Code, &ev.Name, &ev.OwnerID, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования ListEventsByOwner: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
