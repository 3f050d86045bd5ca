package database

import (
	// Стандартные библиотеки
	"context"      // Для отмены запросов вместе с HTTP-запросом
	"database/sql" // Основной пакет для работы с SQL базами данных
	"errors"       // Для сентинел-ошибок
	"fmt"          // Для форматирования строк и ошибок
	"log/slog"     // Для структурированного логирования
	"strings"      // Для работы со строками (поиск подстроки в ошибках)
	"time"         // Для таймаутов соединения

	// Драйвер SQLite. Пустой импорт (_) регистрирует драйвер "sqlite" в пакете database/sql.
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound - запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrDuplicate - нарушение уникальности (имя пользователя, код события, имя файла).
	ErrDuplicate = errors.New("запись уже существует")
	// ErrLimitReached - список промежуточных снимков заполнен.
	ErrLimitReached = errors.New("достигнут лимит снимков")
)

// Store владеет пулом соединений с базой данных.
// Создаётся явно в main и передаётся зависимым компонентам.
type Store struct {
	DB *sql.DB
}

// Open открывает (или создаёт) базу SQLite по пути dataSourceName,
// настраивает соединение и создаёт таблицы, если их нет.
func Open(dataSourceName string) (*Store, error) {
	// - journal_mode(WAL): журнал с упреждающей записью, удобнее для одновременного чтения и записи.
	// - busy_timeout(5000): ожидание снятия блокировки до 5 секунд.
	// - foreign_keys(1): соблюдение внешних ключей.
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)", dataSourceName)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка при открытии %s: %w", dataSourceName, err)
	}

	// SQLite допускает только одного писателя одновременно.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка при проверке соединения с %s: %w", dataSourceName, err)
	}
	slog.Info("Успешно подключились к базе данных", "path", dataSourceName)

	s := &Store{DB: db}
	if err = s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка при создании таблиц: %w", err)
	}
	slog.Info("Таблицы и индексы успешно проверены/созданы")
	return s, nil
}

// Close закрывает пул соединений.
func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) createTables() error {
	statements := []struct {
		name string
		sql  string
	}{
		{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL
		);`},
		{"events", `
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
			code TEXT NOT NULL UNIQUE,                     -- Код присоединения из QR
			name TEXT NOT NULL,
			owner_id INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY(owner_id) REFERENCES users(id) ON DELETE CASCADE
		);`},
		// seq задаёт порядок списка: снимок, возвращённый после ошибки загрузки, получает новый seq и встаёт в конец.
		{"staged_photos", `
		CREATE TABLE IF NOT EXISTS staged_photos (
			seq INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL,
			image_id INTEGER NOT NULL,                     -- Производный от времени ID снимка
			event_code TEXT NOT NULL,
			data BLOB NOT NULL,
			created_at DATETIME NOT NULL,
			UNIQUE(device_id, image_id)
		);`},
		{"uploaded_photos", `
		CREATE TABLE IF NOT EXISTS uploaded_photos (
			id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
			file_name TEXT NOT NULL UNIQUE,
			url TEXT NOT NULL,
			device_id TEXT NOT NULL,
			event_code TEXT NOT NULL,
			uploaded_at DATETIME NOT NULL
		);`},
		{"idx_staged_device", `CREATE INDEX IF NOT EXISTS idx_staged_device ON staged_photos (device_id, event_code, seq);`},
		{"idx_uploaded_device", `CREATE INDEX IF NOT EXISTS idx_uploaded_device ON uploaded_photos (device_id);`},
		{"idx_uploaded_event", `CREATE INDEX IF NOT EXISTS idx_uploaded_event ON uploaded_photos (event_code);`},
	}

	for _, st := range statements {
		if _, err := s.DB.Exec(st.sql); err != nil {
			return fmt.Errorf("ошибка при создании %s: %w", st.name, err)
		}
	}
	return nil
}

// isUniqueViolation определяет нарушение UNIQUE по тексту ошибки драйвера.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
