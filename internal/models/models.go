package models

import (
	// Стандартные библиотеки
	"time" // Временные метки создания и загрузки
)

// User представляет хоста (организатора события).
// `json:"-"` скрывает хеш пароля при сериализации.
type User struct {
	ID           int64  `json:"id"`       // Уникальный идентификатор пользователя (Primary Key)
	Username     string `json:"username"` // Имя пользователя (UNIQUE)
	PasswordHash string `json:"-"`        // Хеш пароля (НЕ ДОЛЖЕН передаваться клиенту)
}

// Event представляет событие, к которому гости присоединяются по QR-коду.
type Event struct {
	ID        int64     `json:"id" firestore:"id"`
	Code      string    `json:"code" firestore:"code"`         // Код присоединения (в QR и в URL)
	Name      string    `json:"name" firestore:"name"`         // Название события
	OwnerID   int64     `json:"owner_id" firestore:"owner_id"` // ID хоста-владельца
	CreatedAt time.Time `json:"created_at" firestore:"created_at"`
}

// CapturedImage - снимок, сделанный на устройстве гостя и ещё не просмотренный.
// Никогда не изменяется; удаляется из списка при разрешении жеста в просмотре.
type CapturedImage struct {
	ID        int64     `json:"id"`         // Производный от времени создания, уникален в пределах сессии
	URL       string    `json:"url"`        // Локальная ссылка на снимок в промежуточном хранилище
	EventCode string    `json:"event_code"` // Событие, в котором сделан снимок
	CreatedAt time.Time `json:"created_at"`
	Data      []byte    `json:"-"` // Байты JPEG; загружаются только при Take/Get
}

// UploadedPhotoRecord - запись о фото, успешно записанном в объектное хранилище.
type UploadedPhotoRecord struct {
	FileName   string    `json:"file_name"` // Уникальное имя, содержит высокоточную временную метку
	URL        string    `json:"url"`       // Публичный URL для чтения (детерминированный шаблон хранилища)
	DeviceID   string    `json:"device_id"`
	EventCode  string    `json:"event_code"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Photo - подтверждённое хранилищем фото события, как его видит презентация.
type Photo struct {
	Key string `json:"key"` // Ключ объекта в хранилище
	URL string `json:"url"`
}

// Facing - направление камеры.
type Facing string

const (
	FacingFront Facing = "front"
	FacingBack  Facing = "back"
)

// Opposite возвращает противоположное направление камеры.
func (f Facing) Opposite() Facing {
	if f == FacingFront {
		return FacingBack
	}
	return FacingFront
}

// Valid сообщает, известно ли направление.
func (f Facing) Valid() bool {
	return f == FacingFront || f == FacingBack
}
