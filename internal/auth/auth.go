package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength - минимальная длина пароля хоста.
const MinPasswordLength = 8

// MaxUsernameLength ограничивает имя хоста.
const MaxUsernameLength = 64

var (
	ErrEmptyCredentials = errors.New("Все поля должны быть заполнены")
	ErrPasswordTooShort = fmt.Errorf("Пароль должен быть не менее %d символов", MinPasswordLength)
	ErrPasswordMismatch = errors.New("Пароли не совпадают")
	ErrUsernameTooLong  = fmt.Errorf("Имя пользователя должно быть не длиннее %d символов", MaxUsernameLength)
)

// ValidateRegistration проверяет данные формы регистрации.
// Возвращённая ошибка пригодна для показа пользователю.
func ValidateRegistration(username, password, confirm string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" || confirm == "" {
		return ErrEmptyCredentials
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return ErrUsernameTooLong
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	return nil
}

// HashPassword возвращает bcrypt-хеш пароля со стоимостью bcrypt.DefaultCost.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("Ошибка хэширования пароля: %w", err)
	}
	return string(bytes), nil
}

// CheckPasswordHash сравнивает пароль с хешем из БД. Соль хранится в самом хеше.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
