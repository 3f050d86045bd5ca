package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// tempPrefix - префикс временных файлов незавершённой записи.
const tempPrefix = ".upload-"

// LocalStore хранит объекты в директории на диске. Ссылки на запись
// подписываются HMAC и обслуживаются маршрутом /objects этого же сервера.
type LocalStore struct {
	root    string
	baseURL string
	secret  []byte
	now     func() time.Time
}

// NewLocalStore создаёт хранилище в директории root; baseURL - внешний адрес сервера.
func NewLocalStore(root, baseURL string, secret []byte) *LocalStore {
	return &LocalStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		now:     time.Now,
	}
}

func (s *LocalStore) sign(key, contentType string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "PUT\n%s\n%s\n%d", key, contentType, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *LocalStore) objectURL(key string) string {
	u := url.URL{Path: "/objects/" + key}
	return s.baseURL + u.EscapedPath()
}

func (s *LocalStore) PresignPut(_ context.Context, key, contentType string, ttl time.Duration) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = DefaultPutTTL
	}
	expires := s.now().Add(ttl).Unix()

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("content_type", contentType)
	q.Set("sig", s.sign(key, contentType, expires))
	return s.objectURL(key) + "?" + q.Encode(), nil
}

// VerifyPut проверяет подписанную ссылку на запись.
func (s *LocalStore) VerifyPut(key, contentType, expiresParam, sig string) error {
	expires, err := strconv.ParseInt(expiresParam, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	want := s.sign(key, contentType, expires)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return ErrBadSignature
	}
	if s.now().Unix() > expires {
		return ErrExpired
	}
	return nil
}

func (s *LocalStore) path(key string) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	// Временные файлы не являются объектами.
	if strings.HasPrefix(path.Base(key), tempPrefix) {
		return "", fmt.Errorf("%w: %q", ErrBadKey, key)
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Write записывает объект key. Данные сначала пишутся во временный файл,
// чтобы читатели не видели частично записанный объект.
func (s *LocalStore) Write(key string, r io.Reader) (int64, error) {
	p, err := s.path(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return 0, fmt.Errorf("не удалось создать директорию для %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), tempPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("не удалось создать временный файл для %s: %w", key, err)
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("не удалось записать объект %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("не удалось сохранить объект %s: %w", key, err)
	}
	slog.Info("Объект сохранён", "key", key, "bytes", n)
	return n, nil
}

// Path возвращает путь к файлу объекта на диске.
func (s *LocalStore) Path(key string) (string, error) {
	return s.path(key)
}

func (s *LocalStore) List(_ context.Context, prefix string) ([]string, error) {
	dir := s.root
	if p := strings.TrimSuffix(prefix, "/"); p != "" {
		var err error
		if dir, err = s.path(p); err != nil {
			return nil, err
		}
	}

	var keys []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("не удалось получить список объектов %s: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *LocalStore) ReadURL(key string) string {
	return s.objectURL(key)
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("не удалось удалить объект %s: %w", key, err)
	}
	return nil
}
