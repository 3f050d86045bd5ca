package upload

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"eventphotos/internal/models"
)

type fakeStore struct {
	baseURL    string
	presignErr error
}

func (f *fakeStore) PresignPut(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return f.baseURL + "/" + key + "?sig=ok", nil
}
func (f *fakeStore) List(context.Context, string) ([]string, error) { return nil, nil }
func (f *fakeStore) ReadURL(key string) string                      { return "https://cdn.test/" + key }
func (f *fakeStore) Delete(context.Context, string) error            { return nil }

type fakeRecorder struct {
	mu      sync.Mutex
	records []models.UploadedPhotoRecord
}

func (f *fakeRecorder) AppendUploaded(_ context.Context, rec models.UploadedPhotoRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

type fakeStager struct {
	mu       sync.Mutex
	stored   map[int64]models.CapturedImage
	restored []int64
}

func (f *fakeStager) Get(_ context.Context, _, _ string, id int64) (models.CapturedImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.stored[id]
	if !ok {
		return models.CapturedImage{}, errors.New("нет снимка")
	}
	return img, nil
}

func (f *fakeStager) Restore(_ context.Context, _, _ string, img models.CapturedImage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restored = append(f.restored, img.ID)
	return nil
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4)), nil); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	return buf.Bytes()
}

// storageServer принимает PUT и запоминает тела; status задаёт код ответа.
func storageServer(t *testing.T, status int) (*httptest.Server, *[]string) {
	t.Helper()
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.Header.Get("Content-Type") != "image/jpeg" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		io.Copy(io.Discard, r.Body)
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &paths
}

func TestUploadSuccessRecordsOnce(t *testing.T) {
	srv, paths := storageServer(t, http.StatusOK)
	rec := &fakeRecorder{}
	st := &fakeStager{}
	p := New(&fakeStore{baseURL: srv.URL}, rec, st, srv.Client())
	defer p.Close()
	p.now = func() time.Time { return time.Unix(0, 1234567890) }
	p.suffix = func() string { return "abcd1234" }

	p.Submit("dev", "EV", models.CapturedImage{ID: 1, Data: jpegBytes(t)}, true)
	p.Wait()

	if len(rec.records) != 1 {
		t.Fatalf("записей %d, ожидалась 1", len(rec.records))
	}
	got := rec.records[0]
	if got.FileName != "1234567890-abcd1234.jpg" || got.URL != "https://cdn.test/events/EV/1234567890-abcd1234.jpg" {
		t.Errorf("запись = %+v", got)
	}
	if len(*paths) != 1 || !strings.HasSuffix((*paths)[0], "/events/EV/1234567890-abcd1234.jpg") {
		t.Errorf("PUT-запросы: %v", *paths)
	}
	if len(st.restored) != 0 {
		t.Errorf("успешная загрузка не должна возвращать снимок: %v", st.restored)
	}
}

func TestUploadWriteFailureRestores(t *testing.T) {
	srv, _ := storageServer(t, http.StatusForbidden)
	rec := &fakeRecorder{}
	st := &fakeStager{}
	p := New(&fakeStore{baseURL: srv.URL}, rec, st, srv.Client())
	defer p.Close()

	p.Submit("dev", "EV", models.CapturedImage{ID: 5, Data: jpegBytes(t)}, true)
	p.Wait()

	if len(rec.records) != 0 {
		t.Errorf("при ошибке записи запись не создаётся: %v", rec.records)
	}
	if len(st.restored) != 1 || st.restored[0] != 5 {
		t.Errorf("снимок должен вернуться в список: %v", st.restored)
	}
}

func TestUploadCredentialFailureWithoutRemoval(t *testing.T) {
	st := &fakeStager{}
	p := New(&fakeStore{presignErr: errors.New("нет доступа")}, &fakeRecorder{}, st, nil)
	defer p.Close()

	p.Submit("dev", "EV", models.CapturedImage{ID: 5, Data: jpegBytes(t)}, false)
	p.Wait()

	if len(st.restored) != 0 {
		t.Errorf("неизъятый снимок не возвращается: %v", st.restored)
	}
}

func TestUploadResolvesBytesFromStaging(t *testing.T) {
	srv, paths := storageServer(t, http.StatusOK)
	st := &fakeStager{stored: map[int64]models.CapturedImage{9: {ID: 9, Data: jpegBytes(t)}}}
	rec := &fakeRecorder{}
	p := New(&fakeStore{baseURL: srv.URL}, rec, st, srv.Client())
	defer p.Close()

	if _, err := p.Upload(context.Background(), "dev", "EV", models.CapturedImage{ID: 9}); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(*paths) != 1 || len(rec.records) != 1 {
		t.Errorf("PUT %d, записей %d", len(*paths), len(rec.records))
	}
}

func TestSubmitAfterCloseRestores(t *testing.T) {
	st := &fakeStager{}
	p := New(&fakeStore{}, &fakeRecorder{}, st, nil)
	if p.Closed() {
		t.Fatal("новый конвейер не должен быть остановлен")
	}
	p.Close()
	if !p.Closed() {
		t.Fatal("Closed после Close должен быть true")
	}

	p.Submit("dev", "EV", models.CapturedImage{ID: 3, Data: jpegBytes(t)}, true)
	if len(st.restored) != 1 {
		t.Errorf("после остановки снимок должен вернуться в список: %v", st.restored)
	}
}
