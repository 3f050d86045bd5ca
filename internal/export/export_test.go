package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"eventphotos/internal/models"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

func testManifest() Manifest {
	at := time.Date(2026, 5, 1, 18, 30, 0, 0, time.UTC)
	records := []models.UploadedPhotoRecord{
		{FileName: "1-aaaa.jpg", URL: "https://cdn.test/events/EV/1-aaaa.jpg", DeviceID: "d1", EventCode: "EV", UploadedAt: at},
		{FileName: "2-bbbb.jpg", URL: "https://cdn.test/events/EV/2-bbbb.jpg", DeviceID: "d2", EventCode: "EV", UploadedAt: at.Add(time.Minute)},
	}
	return NewManifest(models.Event{Code: "EV", Name: "Свадьба"}, records, at)
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatYAML, testManifest()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var got Manifest
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if got.Count != 2 || got.EventName != "Свадьба" || got.Photos[1].DeviceID != "d2" {
		t.Errorf("манифест %+v", got)
	}
}

func TestWriteParquet(t *testing.T) {
	var buf bytes.Buffer
	m := testManifest()
	if err := Write(&buf, FormatParquet, m); err != nil {
		t.Fatalf("Write: %v", err)
	}

	pf, err := parquet.OpenFile(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("parquet.OpenFile: %v", err)
	}
	if pf.NumRows() != 2 {
		t.Fatalf("строк %d, ожидалось 2", pf.NumRows())
	}
	reader := parquet.NewGenericReader[PhotoRow](pf)
	defer reader.Close()
	rows := make([]PhotoRow, 2)
	n, _ := reader.Read(rows)
	if n != 2 || rows[0] != m.Photos[0] || rows[1] != m.Photos[1] {
		t.Errorf("прочитано %d: %+v", n, rows)
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, "csv", testManifest())
	if err == nil || !strings.Contains(err.Error(), "csv") {
		t.Errorf("ожидалась ошибка формата, получено %v", err)
	}
}
