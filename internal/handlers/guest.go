package handlers

import (
	// Стандартные библиотеки
	"net/http"
	"strconv"

	// Внутренние пакеты
	"eventphotos/internal/camera"
	"eventphotos/internal/middleware"
	"eventphotos/internal/models"
	"eventphotos/internal/review"
	"eventphotos/internal/services"
	"eventphotos/internal/slideshow"
	"eventphotos/internal/storage"

	// Сторонние библиотеки
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// join присоединяет устройство к событию из :code. ID устройства создаётся
// при первом присоединении и живёт в cookie сессии.
func (h *Handler) join(c *gin.Context) (*models.Event, string, error) {
	event, err := h.Events.GetEventByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		return nil, "", err
	}

	session := sessions.Default(c)
	id, _ := session.Get(middleware.KeyDeviceID).(string)
	if id == "" {
		id = uuid.NewString()
		session.Set(middleware.KeyDeviceID, id)
	}
	session.Set(middleware.KeyEventCode, event.Code)
	if err := session.Save(); err != nil {
		return nil, "", err
	}
	return event, id, nil
}

// HandleJoin - API присоединения к событию.
func (h *Handler) HandleJoin(c *gin.Context) {
	event, id, err := h.join(c)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"event":        event,
		"device_id":    id,
		"staged_limit": h.Staging.Limit(),
	})
}

// ShowGuestPage - страница, на которую ведёт QR-код события.
func (h *Handler) ShowGuestPage(c *gin.Context) {
	event, _, err := h.join(c)
	if err != nil {
		c.HTML(http.StatusNotFound, "error.html", gin.H{"title": "Не найдено", "message": "Событие не найдено или ссылка устарела."})
		return
	}
	c.HTML(http.StatusOK, "guest.html", gin.H{
		"title": event.Name,
		"event": event,
		"api":   "/api/e/" + event.Code,
	})
}

// --- Камера ---

type openRequest struct {
	Facing models.Facing                         `json:"facing"`
	Tracks map[models.Facing]camera.Capabilities `json:"tracks"`
}

func (h *Handler) session(c *gin.Context) *camera.Session {
	return h.Cameras.Get(deviceID(c), currentEvent(c).Code)
}

func (h *Handler) status(c *gin.Context, code int, extra gin.H) {
	st := h.session(c).Surface.Status(c.Request.Context())
	body := gin.H{"camera": st}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(code, body)
}

// HandleCameraOpen принимает потоки, которые удалось открыть клиенту,
// и запускает камеру с направлением facing (по умолчанию основная).
func (h *Handler) HandleCameraOpen(c *gin.Context) {
	var req openRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса.")
		return
	}
	if req.Facing == "" {
		req.Facing = models.FacingBack
	}
	if !req.Facing.Valid() {
		badRequest(c, "Неизвестное направление камеры.")
		return
	}

	s := h.session(c)
	for _, f := range []models.Facing{models.FacingFront, models.FacingBack} {
		if caps, ok := req.Tracks[f]; ok {
			s.Device.Report(f, caps)
		} else {
			s.Device.Revoke(f)
		}
	}
	if err := s.Surface.StartFeed(c.Request.Context(), req.Facing); err != nil {
		respondError(c, err)
		return
	}
	h.status(c, http.StatusOK, nil)
}

// HandleCameraStatus возвращает состояние камеры.
func (h *Handler) HandleCameraStatus(c *gin.Context) {
	h.status(c, http.StatusOK, nil)
}

// HandleCameraFlip переворачивает камеру.
func (h *Handler) HandleCameraFlip(c *gin.Context) {
	if err := h.session(c).Surface.Flip(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	h.status(c, http.StatusOK, nil)
}

// HandleCameraTap обрабатывает касание; двойной тап переворачивает камеру.
func (h *Handler) HandleCameraTap(c *gin.Context) {
	var req struct {
		Target string `json:"target"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса.")
		return
	}
	flipped, err := h.session(c).Surface.Tap(c.Request.Context(), req.Target)
	if err != nil {
		respondError(c, err)
		return
	}
	h.status(c, http.StatusOK, gin.H{"flipped": flipped})
}

// HandleCameraZoom применяет уровень зума интерфейса.
func (h *Handler) HandleCameraZoom(c *gin.Context) {
	var req struct {
		Level float64 `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Укажите уровень зума.")
		return
	}
	native, err := h.session(c).Surface.SetZoom(c.Request.Context(), req.Level)
	if err != nil {
		respondError(c, err)
		return
	}
	h.status(c, http.StatusOK, gin.H{"native_zoom": native})
}

// HandleCameraFlash переключает вспышку.
func (h *Handler) HandleCameraFlash(c *gin.Context) {
	on, err := h.session(c).Surface.ToggleFlash(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	h.status(c, http.StatusOK, gin.H{"flash": on})
}

// HandleCapture принимает текущий кадр (поле формы "frame") и делает снимок.
func (h *Handler) HandleCapture(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize+1<<20)

	fileHeader, err := c.FormFile("frame")
	if err != nil {
		badRequest(c, "Кадр не передан или слишком большой.")
		return
	}
	if fileHeader.Size > MaxUploadSize {
		badRequest(c, "Кадр слишком большой.")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		badRequest(c, "Не удалось прочитать кадр.")
		return
	}
	defer file.Close()

	frame, err := services.DecodeFrame(file)
	if err != nil {
		badRequest(c, "Не удалось распознать кадр.")
		return
	}

	s := h.session(c)
	s.Device.PushFrame(frame)
	shot, err := s.Surface.Capture(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	h.status(c, http.StatusCreated, gin.H{"shot": shot})
}

// HandleCameraClose останавливает камеру устройства.
func (h *Handler) HandleCameraClose(c *gin.Context) {
	h.Cameras.Remove(deviceID(c))
	c.Status(http.StatusNoContent)
}

// --- Промежуточный список ---

// HandleStagedList возвращает непросмотренные снимки устройства.
func (h *Handler) HandleStagedList(c *gin.Context) {
	items, err := h.Staging.List(c.Request.Context(), deviceID(c), currentEvent(c).Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "limit": h.Staging.Limit()})
}

// HandleStagedImage отдаёт байты снимка из промежуточного списка.
func (h *Handler) HandleStagedImage(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "Неверный идентификатор снимка.")
		return
	}
	img, err := h.Staging.Get(c.Request.Context(), deviceID(c), currentEvent(c).Code, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/jpeg", img.Data)
}

// --- Просмотр ---

type releaseRequest struct {
	review.Gesture
	ViewportHeight float64 `json:"viewport_height"`
}

func (h *Handler) stack(c *gin.Context) *review.Stack {
	return h.Reviews.Get(deviceID(c), currentEvent(c).Code)
}

// HandleReviewEnter открывает просмотр с первого снимка.
func (h *Handler) HandleReviewEnter(c *gin.Context) {
	var req struct {
		Touch bool `json:"touch"`
	}
	// Пустое тело - устройство без сенсорного ввода.
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength != 0 {
		badRequest(c, "Неверный формат запроса.")
		return
	}
	st, err := h.stack(c).Enter(c.Request.Context(), req.Touch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// HandleReviewState возвращает состояние просмотра.
func (h *Handler) HandleReviewState(c *gin.Context) {
	st, err := h.stack(c).State(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// HandleReviewDrag фиксирует ось жеста по начальному смещению.
func (h *Handler) HandleReviewDrag(c *gin.Context) {
	var req struct {
		DX float64 `json:"dx"`
		DY float64 `json:"dy"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"axis": h.stack(c).BeginDrag(req.DX, req.DY)})
}

// HandleReviewMove возвращает визуальное состояние во время перетаскивания.
func (h *Handler) HandleReviewMove(c *gin.Context) {
	var req releaseRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ViewportHeight <= 0 {
		badRequest(c, "Неверный формат запроса.")
		return
	}
	c.JSON(http.StatusOK, h.stack(c).Move(req.Gesture, req.ViewportHeight))
}

// HandleReviewRelease разрешает жест.
func (h *Handler) HandleReviewRelease(c *gin.Context) {
	var req releaseRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ViewportHeight <= 0 {
		badRequest(c, "Неверный формат запроса.")
		return
	}
	out, err := h.stack(c).Release(c.Request.Context(), req.Gesture, req.ViewportHeight)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// HandleReviewKey обрабатывает стрелки клавиатуры.
func (h *Handler) HandleReviewKey(c *gin.Context) {
	var req struct {
		Key string `json:"key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Укажите клавишу.")
		return
	}
	out, err := h.stack(c).Key(c.Request.Context(), req.Key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- Галерея ---

func (h *Handler) galleryItems(c *gin.Context) ([]models.UploadedPhotoRecord, error) {
	all, err := h.DB.ListUploadedByDevice(c.Request.Context(), deviceID(c))
	if err != nil {
		return nil, err
	}
	code := currentEvent(c).Code
	items := make([]models.UploadedPhotoRecord, 0, len(all))
	for _, r := range all {
		if r.EventCode == code {
			items = append(items, r)
		}
	}
	return items, nil
}

// HandleGalleryEnter открывает галерею. Непросмотренные снимки при этом удаляются.
func (h *Handler) HandleGalleryEnter(c *gin.Context) {
	if err := h.Staging.EnterGallery(c.Request.Context(), deviceID(c)); err != nil {
		respondError(c, err)
		return
	}
	h.HandleGalleryList(c)
}

// HandleGalleryList возвращает фото, загруженные устройством в событие.
func (h *Handler) HandleGalleryList(c *gin.Context) {
	items, err := h.galleryItems(c)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// HandleGalleryDelete удаляет загруженное устройством фото из хранилища и списка.
func (h *Handler) HandleGalleryDelete(c *gin.Context) {
	rec, err := h.DB.DeleteUploaded(c.Request.Context(), deviceID(c), c.Param("file"))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.Objects.Delete(c.Request.Context(), storage.ObjectKey(rec.EventCode, rec.FileName)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandlePhotos возвращает фото события, подтверждённые хранилищем.
func (h *Handler) HandlePhotos(c *gin.Context) {
	photos, err := slideshow.ObjectSource{Store: h.Objects}.ListPhotos(c.Request.Context(), currentEvent(c).Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": photos, "total": len(photos)})
}
