package camera

import "sync"

// Session - камера и поверхность съёмки одного гостевого устройства.
type Session struct {
	Device  *RemoteDevice
	Surface *Surface
}

// Registry хранит сессии камер по ID устройства.
type Registry struct {
	stager Stager

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry создаёт пустой реестр.
func NewRegistry(stager Stager) *Registry {
	return &Registry{stager: stager, sessions: make(map[string]*Session)}
}

// Get возвращает сессию устройства, создавая её при первом обращении.
// Если устройство перешло к другому событию, старая сессия закрывается.
func (r *Registry) Get(deviceID, eventCode string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[deviceID]; ok {
		if s.Surface.eventCode == eventCode {
			return s
		}
		s.Surface.Close()
	}
	dev := NewRemoteDevice()
	s := &Session{Device: dev, Surface: NewSurface(dev, r.stager, deviceID, eventCode)}
	r.sessions[deviceID] = s
	return s
}

// Remove останавливает камеру устройства и забывает сессию.
func (r *Registry) Remove(deviceID string) {
	r.mu.Lock()
	s, ok := r.sessions[deviceID]
	delete(r.sessions, deviceID)
	r.mu.Unlock()
	if ok {
		s.Surface.Close()
	}
}

// CloseAll останавливает все камеры.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range sessions {
		s.Surface.Close()
	}
}
