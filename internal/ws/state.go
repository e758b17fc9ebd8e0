package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	diag "github.com/coreman2200/usagiclock/internal/diagnostics"
	"github.com/coreman2200/usagiclock/internal/frames"
	"github.com/coreman2200/usagiclock/internal/schedule"
	"github.com/coreman2200/usagiclock/internal/sequence"
)

// Command is a control message: {"cmd":"trigger"} or {"cmd":"step","delta":-1}.
type Command struct {
	Cmd   string `json:"cmd"`
	Delta int    `json:"delta,omitempty"`
	Test  string `json:"test,omitempty"`
}

var ErrUnknownCommand = errors.New("unknown command")

// Status is the health/control reply.
type Status struct {
	Frame    sequence.Frame     `json:"frame"`
	Paused   bool               `json:"paused"`
	FPS      float64            `json:"fps"`
	Frames   uint64             `json:"frames"`
	Dropped  uint64             `json:"dropped"`
	Audio    bool               `json:"audio"`
	Cues     []string           `json:"cues,omitempty"`
	Sinks    []string           `json:"sinks,omitempty"`
	Settings schedule.Settings  `json:"settings"`
	Alarm    *time.Time         `json:"alarm_entered_at,omitempty"`
	Extra    map[string]float64 `json:"extra,omitempty"`
}

// Backend is what the HTTP surface drives.
type Backend interface {
	Control(ctx context.Context, c Command) error
	Status() Status
	LoadSettings(ctx context.Context) schedule.Settings
	SaveSettings(ctx context.Context, s schedule.Settings) error
}

// FrameFiles locates frame images on disk.
type FrameFiles interface {
	Path(id frames.ID) string
}

// State fans frames and diagnostics out to websocket clients and serves the
// control, health and settings endpoints. It is a render sink.
type State struct {
	Backend Backend
	Files   FrameFiles
	// Throttle limits frame broadcasts; 0 sends every frame.
	Throttle time.Duration

	mu          sync.RWMutex
	clients     map[*websocket.Conn]bool
	diagClients map[*websocket.Conn]bool
	lastEmit    time.Time
	lastID      frames.ID
	sent        uint64
	startTime   time.Time

	// writeMu serialises writes; gorilla connections allow one writer.
	writeMu sync.Mutex
}

func NewState(b Backend, files FrameFiles, throttle time.Duration) *State {
	return &State{
		Backend:     b,
		Files:       files,
		Throttle:    throttle,
		clients:     map[*websocket.Conn]bool{},
		diagClients: map[*websocket.Conn]bool{},
		startTime:   time.Now(),
	}
}

// Routes registers every handler on mux.
func (s *State) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.HandleFramesWS)
	mux.HandleFunc("/diag", s.HandleDiagWS)
	mux.HandleFunc("/control", s.HandleControlWS)
	mux.HandleFunc("/health", s.HandleHealth)
	mux.HandleFunc("/api/settings", s.HandleSettings)
	mux.HandleFunc("/api/control", s.HandleControl)
	mux.HandleFunc("GET /frames/{id}", s.HandleFrame)
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

type frameMsg struct {
	T       int64         `json:"t"`
	FrameID frames.ID     `json:"frame_id"`
	Src     string        `json:"frame"`
	Index   int           `json:"index"`
	Mode    sequence.Mode `json:"mode"`
	Seq     uint64        `json:"seq"`
}

// Write broadcasts f. Changed frame ids always go out; repeats are throttled.
func (s *State) Write(f sequence.Frame) error {
	s.mu.Lock()
	now := time.Now()
	if f.ID == s.lastID && s.Throttle > 0 && now.Sub(s.lastEmit) < s.Throttle {
		s.mu.Unlock()
		return nil
	}
	s.lastEmit, s.lastID = now, f.ID
	s.sent++
	seq := s.sent
	s.mu.Unlock()

	b, _ := json.Marshal(frameMsg{
		T:       f.At.UnixNano(),
		FrameID: f.ID,
		Src:     "/frames/" + strconv.Itoa(int(f.ID)),
		Index:   f.Index,
		Mode:    f.Mode,
		Seq:     seq,
	})
	s.broadcast(s.snapshot(s.clients), b)
	return nil
}

// PushDiag sends d to every diagnostics client.
func (s *State) PushDiag(d diag.Diagnostic) {
	if d.Time.IsZero() {
		d.Time = time.Now()
	}
	b, _ := json.Marshal(d)
	s.broadcast(s.snapshot(s.diagClients), b)
}

func (s *State) snapshot(set map[*websocket.Conn]bool) []*websocket.Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*websocket.Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

func (s *State) broadcast(conns []*websocket.Conn, b []byte) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	for _, c := range conns {
		c.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write ws")
		}
	}
}

func (s *State) writeJSON(conn *websocket.Conn, v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	return conn.WriteJSON(v)
}

// track registers conn in set and drains it until the peer goes away.
func (s *State) track(set map[*websocket.Conn]bool, conn *websocket.Conn) {
	s.mu.Lock()
	set[conn] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(set, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *State) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	if s.Backend != nil {
		_ = s.writeJSON(conn, s.Backend.Status())
	}
	s.track(s.clients, conn)
}

func (s *State) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.track(s.diagClients, conn)
}

// HandleControlWS applies each command and answers with the resulting status,
// or {"error": ...}.
func (s *State) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			_ = s.writeJSON(conn, map[string]string{"error": err.Error()})
			continue
		}
		if err := s.apply(r.Context(), cmd); err != nil {
			_ = s.writeJSON(conn, map[string]string{"error": err.Error()})
			continue
		}
		_ = s.writeJSON(conn, s.Backend.Status())
	}
}

// HandleControl is the plain HTTP form of the control channel.
func (s *State) HandleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var cmd Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.apply(r.Context(), cmd); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, ErrUnknownCommand) {
			code = http.StatusBadRequest
		}
		http.Error(w, err.Error(), code)
		return
	}
	writeJSON(w, s.Backend.Status())
}

func (s *State) apply(ctx context.Context, cmd Command) error {
	err := s.Backend.Control(ctx, cmd)
	if errors.Is(err, ErrUnknownCommand) {
		s.PushDiag(diag.New(diag.Warn, diag.CodeControlBad, "Unknown control command").With("cmd", cmd.Cmd))
	}
	return err
}

func (s *State) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	resp := map[string]any{
		"uptime_s":    time.Since(s.startTime).Seconds(),
		"clients":     len(s.clients),
		"diag":        len(s.diagClients),
		"frames_sent": s.sent,
	}
	s.mu.RUnlock()
	if s.Backend != nil {
		resp["status"] = s.Backend.Status()
	}
	writeJSON(w, resp)
}

// HandleSettings serves GET (current settings) and POST (validate, persist
// immediately, echo back).
func (s *State) HandleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, s.Backend.LoadSettings(r.Context()))
	case http.MethodPost, http.MethodPut:
		var in schedule.Settings
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.Backend.SaveSettings(r.Context(), in); err != nil {
			code := http.StatusInternalServerError
			if errors.Is(err, schedule.ErrMalformedSettings) {
				code = http.StatusBadRequest
			}
			http.Error(w, err.Error(), code)
			return
		}
		s.PushDiag(diag.New(diag.Info, diag.CodeSettingsSaved, "Alarm settings saved"))
		writeJSON(w, in)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleFrame serves the image for /frames/{id}.
func (s *State) HandleFrame(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || s.Files == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, s.Files.Path(frames.ID(id)))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// WithCORS allows browser viewers on other origins.
func WithCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
