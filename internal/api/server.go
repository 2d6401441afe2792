package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"linefit/internal/engine"
	"linefit/internal/events"
	"linefit/internal/logger"

	"golang.org/x/net/websocket"
)

// maxBodyBytes はリクエストボディの上限
const maxBodyBytes = 8 << 20

// Server はAPIサーバー
type Server struct {
	addr   string
	engine *engine.Engine
	bus    *events.Bus
	log    *logger.Logger

	mu        sync.RWMutex
	wsClients map[*websocket.Conn]bool

	server *http.Server
}

// NewServer は新しいAPIサーバーを作成する
// bus が nil ならイベントの配信は行わない
func NewServer(addr string, eng *engine.Engine, bus *events.Bus) *Server {
	return &Server{
		addr:      addr,
		engine:    eng,
		bus:       bus,
		log:       logger.Default,
		wsClients: make(map[*websocket.Conn]bool),
	}
}

// SetLogger はロガーを設定する
func (s *Server) SetLogger(l *logger.Logger) {
	s.log = l
}

// Handler はルーティング済みの http.Handler を返す
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("/api/transform", s.handleTransform)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/metrics", s.handleMetrics)

	// WebSocket
	mux.Handle("/ws", websocket.Handler(s.handleWebSocket))

	return mux
}

// Start はサーバーを開始する
// ctx が終わるとシャットダウンして nil を返す
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// バックグラウンドでイベント配信
	go s.broadcastLoop(ctx)

	s.log.Info("api", "API Server starting on http://%s", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// TransformResponse は整形結果のレスポンス
type TransformResponse struct {
	Output string `json:"output"`
	Lines  int    `json:"lines"`
}

// ErrorResponse はエラーレスポンス
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req engine.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// クライアントが切断したら実行もキャンセルされる
	out, err := s.engine.Do(r.Context(), req)
	if err != nil {
		s.log.Debug("api", "Transform failed: %v", err)
		s.writeJSONStatus(w, StatusCode(err), ErrorResponse{
			Error: err.Error(),
			Kind:  engine.Kind(err),
		})
		return
	}

	s.writeJSON(w, TransformResponse{
		Output: out,
		Lines:  countLines(out, s.engine.Config().Newline),
	})
}

// StatusCode はエラー種別を HTTP ステータスに対応付ける
func StatusCode(err error) int {
	switch engine.Kind(err) {
	case "InvalidArgument":
		return http.StatusBadRequest
	case "AlreadyRunning":
		return http.StatusConflict
	case "Cancelled":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func countLines(out, newline string) int {
	if out == "" {
		return 0
	}
	return strings.Count(out, newline) + 1
}

// StatusResponse はステータスレスポンス
type StatusResponse struct {
	Running    bool   `json:"running"`
	ActiveRuns int    `json:"active_runs"`
	Workers    int    `json:"workers"`
	Exclusive  bool   `json:"exclusive"`
	Separator  string `json:"separator"`
	WSClients  int    `json:"ws_clients"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := s.engine.Config()
	s.writeJSON(w, StatusResponse{
		Running:    s.engine.IsRunning(),
		ActiveRuns: s.engine.ActiveRuns(),
		Workers:    cfg.Workers,
		Exclusive:  cfg.Exclusive,
		Separator:  string(cfg.Separator),
		WSClients:  s.ClientCount(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	m := s.engine.Metrics()
	if m == nil {
		http.Error(w, "Metrics disabled", http.StatusNotFound)
		return
	}
	s.writeJSON(w, m.Snapshot())
}

// WebSocket handling
func (s *Server) handleWebSocket(ws *websocket.Conn) {
	s.mu.Lock()
	s.wsClients[ws] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.wsClients, ws)
		s.mu.Unlock()
		_ = ws.Close()
	}()

	// Keep connection alive
	for {
		var msg string
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			break
		}
	}
}

// ClientCount は接続中の WebSocket クライアント数を返す
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.wsClients)
}

// Message は WebSocket で配信するメッセージ
type Message struct {
	Type  string        `json:"type"`
	Event *events.Event `json:"event,omitempty"`
	Data  any           `json:"data,omitempty"`
}

func (s *Server) broadcast(msg Message) {
	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.wsClients))
	for ws := range s.wsClients {
		clients = append(clients, ws)
	}
	s.mu.RUnlock()

	jsonData, err := json.Marshal(msg)
	if err != nil {
		return
	}

	for _, ws := range clients {
		_ = websocket.Message.Send(ws, string(jsonData))
	}
}

// broadcastLoop はバスのイベントをそのまま流し、実行中は毎秒メトリクスも送る
func (s *Server) broadcastLoop(ctx context.Context) {
	var sub <-chan events.Event
	if s.bus != nil {
		sub = s.bus.Subscribe()
		defer s.bus.Unsubscribe(sub)
	}

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			s.broadcast(Message{Type: "event", Event: &ev})
		case <-ticker.C:
			m := s.engine.Metrics()
			if !s.engine.IsRunning() || m == nil {
				continue
			}
			s.broadcast(Message{Type: "metrics", Data: m.Snapshot()})
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	s.writeJSONStatus(w, http.StatusOK, data)
}

func (s *Server) writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("api", "Failed to encode JSON: %v", err)
	}
}
