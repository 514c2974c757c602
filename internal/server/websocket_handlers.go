package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/MeKo-Tech/doctext/internal/docerr"
	"github.com/MeKo-Tech/doctext/internal/pipeline"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketProcessRequest is one document sent by the client. Data is base64
// in JSON.
type WebSocketProcessRequest struct {
	Filename  string `json:"filename"`
	MediaType string `json:"media_type,omitempty"`
	Data      []byte `json:"data"`
}

// WebSocketProcessResponse is streamed back while a document is processed.
type WebSocketProcessResponse struct {
	Status   string       `json:"status"` // processing, completed, error
	Progress float64      `json:"progress"`
	Page     int          `json:"page,omitempty"`
	Total    int          `json:"total,omitempty"`
	Data     *ProcessData `json:"data,omitempty"`
	Error    *APIError    `json:"error,omitempty"`
	RunID    string       `json:"run_id,omitempty"`
}

// WebSocketConnWriter is the write side of a connection.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// lockedWriter serializes writes; page workers report progress concurrently.
type lockedWriter struct {
	mu   sync.Mutex
	conn WebSocketConnWriter
}

func (l *lockedWriter) send(resp WebSocketProcessResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

func (l *lockedWriter) sendError(code string, err error) {
	l.send(WebSocketProcessResponse{
		Status: "error",
		Error:  &APIError{Message: docerr.Message(err), Code: code},
	})
}

// wsProgress forwards page progress to the client.
type wsProgress struct {
	w *lockedWriter
}

func (p wsProgress) OnStart(total int) {
	p.w.send(WebSocketProcessResponse{Status: "processing", Total: total})
}

func (p wsProgress) OnProgress(current, total int) {
	if total <= 0 {
		return
	}
	p.w.send(WebSocketProcessResponse{
		Status:   "processing",
		Progress: float64(current) / float64(total),
		Page:     current,
		Total:    total,
	})
}

func (wsProgress) OnComplete()        {}
func (wsProgress) OnError(int, error) {}

// processWebSocketHandler upgrades the connection and processes each
// document message in turn.
func (s *Server) processWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()
	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	// base64 inflates by 4/3; allow for the JSON envelope too.
	conn.SetReadLimit(s.maxUploadMB*1024*1024*4/3 + 64*1024)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	out := &lockedWriter{conn: conn}
	go keepAlive(ctx, conn, &out.mu)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		if messageType != websocket.TextMessage {
			continue
		}
		s.handleWebSocketMessage(ctx, r, out, data)
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	}
}

func keepAlive(ctx context.Context, conn *websocket.Conn, mu *sync.Mutex) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
			mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// handleWebSocketMessage processes one request message.
func (s *Server) handleWebSocketMessage(ctx context.Context, r *http.Request, out *lockedWriter, data []byte) {
	var req WebSocketProcessRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.errorLog.Log(r, CodeUploadError, err)
		out.sendError(CodeUploadError, errors.New("Failed to parse request: "+err.Error())) //nolint:staticcheck // ST1005
		return
	}
	if len(req.Data) == 0 {
		out.sendError(CodeUploadError, errors.New("No file provided")) //nolint:staticcheck // ST1005
		return
	}

	mt, err := uploadType(req.Filename, req.MediaType)
	if err == nil {
		err = checkUploadContent(mt, bytes.NewReader(req.Data))
	}
	if err != nil {
		s.errorLog.Log(r, CodeInvalidFileType, err)
		out.sendError(CodeInvalidFileType, err)
		return
	}
	limit := s.maxUploadMB * 1024 * 1024
	path, size, err := s.saveUpload(req.Filename, bytes.NewReader(req.Data), limit)
	if err != nil {
		code := CodeUploadError
		if errors.Is(err, errFileTooLarge) {
			code = CodeFileTooLarge
		}
		s.errorLog.Log(r, code, err)
		out.sendError(code, err)
		return
	}
	defer s.cleaner.Remove(path)
	uploadSizeBytes.Observe(float64(size))

	out.send(WebSocketProcessResponse{Status: "processing"})

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := s.process(ctx, pipeline.SourceDocument{Path: path, MediaType: mt, Size: size},
		pipeline.WithProgress(pipeline.NewMultiProgressCallback(wsProgress{w: out}, pageLog(path))))
	if err != nil {
		code := string(docerr.CodeOf(err))
		s.errorLog.Log(r, code, err)
		out.sendError(code, err)
		return
	}
	out.send(WebSocketProcessResponse{
		Status:   "completed",
		Progress: 1,
		Data:     newProcessData(res),
		RunID:    res.RunID,
	})
}
