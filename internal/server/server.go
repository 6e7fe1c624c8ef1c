// Package server — HTTP API Bellhop.
//
// Эндпоинты:
//
//	POST /api/agent                      ход агента, ответ {message}
//	POST /api/agent/stream               ход агента, события SSE
//	POST /api/todos/evaluate             оценка задачи из to-do списка
//	POST /api/conversations/{id}/reset   новый разговор
//	GET  /api/conversations/{id}/usage   расход разговора
//	GET  /api/tools                      каталог инструментов
//	GET  /api/admin/overview             сводка отеля за 30 дней
//	GET  /healthz
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ilkoid/bellhop/pkg/agent"
	"github.com/ilkoid/bellhop/pkg/config"
	"github.com/ilkoid/bellhop/pkg/events"
	"github.com/ilkoid/bellhop/pkg/hotel"
	"github.com/ilkoid/bellhop/pkg/taskeval"
	"github.com/ilkoid/bellhop/pkg/tools"
	"github.com/ilkoid/bellhop/pkg/utils"
)

// AgentService — то, что нужно серверу от agent.Agent.
type AgentService interface {
	Run(ctx context.Context, req agent.Request) (agent.Reply, error)
	RunStream(ctx context.Context, req agent.Request, emitter events.Emitter) (agent.Reply, error)
	Reset(ctx context.Context, conversationID string) error
	Usage(ctx context.Context, conversationID string) (agent.UsageReport, error)
}

// TaskEvaluator — то, что нужно серверу от taskeval.Evaluator.
type TaskEvaluator interface {
	Evaluate(ctx context.Context, text string) (taskeval.Evaluation, error)
}

// OverviewSource отдаёт сводку для админки (hotel.Store).
type OverviewSource interface {
	Overview(ctx context.Context, asOf string) (hotel.Overview, error)
}

// Deps — зависимости обработчиков.
type Deps struct {
	Agent     AgentService
	Evaluator TaskEvaluator
	Tools     []tools.ToolDefinition
	Overview  OverviewSource

	// Now задаёт "сегодня" для сводки; по умолчанию time.Now.
	Now func() time.Time
}

// Server — HTTP-сервер API.
type Server struct {
	httpSrv *http.Server
	deps    Deps
}

// New создаёт сервер. Слушать адрес начинает Run.
func New(cfg config.ServerConfig, deps Deps) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Server{deps: deps}
	s.httpSrv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler возвращает маршрутизатор со всеми эндпоинтами.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/agent", s.handleAgent)
	mux.HandleFunc("POST /api/agent/stream", s.handleAgentStream)
	mux.HandleFunc("POST /api/todos/evaluate", s.handleEvaluate)
	mux.HandleFunc("POST /api/conversations/{id}/reset", s.handleReset)
	mux.HandleFunc("GET /api/conversations/{id}/usage", s.handleUsage)
	mux.HandleFunc("GET /api/tools", s.handleTools)
	mux.HandleFunc("GET /api/admin/overview", s.handleOverview)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return logRequests(mux)
}

// Run слушает адрес до отмены ctx, затем останавливает сервер,
// давая активным запросам до 10 секунд.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		utils.Info("HTTP server listening", "addr", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	utils.Info("HTTP server shutting down")
	return s.httpSrv.Shutdown(shutdownCtx)
}

// statusRecorder запоминает код ответа для лога.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush нужен SSE: обёртка не должна прятать http.Flusher.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		utils.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}
