package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
	"github.com/payal-22/Collab-Canvas/internal/router"
	"github.com/payal-22/Collab-Canvas/internal/server/middleware"
	"github.com/payal-22/Collab-Canvas/pkg/config"
	"github.com/payal-22/Collab-Canvas/pkg/session"
	"github.com/payal-22/Collab-Canvas/pkg/session/sessionmanager"
	"github.com/payal-22/Collab-Canvas/pkg/transport"
)

type App struct {
	logger      *slog.Logger
	sessions    session.Manager
	eventRouter *router.EventRouter
	wg          sync.WaitGroup
	http        *http.Server
	config      *config.Config

	ctx context.Context
}

func NewApp(logger *slog.Logger, rootCtx context.Context, cfg *config.Config) *App {
	sessions := sessionmanager.NewInMemoryManager(logger, cfg.Rooms.GracePeriod)
	eventRouter := router.NewEventRouter(logger, sessions, cfg.Rooms)

	app := &App{
		logger:      logger,
		sessions:    sessions,
		eventRouter: eventRouter,
		config:      cfg,
		ctx:         rootCtx,
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", app.healthzHandler).Methods(http.MethodGet)
	r.HandleFunc("/stats", app.statsHandler).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{roomID}", app.roomHandler).Methods(http.MethodGet)

	// Close the oldest connection from an IP to make room for a new one.
	connCycler := func(ipAddr string) {
		oldest, found := sessions.FindOldestConnectionByIP(ipAddr)
		if !found {
			return
		}
		logger.Info("Cycling connection: closing oldest", "ip", ipAddr, "connID", oldest.ID())
		if tc, ok := oldest.(*transport.Connection); ok {
			tc.Close(errors.New("connection cycled by new connection"))
		}
	}

	upgradeHandler := http.HandlerFunc(app.upgradeHandler)
	r.Handle("/ws",
		middleware.Chain(upgradeHandler,
			middleware.RequestMetadataMiddleware(),
			middleware.NewRequestLogger(app.logger),
			middleware.NewConnectionLimiter(
				logger,
				sessions.ConnectionCountByIP,
				connCycler,
				cfg.Server.ConnectionLimit,
			),
		),
	)

	app.http = &http.Server{Addr: cfg.Server.Address, Handler: r, BaseContext: func(l net.Listener) context.Context {
		return app.ctx
	}}

	return app
}

func (a *App) Run() error {
	go func() {
		a.logger.Info("Server starting", slog.String("addr", a.http.Addr))
		if err := a.http.ListenAndServe(); err != http.ErrServerClosed {
			a.logger.Error("HTTP server failed", slog.Any("error", err))
		}
	}()

	<-a.ctx.Done()
	return a.Shutdown()
}

func (a *App) upgradeHandler(w http.ResponseWriter, r *http.Request) {
	reqMeta, _ := middleware.ReqMetadataFrom(r.Context())
	var ip string
	if reqMeta != nil {
		ip = reqMeta.IP
	}
	connLogger := a.logger.With(slog.String("remoteAddr", ip))

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		a.logger.Error("Failed to accept websocket connection", slog.Any("error", err))
		return
	}

	conn := transport.NewConnection(
		r.Context(),
		&a.wg,
		wsConn,
		transport.ConnectionConfig(a.config.Transport),
		a.eventRouter.HandleMessage,
		a.eventRouter.HandleDisconnect,
		a.logger,
	)

	if err := a.eventRouter.HandleConnect(conn, ip); err != nil {
		connLogger.Error("Failed to register connection", slog.Any("error", err))
		conn.Close(err)
		return
	}

	connLogger.Info("Connection fully established", slog.String("connID", conn.ID().String()))
	conn.Run()
	<-conn.Done()
}

// Shutdown runs the graceful shutdown sequence: stop accepting requests,
// close every live connection, then wait for their goroutines to drain.
// In-memory room state is not persisted and is lost.
func (a *App) Shutdown() error {
	a.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		return err
	}

	a.logger.Info("Closing all active connections...")
	for _, conn := range a.sessions.AllConnections() {
		if tc, ok := conn.(*transport.Connection); ok {
			tc.Close(errors.New("graceful shutdown"))
		}
	}

	a.wg.Wait()
	a.logger.Info("Server shut down gracefully.")
	return nil
}
