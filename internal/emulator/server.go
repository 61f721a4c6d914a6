package emulator

import (
	"context"
	"encoding/hex"
	"net"
	"net/http"
	"sync"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/go-ledger/internal/config"
	"github/chapool/go-ledger/internal/ledger/transport"
	"github/chapool/go-ledger/internal/metrics"
)

const (
	// MetricsPath serves the emulator's prometheus metrics
	MetricsPath = "/metrics"
	// ReadyPath answers 200 once the device holds a seed
	ReadyPath = "/-/ready"

	statusNotReady = 521
)

// Server exposes a Device over the HTTP and TCP bridge protocols.
// It is initialized with wire, see wire.go.
type Server struct {
	Config  config.Server
	Device  *Device
	Metrics *metrics.Service
	Echo    *echo.Echo

	mu        sync.Mutex
	listener  net.Listener
	conns     map[net.Conn]struct{}
	closeOnce sync.Once
	closed    chan struct{}
}

func newServerWithComponents(cfg config.Server, device *Device, m *metrics.Service) *Server {
	s := &Server{
		Config:  cfg,
		Device:  device,
		Metrics: m,
		conns:   make(map[net.Conn]struct{}),
		closed:  make(chan struct{}),
	}

	s.Echo = echo.New()
	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "ledger",
		Subsystem:  "emulator_http",
		Registerer: m.Registry,
		Skipper: func(c echo.Context) bool {
			return c.Path() == MetricsPath
		},
		DoNotUseRequestPathFor404: true,
	}))

	s.Echo.POST(transport.APDUPath, s.postAPDU)
	s.Echo.GET(ReadyPath, s.getReady)
	s.Echo.GET(MetricsPath, echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: m.Registry}))

	return s
}

func (s *Server) postAPDU(c echo.Context) error {
	var msg transport.APDUMessage
	if err := c.Bind(&msg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid apdu message")
	}

	raw, err := hex.DecodeString(msg.Data)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "apdu data is not hex")
	}

	answer := s.Device.Handle(raw)

	return c.JSON(http.StatusOK, transport.APDUMessage{Data: hex.EncodeToString(answer.Bytes())})
}

func (s *Server) getReady(c echo.Context) error {
	if !s.Ready() {
		return c.String(statusNotReady, "Not ready.")
	}

	return c.String(http.StatusOK, "Ready.")
}

// Ready reports whether the device can answer key related commands
func (s *Server) Ready() bool {
	return s.Device != nil && s.Device.seed.IsInitialized()
}

// Start serves TCP in the background when configured and HTTP in the foreground
func (s *Server) Start() error {
	if addr := s.Config.Emulator.ListenTCP; addr != "" {
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return errors.Wrapf(err, "failed to listen on %s", addr)
		}

		log.Info().Str("address", l.Addr().String()).Msg("Serving APDU socket")

		go func() {
			if err := s.ServeTCP(l); err != nil {
				log.Error().Err(err).Msg("APDU socket stopped")
			}
		}()
	}

	log.Info().Str("address", s.Config.Emulator.ListenHTTP).Msg("Serving APDU over HTTP")

	if err := s.Echo.Start(s.Config.Emulator.ListenHTTP); err != nil {
		return errors.Wrap(err, "failed to start echo server")
	}

	return nil
}

// ServeTCP accepts bridge connections on l until the server shuts down
func (s *Server) ServeTCP(l net.Listener) error {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	select {
	case <-s.closed:
		return l.Close()
	default:
	}

	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return nil
			default:
				return errors.Wrap(err, "failed to accept connection")
			}
		}

		// Shutdown may have run while Accept was returning
		s.mu.Lock()
		select {
		case <-s.closed:
			s.mu.Unlock()
			_ = conn.Close()
			return nil
		default:
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	logger := log.With().Str("remote", conn.RemoteAddr().String()).Logger()
	logger.Debug().Msg("Bridge connected")

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
		logger.Debug().Msg("Bridge disconnected")
	}()

	for {
		raw, err := transport.ReadCommandFrame(conn)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) && !isEOF(err) {
				logger.Warn().Err(err).Msg("Failed to read command frame")
			}
			return
		}

		if err := transport.WriteAnswerFrame(conn, s.Device.Handle(raw)); err != nil {
			logger.Warn().Err(err).Msg("Failed to write answer frame")
			return
		}
	}
}

// Shutdown stops both listeners and closes open bridge connections
func (s *Server) Shutdown(ctx context.Context) []error {
	log.Warn().Msg("Shutting down emulator")

	var errs []error

	s.closeOnce.Do(func() { close(s.closed) })

	s.mu.Lock()
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	if err := s.Echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Failed to shutdown echo server")
		errs = append(errs, err)
	}

	return errs
}
