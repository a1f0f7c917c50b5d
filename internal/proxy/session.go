package proxy

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/cdpgate/internal/shared/id"
)

// Pump directions, used as metric labels
const (
	ClientToUpstream = "client_to_upstream"
	UpstreamToClient = "upstream_to_client"
)

type sessionConfig struct {
	writeTimeout time.Duration
	readLimit    int64
}

// session is one relayed WebSocket connection: the client socket, the
// upstream socket and the two pumps between them. Whichever pump stops first
// closes both sockets, which unblocks the other pump's read.
type session struct {
	id       id.RelayID
	client   *websocket.Conn
	upstream *websocket.Conn
	cfg      sessionConfig
	logger   *zap.Logger
	metrics  *monitoring.Metrics

	closing   atomic.Bool
	closeOnce sync.Once
}

func newSession(relayID id.RelayID, client, upstream *websocket.Conn, cfg sessionConfig, logger *zap.Logger, metrics *monitoring.Metrics) *session {
	return &session{
		id:       relayID,
		client:   client,
		upstream: upstream,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// run pumps frames until either side closes or ctx is done, and returns only
// after both pumps exited. A nil error means an orderly close.
func (s *session) run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, s.close)
	defer stop()

	for _, c := range []*websocket.Conn{s.client, s.upstream} {
		if s.cfg.readLimit > 0 {
			c.SetReadLimit(s.cfg.readLimit)
		}
	}

	// Control frames are answered by whoever owns the other end
	s.client.SetPingHandler(s.forwardControl(websocket.PingMessage, s.upstream))
	s.upstream.SetPingHandler(s.forwardControl(websocket.PingMessage, s.client))
	s.client.SetPongHandler(s.forwardControl(websocket.PongMessage, s.upstream))
	s.upstream.SetPongHandler(s.forwardControl(websocket.PongMessage, s.client))

	// Close frames are forwarded by pump once NextReader reports them
	s.client.SetCloseHandler(func(int, string) error { return nil })
	s.upstream.SetCloseHandler(func(int, string) error { return nil })

	var g errgroup.Group
	g.Go(func() error {
		defer s.close()
		return s.pump(s.upstream, s.client, ClientToUpstream)
	})
	g.Go(func() error {
		defer s.close()
		return s.pump(s.client, s.upstream, UpstreamToClient)
	})

	err := g.Wait()
	s.close()
	return err
}

// pump copies messages from src to dst, one NextReader/NextWriter pair per
// message, so the frame type and payload are kept exactly.
func (s *session) pump(dst, src *websocket.Conn, direction string) error {
	for {
		messageType, r, err := src.NextReader()
		if err != nil {
			return s.finish(dst, err, direction)
		}

		if err := dst.SetWriteDeadline(time.Now().Add(s.cfg.writeTimeout)); err != nil {
			return s.ignoreAfterClose(err)
		}
		w, err := dst.NextWriter(messageType)
		if err != nil {
			return s.ignoreAfterClose(err)
		}
		n, err := io.Copy(w, r)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return s.ignoreAfterClose(err)
		}

		s.metrics.RecordRelayFrame(direction, frameTypeName(messageType), n)
	}
}

// finish handles the end of src. A close frame is passed on to dst with the
// same code and reason; a vanished peer becomes 1001 going away. Normal
// closes are not errors.
func (s *session) finish(dst *websocket.Conn, err error, direction string) error {
	// The other pump tore the session down
	if s.closing.Load() {
		return nil
	}

	code, text := websocket.CloseGoingAway, "peer disconnected"
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		s.logger.Debug("Close frame received",
			zap.String("direction", direction),
			zap.Int("code", closeErr.Code),
			zap.String("reason", closeErr.Text),
		)
		switch closeErr.Code {
		case websocket.CloseAbnormalClosure, websocket.CloseTLSHandshake:
			// Reserved codes that never appear on the wire
		default:
			code, text = closeErr.Code, closeErr.Text
		}
	}

	msg := websocket.FormatCloseMessage(code, text)
	_ = dst.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.cfg.writeTimeout))

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		return nil
	}
	return err
}

func (s *session) ignoreAfterClose(err error) error {
	if s.closing.Load() {
		return nil
	}
	return err
}

func (s *session) forwardControl(messageType int, dst *websocket.Conn) func(string) error {
	return func(appData string) error {
		err := dst.WriteControl(messageType, []byte(appData), time.Now().Add(s.cfg.writeTimeout))
		if err == nil || errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		// A failed control write ends the read loop of the handler's conn
		return s.ignoreAfterClose(err)
	}
}

// close tears down both sockets exactly once
func (s *session) close() {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		_ = s.client.Close()
		_ = s.upstream.Close()
	})
}

func frameTypeName(messageType int) string {
	switch messageType {
	case websocket.TextMessage:
		return "text"
	case websocket.BinaryMessage:
		return "binary"
	default:
		return "other"
	}
}
