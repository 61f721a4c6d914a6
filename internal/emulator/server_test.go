package emulator_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-ledger/internal/emulator"
	"github/chapool/go-ledger/internal/ledger/apdu"
	"github/chapool/go-ledger/internal/ledger/ethapp"
	"github/chapool/go-ledger/internal/ledger/transport"
)

func newServer(t *testing.T) *emulator.Server {
	t.Helper()

	f := newFixture(t)
	s, err := emulator.InitNewServer(f.cfg, f.seed)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})

	return s
}

func TestServeTCP(t *testing.T) {
	s := newServer(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- s.ServeTCP(l) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tr, err := transport.DialTCP(ctx, l.Addr().String())
	require.NoError(t, err)
	defer tr.Close()

	app := ethapp.New(tr)

	addr, err := app.Address(ctx, ethapp.DefaultPath(0), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, testAddress, addr.Hex())

	_, err = app.Sign(ctx, ethapp.DefaultPath(0), legacyPayload(t), nil)
	require.NoError(t, err)

	answer, err := tr.Exchange(ctx, apdu.Command{CLA: 0x00, INS: 0x02})
	require.NoError(t, err)
	assert.Equal(t, apdu.SWClaNotSupported, answer.StatusWord)

	s.Shutdown(ctx)
	select {
	case err := <-served:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("ServeTCP did not return after shutdown")
	}
}

// gatedListener hands out a single pipe connection once its gate opens
type gatedListener struct {
	accepting chan struct{}
	gate      chan struct{}
	conn      net.Conn
	once      sync.Once
	closeOnce sync.Once
	closed    chan struct{}
}

func newGatedListener(conn net.Conn) *gatedListener {
	return &gatedListener{
		accepting: make(chan struct{}),
		gate:      make(chan struct{}),
		conn:      conn,
		closed:    make(chan struct{}),
	}
}

func (l *gatedListener) Accept() (net.Conn, error) {
	var conn net.Conn
	l.once.Do(func() {
		close(l.accepting)
		<-l.gate
		conn = l.conn
	})
	if conn != nil {
		return conn, nil
	}

	<-l.closed
	return nil, net.ErrClosed
}

func (l *gatedListener) Close() error {
	l.closeOnce.Do(func() { close(l.closed) })
	return nil
}

func (l *gatedListener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

func TestServeTCPConnectionAcceptedDuringShutdown(t *testing.T) {
	s := newServer(t)

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	l := newGatedListener(serverConn)
	served := make(chan error, 1)
	go func() { served <- s.ServeTCP(l) }()

	<-l.accepting

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.Shutdown(ctx)
	close(l.gate)

	select {
	case err := <-served:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("ServeTCP did not return after shutdown")
	}

	raw, err := apdu.Command{CLA: ethapp.CLA, INS: byte(ethapp.InsGetAppConfiguration)}.Serialize()
	require.NoError(t, err)

	require.NoError(t, clientConn.SetDeadline(time.Now().Add(2*time.Second)))
	err = transport.WriteCommandFrame(clientConn, raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestServeHTTP(t *testing.T) {
	s := newServer(t)

	ts := httptest.NewServer(s.Echo)
	defer ts.Close()

	tr := transport.NewHTTP(ts.URL, 5*time.Second)
	defer tr.Close()

	app := ethapp.New(tr)
	ctx := context.Background()

	cfg, err := app.Configuration(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.10.2", cfg.Version)

	addr, err := app.Address(ctx, ethapp.DefaultPath(0), nil, boolPtr(true))
	require.NoError(t, err)
	assert.Equal(t, testAddress, addr.Hex())
	assert.Len(t, addr.ChainCode, 32)
}

func TestServeHTTPBadRequest(t *testing.T) {
	s := newServer(t)

	ts := httptest.NewServer(s.Echo)
	defer ts.Close()

	res, err := http.Post(ts.URL+transport.APDUPath, "application/json", strings.NewReader(`{"data":"zz"}`))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestServeMetrics(t *testing.T) {
	s := newServer(t)

	ts := httptest.NewServer(s.Echo)
	defer ts.Close()

	_, err := ethapp.New(transport.NewHTTP(ts.URL, 5*time.Second)).Configuration(context.Background())
	require.NoError(t, err)

	res, err := http.Get(ts.URL + emulator.MetricsPath)
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), `ledger_device_commands_total{ins="0x06",status="0x9000"} 1`)
	assert.Contains(t, string(body), `ledger_emulator_http_requests_total{code="200",host=`)
}

func TestGetReady(t *testing.T) {
	s := newServer(t)

	res := httptest.NewRecorder()
	s.Echo.ServeHTTP(res, httptest.NewRequest(http.MethodGet, emulator.ReadyPath, nil))

	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "Ready.", res.Body.String())
}

func TestGetReadySeedCleared(t *testing.T) {
	f := newFixture(t)
	s, err := emulator.InitNewServer(f.cfg, f.seed)
	require.NoError(t, err)

	// forcefully drop the seed to check the ready state
	f.seed.Clear()

	res := httptest.NewRecorder()
	s.Echo.ServeHTTP(res, httptest.NewRequest(http.MethodGet, emulator.ReadyPath, nil))

	require.Equal(t, 521, res.Code)
	require.Equal(t, "Not ready.", res.Body.String())
}
