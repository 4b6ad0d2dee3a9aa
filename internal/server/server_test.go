package server_test

import (
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/wwatcher/internal/server"
	"codeberg.org/mutker/wwatcher/internal/shutdown"
	"codeberg.org/mutker/wwatcher/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	Items []struct {
		TS   string `json:"ts"`
		RH   string `json:"rH"`
		Temp string `json:"temp"`
	} `json:"items"`
}

func startServer(t *testing.T, st *store.Store) (*server.Server, *shutdown.Flag, chan error) {
	t.Helper()

	flag := shutdown.NewFlag()
	srv := server.New(server.Config{Addr: "127.0.0.1:0"}, st, flag)
	require.NoError(t, srv.Listen())

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()

	t.Cleanup(func() {
		flag.Set()
		<-done
	})

	return srv, flag, done
}

func dial(t *testing.T, srv *server.Server) (net.Conn, *json.Decoder) {
	t.Helper()

	conn, err := net.DialTimeout("tcp", srv.Addr().String(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	return conn, json.NewDecoder(conn)
}

func request(t *testing.T, conn net.Conn, dec *json.Decoder) snapshot {
	t.Helper()

	_, err := conn.Write([]byte("get"))
	require.NoError(t, err)

	var snap snapshot
	require.NoError(t, dec.Decode(&snap))

	return snap
}

func TestSnapshotResponse(t *testing.T) {
	st := store.New(10)
	st.Append(store.Sample{Timestamp: "2024/01/01 00:00:00", Humidity: 45.67, Temperature: 21.5})
	st.Append(store.Sample{Timestamp: "2024/01/01 00:30:00", Humidity: 50, Temperature: 22})

	srv, _, _ := startServer(t, st)
	conn, _ := dial(t, srv)

	_, err := conn.Write([]byte("anything at all"))
	require.NoError(t, err)

	want := `{"items":[` +
		`{"ts":"2024/01/01 00:00:00","rH":"45.67","temp":"21.50"},` +
		`{"ts":"2024/01/01 00:30:00","rH":"50.00","temp":"22.00"}]}`

	buf := make([]byte, 0, len(want))
	chunk := make([]byte, 256)
	for len(buf) < len(want) {
		n, err := conn.Read(chunk)
		require.NoError(t, err)
		buf = append(buf, chunk[:n]...)
	}
	assert.Equal(t, want, string(buf))
}

func TestRepeatedRequestsOnOneConnection(t *testing.T) {
	st := store.New(10)
	srv, _, _ := startServer(t, st)
	conn, dec := dial(t, srv)

	assert.Empty(t, request(t, conn, dec).Items)

	st.Append(store.Sample{Timestamp: "2024/01/01 00:00:00", Humidity: 1, Temperature: 2})
	snap := request(t, conn, dec)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "1.00", snap.Items[0].RH)
	assert.Equal(t, "2.00", snap.Items[0].Temp)
}

func TestConcurrentClientsSeeConsistentSnapshots(t *testing.T) {
	st := store.New(5)
	for i := 0; i < 3; i++ {
		st.Append(store.Sample{Timestamp: "t", Humidity: float64(i)})
	}

	srv, _, _ := startServer(t, st)
	connA, decA := dial(t, srv)
	connB, decB := dial(t, srv)

	first := request(t, connA, decA)
	st.Append(store.Sample{Timestamp: "t", Humidity: 3})
	second := request(t, connB, decB)

	assert.Len(t, first.Items, 3)
	assert.Len(t, second.Items, 4)
	assert.Equal(t, "3.00", second.Items[3].RH)
}

func TestManyClientsWhileWriting(t *testing.T) {
	const capacity = 8
	st := store.New(capacity)
	srv, _, _ := startServer(t, st)

	stop := make(chan struct{})
	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
				st.Append(store.Sample{Timestamp: "t", Humidity: float64(i)})
			}
		}
	}()

	var clients sync.WaitGroup
	for c := 0; c < 4; c++ {
		conn, dec := dial(t, srv)
		clients.Add(1)
		go func() {
			defer clients.Done()
			for r := 0; r < 20; r++ {
				if _, err := conn.Write([]byte("x")); !assert.NoError(t, err) {
					return
				}
				var snap snapshot
				if !assert.NoError(t, dec.Decode(&snap)) {
					return
				}
				assert.LessOrEqual(t, len(snap.Items), capacity)
			}
		}()
	}

	clients.Wait()
	close(stop)
	writer.Wait()
}

func TestShutdownClosesListenerButNotClients(t *testing.T) {
	st := store.New(10)
	st.Append(store.Sample{Timestamp: "t", Humidity: 1})

	srv, flag, done := startServer(t, st)
	conn, dec := dial(t, srv)
	require.Eventually(t, func() bool { return srv.ActiveConnections() == 1 }, time.Second, time.Millisecond)

	start := time.Now()
	flag.Set()
	select {
	case err := <-done:
		require.NoError(t, err)
		done <- nil // for cleanup
	case <-time.After(5 * time.Second):
		t.Fatal("accept loop did not exit")
	}
	assert.Less(t, time.Since(start), 2*shutdown.PollInterval)

	_, err := net.DialTimeout("tcp", srv.Addr().String(), 200*time.Millisecond)
	assert.Error(t, err)

	assert.Len(t, request(t, conn, dec).Items, 1)
}

func TestHandlerExitsWhenClientCloses(t *testing.T) {
	srv, _, _ := startServer(t, store.New(1))
	conn, _ := dial(t, srv)

	require.Eventually(t, func() bool { return srv.ActiveConnections() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return srv.ActiveConnections() == 0 }, time.Second, time.Millisecond)
}

func TestServeWithoutListen(t *testing.T) {
	srv := server.New(server.Config{Addr: "127.0.0.1:0"}, store.New(1), shutdown.NewFlag())
	assert.Error(t, srv.Serve())
	assert.Nil(t, srv.Addr())
}
