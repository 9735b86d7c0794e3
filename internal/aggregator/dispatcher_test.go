package aggregator

import (
	"bufio"
	"context"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/jabolina/weatherlink/internal/checkpoint"
	"github.com/jabolina/weatherlink/internal/logging"
	"github.com/jabolina/weatherlink/internal/transport"
)

// wireClient drives one request/response exchange over a net.Conn exactly
// as a producer/query-client would (spec §6): read the handshake line,
// send the request, read the single response line.
func wireClient(t *testing.T, conn net.Conn, request string) (handshake, response string) {
	t.Helper()
	r := bufio.NewReader(conn)

	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read handshake: %v", err)
	}
	handshake = strings.TrimRight(line, "\n")

	if _, err := conn.Write([]byte(request)); err != nil {
		t.Fatalf("write request: %v", err)
	}

	line, err = r.ReadString('\n')
	if err != nil && line == "" {
		t.Fatalf("read response: %v", err)
	}
	response = strings.TrimRight(line, "\n")
	return handshake, response
}

func putRequest(serverID string, clk uint64, body string) string {
	return "PUT /uploadData HTTP/1.1\r\n" +
		"ServerId: " + serverID + "\r\n" +
		"LamportClock: " + strconv.FormatUint(clk, 10) + "\r\n" +
		"Content-Type: application/json\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n" +
		"\r\n" + body
}

func getRequest(serverID, stationID string, clk uint64) string {
	lines := []string{
		"GET /weather.json HTTP/1.1\r\n",
		"ServerId: " + serverID + "\r\n",
		"LamportClock: " + strconv.FormatUint(clk, 10) + "\r\n",
	}
	if stationID != "" {
		lines = append(lines, "StationId: "+stationID+"\r\n")
	}
	lines = append(lines, "\r\n")
	return strings.Join(lines, "")
}

func TestDispatcher_BasicPutGet(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := checkpoint.NewFileStore(filepath.Join(t.TempDir(), "data.json"))
	listener := transport.NewFakeListener(4)
	a := New(listener, store, Config{}, logging.New("test"))
	a.Run()
	defer func() {
		f := a.Shutdown()
		if err := f.Wait(context.Background()); err != nil {
			t.Fatalf("shutdown: %v", err)
		}
	}()

	conn1 := listener.Dial()
	_, resp := wireClient(t, conn1, putRequest("S1", 5, `{"id":"IDS60901","temp":25}`))
	if resp != "200 OK" {
		t.Fatalf("put response = %q", resp)
	}
	conn1.Close()

	conn2 := listener.Dial()
	hs, resp := wireClient(t, conn2, getRequest("C1", "IDS60901", 10))
	hsNum, err := strconv.Atoi(hs)
	if err != nil {
		t.Fatalf("handshake not numeric: %q", hs)
	}
	if hsNum < 6 {
		t.Fatalf("handshake should reflect at least one observed PUT, got %d", hsNum)
	}
	if resp != `{"id":"IDS60901","temp":25}` {
		t.Fatalf("get response = %q", resp)
	}
	conn2.Close()
}

func TestDispatcher_MissingServerID(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := checkpoint.NewFileStore(filepath.Join(t.TempDir(), "data.json"))
	listener := transport.NewFakeListener(4)
	a := New(listener, store, Config{}, logging.New("test"))
	a.Run()
	defer func() {
		f := a.Shutdown()
		_ = f.Wait(context.Background())
	}()

	req := "PUT /uploadData HTTP/1.1\r\n" +
		"LamportClock: 1\r\n" +
		"Content-Length: 10\r\n" +
		"\r\n" + `{"id":"X"}`
	conn := listener.Dial()
	_, resp := wireClient(t, conn, req)
	if resp != "400 Null ServerId" {
		t.Fatalf("response = %q", resp)
	}
	conn.Close()
}

func TestDispatcher_DefaultStationSelectsMostRecent(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := checkpoint.NewFileStore(filepath.Join(t.TempDir(), "data.json"))
	listener := transport.NewFakeListener(4)
	a := New(listener, store, Config{}, logging.New("test"))
	a.Run()
	defer func() {
		f := a.Shutdown()
		_ = f.Wait(context.Background())
	}()

	c1 := listener.Dial()
	wireClient(t, c1, putRequest("S1", 1, `{"id":"A","v":1}`))
	c1.Close()

	c2 := listener.Dial()
	wireClient(t, c2, putRequest("S1", 2, `{"id":"B","v":2}`))
	c2.Close()

	c3 := listener.Dial()
	_, resp := wireClient(t, c3, getRequest("C1", "", 5))
	if resp != `{"id":"B","v":2}` {
		t.Fatalf("expected default station B, got %q", resp)
	}
	c3.Close()
}

func TestDispatcher_UnknownMethod(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := checkpoint.NewFileStore(filepath.Join(t.TempDir(), "data.json"))
	listener := transport.NewFakeListener(4)
	a := New(listener, store, Config{}, logging.New("test"))
	a.Run()
	defer func() {
		f := a.Shutdown()
		_ = f.Wait(context.Background())
	}()

	req := "DELETE /uploadData HTTP/1.1\r\n\r\n"
	conn := listener.Dial()
	_, resp := wireClient(t, conn, req)
	if resp != "400 Bad Request" {
		t.Fatalf("response = %q", resp)
	}
	conn.Close()
}

func TestDispatcher_ShutdownIsIdempotentAndFast(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := checkpoint.NewFileStore(filepath.Join(t.TempDir(), "data.json"))
	listener := transport.NewFakeListener(4)
	a := New(listener, store, Config{CheckpointInterval: time.Hour}, logging.New("test"))
	a.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	f1 := a.Shutdown()
	f2 := a.Shutdown()
	if err := f1.Wait(ctx); err != nil {
		t.Fatalf("first shutdown: %v", err)
	}
	if err := f2.Wait(ctx); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}
