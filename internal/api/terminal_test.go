package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/workterm/workterm/internal/auth"
	"github.com/workterm/workterm/internal/pty"
	"github.com/workterm/workterm/internal/session"
	"github.com/workterm/workterm/pkg/types"
)

type fakeProc struct {
	out  chan []byte
	done chan struct{}

	mu      sync.Mutex
	writes  [][]byte
	resizes [][2]int

	killOnce sync.Once
}

func newFakeProc() *fakeProc {
	return &fakeProc{out: make(chan []byte, 16), done: make(chan struct{})}
}

func (p *fakeProc) Read(b []byte) (int, error) {
	select {
	case msg := <-p.out:
		return copy(b, msg), nil
	case <-p.done:
		return 0, io.EOF
	}
}

func (p *fakeProc) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = append(p.writes, append([]byte(nil), b...))
	return len(b), nil
}

func (p *fakeProc) Resize(rows, cols int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resizes = append(p.resizes, [2]int{rows, cols})
	return nil
}

func (p *fakeProc) Kill()                 { p.killOnce.Do(func() { close(p.done) }) }
func (p *fakeProc) PID() int              { return 4242 }
func (p *fakeProc) Done() <-chan struct{} { return p.done }

func (p *fakeProc) wroteJoined() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var sb strings.Builder
	for _, w := range p.writes {
		sb.Write(w)
	}
	return sb.String()
}

func (p *fakeProc) resizeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.resizes)
}

type fakeSpawner struct {
	mu    sync.Mutex
	procs []*fakeProc
}

func (s *fakeSpawner) Spawn(cfg pty.Config) (pty.Proc, error) {
	p := newFakeProc()
	s.mu.Lock()
	s.procs = append(s.procs, p)
	s.mu.Unlock()
	return p, nil
}

func (s *fakeSpawner) last() *fakeProc {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.procs) == 0 {
		return nil
	}
	return s.procs[len(s.procs)-1]
}

type stubResolver struct{}

func (stubResolver) Resolve(id string) (string, []string, error) {
	return "/tmp/" + id, nil, nil
}

func newTestServer(t *testing.T, jwtSecret, apiKey string) (*Server, *fakeSpawner) {
	t.Helper()
	sp := &fakeSpawner{}
	mgr := session.NewManager(sp, stubResolver{}, 4096, "")
	t.Cleanup(mgr.CloseAll)
	return NewServer(mgr, auth.NewTokenIssuer(jwtSecret), auth.AllowAll{}, apiKey), sp
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func createSession(t *testing.T, srv *Server, workspaceID string) types.TerminalSession {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/workspaces/"+workspaceID+"/terminals",
		types.TerminalCreateRequest{Rows: 40, Cols: 100})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var s types.TerminalSession
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return s
}

func TestCreateAndGetTerminal(t *testing.T) {
	srv, _ := newTestServer(t, "", "")

	s := createSession(t, srv, "ws1")
	if s.SessionID == "" || s.WorkspaceID != "ws1" {
		t.Fatalf("unexpected session: %+v", s)
	}
	if s.Rows != 40 || s.Cols != 100 {
		t.Errorf("geometry = %dx%d, want 100x40", s.Cols, s.Rows)
	}
	if !s.Active {
		t.Error("new session not active")
	}
	if s.AttachToken != "" {
		t.Error("attach token issued with no JWT secret configured")
	}

	rec := doJSON(t, srv, http.MethodGet, "/terminals/"+s.SessionID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/workspaces/ws1/terminals", nil)
	var list []types.TerminalSession
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].SessionID != s.SessionID {
		t.Fatalf("list = %+v", list)
	}
}

func TestCreateIssuesAttachToken(t *testing.T) {
	srv, _ := newTestServer(t, "test-secret", "")

	s := createSession(t, srv, "ws1")
	if s.AttachToken == "" {
		t.Fatal("no attach token issued")
	}

	claims, err := auth.NewTokenIssuer("test-secret").ValidateAttachToken(s.AttachToken)
	if err != nil {
		t.Fatalf("validate issued token: %v", err)
	}
	if claims.SessionID != s.SessionID || claims.WorkspaceID != "ws1" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestGetTerminalNotFound(t *testing.T) {
	srv, _ := newTestServer(t, "", "")

	rec := doJSON(t, srv, http.MethodGet, "/terminals/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestKillTerminal(t *testing.T) {
	srv, _ := newTestServer(t, "", "")
	s := createSession(t, srv, "ws1")

	rec := doJSON(t, srv, http.MethodDelete, "/terminals/"+s.SessionID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/terminals/"+s.SessionID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestRunCommandReachesShell(t *testing.T) {
	srv, sp := newTestServer(t, "", "")
	s := createSession(t, srv, "ws1")

	rec := doJSON(t, srv, http.MethodPost, "/terminals/"+s.SessionID+"/command",
		types.TerminalCommandRequest{Command: "ls -la"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("command status = %d, body %s", rec.Code, rec.Body.String())
	}

	proc := sp.last()
	waitFor(t, "command write", func() bool {
		return proc.wroteJoined() == "ls -la\n"
	})
}

func TestRunCommandRequiresCommand(t *testing.T) {
	srv, _ := newTestServer(t, "", "")
	s := createSession(t, srv, "ws1")

	rec := doJSON(t, srv, http.MethodPost, "/terminals/"+s.SessionID+"/command",
		types.TerminalCommandRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestResizeRejectsBadGeometry(t *testing.T) {
	srv, _ := newTestServer(t, "", "")
	s := createSession(t, srv, "ws1")

	rec := doJSON(t, srv, http.MethodPost, "/terminals/"+s.SessionID+"/resize",
		types.TerminalResizeRequest{Rows: 0, Cols: 80})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRenderEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "", "")

	rec := doJSON(t, srv, http.MethodPost, "/render",
		types.RenderRequest{Data: []byte("\x1b[31merror\x1b[0m done")})
	if rec.Code != http.StatusOK {
		t.Fatalf("render status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp types.RenderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode render response: %v", err)
	}
	want := []types.StyledRun{
		{Text: "error", FG: "#cd0000"},
		{Text: " done"},
	}
	if len(resp.Runs) != len(want) {
		t.Fatalf("runs = %+v, want %+v", resp.Runs, want)
	}
	for i := range want {
		if resp.Runs[i] != want[i] {
			t.Errorf("run %d = %+v, want %+v", i, resp.Runs[i], want[i])
		}
	}
}

func TestAPIKeyEnforced(t *testing.T) {
	srv, _ := newTestServer(t, "", "sekrit")

	// Health stays open.
	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/workspaces/ws1/terminals", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/workspaces/ws1/terminals", nil)
	req.Header.Set("X-API-Key", "sekrit")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d, want 200", rr.Code)
	}
}

func TestWebSocketAttach(t *testing.T) {
	srv, sp := newTestServer(t, "", "")
	ts := httptest.NewServer(srv)
	defer ts.Close()

	s := createSession(t, srv, "ws1")
	proc := sp.last()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/terminals/" + s.SessionID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Shell output arrives as a binary frame.
	proc.out <- []byte("hello$ ")
	mt, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read output frame: %v", err)
	}
	if mt != websocket.BinaryMessage || string(msg) != "hello$ " {
		t.Fatalf("frame = (%d, %q)", mt, msg)
	}

	// Binary frames are forwarded to the shell as input.
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte("ls\n")); err != nil {
		t.Fatalf("write input frame: %v", err)
	}
	waitFor(t, "input write", func() bool {
		return proc.wroteJoined() == "ls\n"
	})

	// Text frames carry resize requests.
	resize, _ := json.Marshal(types.TerminalResizeRequest{Type: "resize", Rows: 50, Cols: 132})
	if err := conn.WriteMessage(websocket.TextMessage, resize); err != nil {
		t.Fatalf("write resize frame: %v", err)
	}
	waitFor(t, "resize", func() bool {
		return proc.resizeCount() == 1
	})
}

func TestWebSocketExitFrame(t *testing.T) {
	srv, _ := newTestServer(t, "", "")
	ts := httptest.NewServer(srv)
	defer ts.Close()

	s := createSession(t, srv, "ws1")

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/terminals/" + s.SessionID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	rec := doJSON(t, srv, http.MethodDelete, "/terminals/"+s.SessionID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	// The viewer gets {"type":"exit"} and then the connection closes.
	for {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("connection closed before exit frame: %v", err)
		}
		if mt != websocket.TextMessage {
			continue
		}
		var frame types.TerminalControlFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			t.Fatalf("bad control frame %q: %v", msg, err)
		}
		if frame.Type != "exit" {
			t.Fatalf("frame type = %q, want exit", frame.Type)
		}
		return
	}
}

func TestWebSocketRequiresValidToken(t *testing.T) {
	srv, _ := newTestServer(t, "test-secret", "")
	ts := httptest.NewServer(srv)
	defer ts.Close()

	s := createSession(t, srv, "ws1")

	base := strings.Replace(ts.URL, "http", "ws", 1) + "/terminals/" + s.SessionID + "/ws"

	if _, resp, err := websocket.DefaultDialer.Dial(base, nil); err == nil {
		t.Fatal("dial without token succeeded")
	} else if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("dial without token: resp = %+v", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(base+"?token="+s.AttachToken, nil)
	if err != nil {
		t.Fatalf("dial with token: %v", err)
	}
	conn.Close()
}
