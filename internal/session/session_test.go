package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"jxscout/internal/errors"
	"jxscout/internal/extract"
	"jxscout/internal/host"
	"jxscout/internal/link"
	"jxscout/internal/protocol"
	"jxscout/internal/slogutil"
	"jxscout/internal/tree"
)

type reply struct {
	result *protocol.AnalysisResult
	err    error
}

// fakeLink answers GetAnalysis from per-path channels so tests control ordering.
type fakeLink struct {
	mu         sync.Mutex
	endpoint   string
	connected  bool
	connectErr error
	calls      []string
	replies    map[string]chan reply
	events     []string
}

func newFakeLink() *fakeLink {
	return &fakeLink{endpoint: "ws://localhost:3333/ws", replies: make(map[string]chan reply)}
}

func (l *fakeLink) channel(path string) chan reply {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.replies[path]
	if !ok {
		ch = make(chan reply, 4)
		l.replies[path] = ch
	}
	return ch
}

func (l *fakeLink) record(ev string) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *fakeLink) Connect(ctx context.Context) error {
	l.record("connect " + l.Endpoint())
	if l.connectErr != nil {
		return l.connectErr
	}
	l.mu.Lock()
	l.connected = true
	l.mu.Unlock()
	return nil
}

func (l *fakeLink) Disconnect() {
	l.record("disconnect")
	l.mu.Lock()
	l.connected = false
	l.mu.Unlock()
}

func (l *fakeLink) UpdateEndpoint(endpoint string) {
	l.record("update " + endpoint)
	l.mu.Lock()
	l.endpoint = endpoint
	l.mu.Unlock()
}

func (l *fakeLink) Endpoint() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.endpoint
}

func (l *fakeLink) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

func (l *fakeLink) WaitReady(ctx context.Context) error {
	if l.Connected() {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (l *fakeLink) GetAnalysis(ctx context.Context, filePath string) (*protocol.AnalysisResult, error) {
	l.mu.Lock()
	l.calls = append(l.calls, filePath)
	l.mu.Unlock()

	select {
	case r := <-l.channel(filePath):
		return r.result, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type fakeHost struct {
	*host.Terminal
	mu      sync.Mutex
	errs    []string
	infos   []string
	status  []string
	clip    string
	opened  []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{Terminal: host.NewTerminal(&strings.Builder{}, &strings.Builder{})}
}

func (h *fakeHost) Error(m string) {
	h.mu.Lock()
	h.errs = append(h.errs, m)
	h.mu.Unlock()
}

func (h *fakeHost) Info(m string) {
	h.mu.Lock()
	h.infos = append(h.infos, m)
	h.mu.Unlock()
}

func (h *fakeHost) SetStatus(text, tooltip string) {
	h.mu.Lock()
	h.status = append(h.status, text+" | "+tooltip)
	h.mu.Unlock()
}

func (h *fakeHost) WriteText(ctx context.Context, text string) error {
	h.mu.Lock()
	h.clip = text
	h.mu.Unlock()
	return nil
}

func (h *fakeHost) Open(ctx context.Context, path string) (host.Editor, error) {
	h.mu.Lock()
	h.opened = append(h.opened, path)
	h.mu.Unlock()
	return h.Terminal.Open(ctx, path)
}

func (h *fakeHost) errors() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.errs...)
}

func result(path string, labels ...string) *protocol.AnalysisResult {
	r := &protocol.AnalysisResult{FilePath: path}
	for _, l := range labels {
		r.Results = append(r.Results, &protocol.TreeNode{Type: protocol.NodeNavigation, Label: l})
	}
	return r
}

func rootLabels(m *tree.Model) []string {
	var out []string
	for _, it := range m.GetChildren(nil) {
		out = append(out, it.Label)
	}
	return out
}

func TestActiveDocument_Success(t *testing.T) {
	l := newFakeLink()
	h := newFakeHost()
	m := tree.NewModel(tree.Options{})
	c := New(l, m, h, nil)

	var states []tree.State
	m.Subscribe(func() { states = append(states, m.State()) })

	l.channel("/x.js") <- reply{result: result("/x.js", "Secrets")}
	if err := c.ActiveDocumentChanged(context.Background(), "/x.js"); err != nil {
		t.Fatalf("ActiveDocumentChanged() error = %v", err)
	}

	if got := rootLabels(m); len(got) != 1 || got[0] != "Secrets" {
		t.Errorf("root = %v", got)
	}
	want := []tree.State{tree.StateLoading, tree.StateSuccess}
	if len(states) != len(want) || states[0] != want[0] || states[1] != want[1] {
		t.Errorf("states = %v, want %v", states, want)
	}
	if c.ActivePath() != "/x.js" {
		t.Errorf("ActivePath() = %q", c.ActivePath())
	}
}

func TestActiveDocument_None(t *testing.T) {
	l := newFakeLink()
	m := tree.NewModel(tree.Options{})
	c := New(l, m, newFakeHost(), nil)

	m.ShowResult(result("/x.js", "Secrets"))
	if err := c.ActiveDocumentChanged(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	if m.State() != tree.StateEmpty || m.Result() != nil {
		t.Errorf("state = %q, result = %v", m.State(), m.Result())
	}
	if len(l.calls) != 0 {
		t.Errorf("no request expected, got %v", l.calls)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantState tree.State
		wantMsg   string
	}{
		{
			name:      "asset not found",
			err:       errors.New(errors.AssetNotFound, "asset not found: /x.js", nil),
			wantState: tree.StateAssetNotFound,
		},
		{
			name:      "analysis error",
			err:       errors.New(errors.AnalysisError, "parse failed", nil),
			wantState: tree.StateEmpty,
			wantMsg:   "Failed to get descriptors: parse failed",
		},
		{
			name:      "not connected",
			err:       errors.New(errors.NotConnected, "WebSocket is not connected", nil),
			wantState: tree.StateEmpty,
			wantMsg:   "Failed to get descriptors: WebSocket is not connected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newFakeLink()
			h := newFakeHost()
			m := tree.NewModel(tree.Options{})
			c := New(l, m, h, nil)

			l.channel("/x.js") <- reply{err: tt.err}
			if err := c.ActiveDocumentChanged(context.Background(), "/x.js"); err == nil {
				t.Error("expected the error to be returned")
			}
			if m.State() != tt.wantState {
				t.Errorf("state = %q, want %q", m.State(), tt.wantState)
			}
			errs := h.errors()
			if tt.wantMsg == "" && len(errs) != 0 {
				t.Errorf("unexpected notices %v", errs)
			}
			if tt.wantMsg != "" && (len(errs) != 1 || errs[0] != tt.wantMsg) {
				t.Errorf("notices = %v, want [%s]", errs, tt.wantMsg)
			}
		})
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	l := newFakeLink()
	h := newFakeHost()
	m := tree.NewModel(tree.Options{})
	c := New(l, m, h, nil)
	ctx := context.Background()

	doneA := make(chan error, 1)
	go func() { doneA <- c.ActiveDocumentChanged(ctx, "/a.js") }()

	// Wait until the request for /a.js is in flight.
	deadline := time.Now().Add(2 * time.Second)
	for {
		l.mu.Lock()
		n := len(l.calls)
		l.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("request for /a.js never sent")
		}
		time.Sleep(time.Millisecond)
	}

	l.channel("/b.js") <- reply{result: result("/b.js", "B")}
	if err := c.ActiveDocumentChanged(ctx, "/b.js"); err != nil {
		t.Fatal(err)
	}

	// The late failure for /a.js must not touch the view.
	l.channel("/a.js") <- reply{err: errors.New(errors.AnalysisError, "late", nil)}
	if err := <-doneA; err != nil {
		t.Errorf("stale request returned %v, want nil", err)
	}

	if got := rootLabels(m); len(got) != 1 || got[0] != "B" {
		t.Errorf("root = %v, want [B]", got)
	}
	if errs := h.errors(); len(errs) != 0 {
		t.Errorf("stale failure surfaced: %v", errs)
	}
}

func TestToggles(t *testing.T) {
	c := New(newFakeLink(), tree.NewModel(tree.Options{}), newFakeHost(), nil)

	if c.Title() != "Descriptors (file) - By Occurrence" {
		t.Errorf("Title() = %q", c.Title())
	}
	if got := c.ToggleScope(); got != tree.ScopeProject {
		t.Errorf("ToggleScope() = %q", got)
	}
	if got := c.ToggleSortMode(); got != tree.SortAlphabetical {
		t.Errorf("ToggleSortMode() = %q", got)
	}
	if c.Title() != "Descriptors (project) - A-Z" {
		t.Errorf("Title() = %q", c.Title())
	}
	if got := c.ToggleScope(); got != tree.ScopeFile {
		t.Errorf("ToggleScope() = %q", got)
	}
	if c.Title() != "Descriptors (file) - A-Z" {
		t.Errorf("Title() = %q", c.Title())
	}
}

func TestStartAndEndpointChange(t *testing.T) {
	l := newFakeLink()
	h := newFakeHost()
	m := tree.NewModel(tree.Options{})
	c := New(l, m, h, nil)
	ctx := context.Background()

	l.connectErr = errors.New(errors.ConnectionError, "failed to connect to ws://localhost:3333/ws", context.DeadlineExceeded)
	if err := c.Start(ctx); err == nil {
		t.Fatal("Start() should fail")
	}
	errs := h.errors()
	if len(errs) != 1 || !strings.HasPrefix(errs[0], "Failed to connect to jxscout server: failed to connect to ws://localhost:3333/ws") {
		t.Errorf("notices = %v", errs)
	}

	l.connectErr = nil
	if err := c.ApplyEndpoint(ctx, "ws://other:4000/ws"); err != nil {
		t.Fatalf("ApplyEndpoint() error = %v", err)
	}
	want := []string{"connect ws://localhost:3333/ws", "disconnect", "update ws://other:4000/ws", "connect ws://other:4000/ws"}
	if strings.Join(l.events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", l.events, want)
	}
	if m.State() != tree.StateEmpty {
		t.Errorf("state = %q, want empty", m.State())
	}

	// Same endpoint while connected is a no-op.
	l.events = nil
	if err := c.ApplyEndpoint(ctx, "ws://other:4000/ws"); err != nil {
		t.Fatal(err)
	}
	if len(l.events) != 0 {
		t.Errorf("unexpected events %v", l.events)
	}
}

func TestStatusText(t *testing.T) {
	ep := "ws://localhost:3333/ws"
	tests := []struct {
		status  link.Status
		err     error
		text    string
		tooltip string
	}{
		{link.StatusConnecting, nil, StatusConnecting, "Connecting to " + ep},
		{link.StatusConnected, nil, StatusConnected, "Connected to " + ep},
		{link.StatusDisconnected, nil, StatusDisconnected, "Disconnected from " + ep},
		{link.StatusDisconnected, errors.New(errors.ConnectionError, "failed to connect to "+ep, nil), StatusDisconnected, "Failed to connect: failed to connect to " + ep},
	}
	for _, tt := range tests {
		text, tooltip := StatusText(tt.status, ep, tt.err)
		if text != tt.text || tooltip != tt.tooltip {
			t.Errorf("StatusText(%s) = %q, %q; want %q, %q", tt.status, text, tooltip, tt.text, tt.tooltip)
		}
	}
}

func TestHandleServerError(t *testing.T) {
	h := newFakeHost()
	c := New(newFakeLink(), tree.NewModel(tree.Options{}), h, nil)
	c.HandleServerError("index corrupted")
	if errs := h.errors(); len(errs) != 1 || errs[0] != "jxscout error: index corrupted" {
		t.Errorf("notices = %v", errs)
	}
}

func TestEndToEnd(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req protocol.Message
			if err := json.Unmarshal(data, &req); err != nil {
				return
			}
			resp := `{"type":"getAnalysisResponse","id":"` + req.ID + `","payload":{"filePath":"/x.js","results":[` +
				`{"type":"navigation","label":"Secrets","children":[{"type":"match","label":"sk_live_...",` +
				`"data":{"value":"sk_live_...","start":{"line":10,"column":2},"end":{"line":10,"column":20}}}]}]}}`
			if err := conn.WriteMessage(websocket.TextMessage, []byte(resp)); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	h := newFakeHost()
	m := tree.NewModel(tree.Options{})
	var c *Controller
	client := link.New("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", link.Options{
		RequestTimeout: 2 * time.Second,
		NewID:          func() string { return "k1" },
		OnStatus:       func(s link.Status, err error) { c.HandleStatus(s, err) },
	})
	c = New(client, m, h, nil)
	defer client.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := c.ActiveDocumentChanged(ctx, "/x.js"); err != nil {
		t.Fatalf("ActiveDocumentChanged() error = %v", err)
	}

	root := m.GetChildren(nil)
	if len(root) != 1 || root[0].Label != "Secrets" {
		t.Fatalf("root = %v", rootLabels(m))
	}
	leaves := m.GetChildren(root[0])
	if len(leaves) != 1 || !leaves[0].IsMatch() || leaves[0].Label != "sk_live_..." {
		t.Fatalf("leaves = %+v", leaves)
	}

	r, err := c.NavigateToMatch(ctx, leaves[0])
	if err != nil {
		t.Fatalf("NavigateToMatch() error = %v", err)
	}
	want := host.Range{Start: host.Position{Line: 9, Character: 2}, End: host.Position{Line: 9, Character: 20}}
	if r != want {
		t.Errorf("range = %+v, want %+v", r, want)
	}
	if len(h.opened) != 1 || h.opened[0] != "/x.js" {
		t.Errorf("opened = %v", h.opened)
	}

	res, err := c.Copy(ctx, extract.Values, leaves)
	if err != nil {
		t.Fatal(err)
	}
	if h.clip != "sk_live_..." || len(res.Lines) != 1 {
		t.Errorf("clipboard = %q", h.clip)
	}

	h.mu.Lock()
	status := append([]string(nil), h.status...)
	h.mu.Unlock()
	if len(status) < 2 || !strings.HasPrefix(status[len(status)-1], StatusConnected) {
		t.Errorf("status = %v", status)
	}
}

func TestNavigateToMatch_OutOfRangeCoordinates(t *testing.T) {
	var logs strings.Builder
	m := tree.NewModel(tree.Options{})
	c := New(newFakeLink(), m, newFakeHost(), slogutil.NewLogger(&logs, slog.LevelDebug))

	m.ShowResult(&protocol.AnalysisResult{
		FilePath: "/x.js",
		Results: []*protocol.TreeNode{{
			Type:  protocol.NodeNavigation,
			Label: "Paths",
			Children: []*protocol.TreeNode{{
				Type:  protocol.NodeMatch,
				Label: "/a",
				Data: &protocol.Finding{
					Value: "/a",
					Start: protocol.Position{Line: 0, Column: 4},
					End:   protocol.Position{Line: 1, Column: 6},
				},
			}},
		}},
	})

	item := m.Find("0/0")
	if item == nil {
		t.Fatal("Find(0/0) = nil")
	}
	r, err := c.NavigateToMatch(context.Background(), item)
	if err != nil {
		t.Fatalf("NavigateToMatch() error = %v", err)
	}
	if r.Start != (host.Position{Line: 0, Character: 4}) || r.End != (host.Position{Line: 0, Character: 6}) {
		t.Errorf("range = %+v", r)
	}
	if !strings.Contains(logs.String(), "Match coordinates out of range") || !strings.Contains(logs.String(), "start=0:4") {
		t.Errorf("missing warning, logs = %q", logs.String())
	}
}
