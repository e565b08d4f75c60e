// Package session wires the analysis link to the tree model: it reacts to active-document
// changes, keeps late responses for a previous file from overwriting the view, and maps
// link failures to view states and user notices.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"jxscout/internal/errors"
	"jxscout/internal/extract"
	"jxscout/internal/host"
	"jxscout/internal/link"
	"jxscout/internal/navigate"
	"jxscout/internal/protocol"
	"jxscout/internal/slogutil"
	"jxscout/internal/tree"
)

// Link is the subset of link.Client the controller drives.
type Link interface {
	Connect(ctx context.Context) error
	Disconnect()
	UpdateEndpoint(endpoint string)
	Endpoint() string
	Connected() bool
	WaitReady(ctx context.Context) error
	GetAnalysis(ctx context.Context, filePath string) (*protocol.AnalysisResult, error)
}

// Status bar texts.
const (
	StatusConnecting   = "$(sync) jxscout: Connecting..."
	StatusReconnecting = "$(sync) jxscout: Reconnecting..."
	StatusConnected    = "$(check) jxscout: Connected"
	StatusDisconnected = "$(error) jxscout: Disconnected"
)

// Controller is the orchestration layer between a Link, a tree.Model and the host.
type Controller struct {
	link      Link
	model     *tree.Model
	host      host.Host
	navigator *navigate.Navigator
	hl        *navigate.Highlighter
	copier    *extract.Copier
	logger    *slog.Logger

	mu         sync.Mutex
	activePath string
	seq        uint64
}

// New returns a Controller. The link's OnStatus and OnServerError options should be
// pointed at HandleStatus and HandleServerError.
func New(l Link, model *tree.Model, h host.Host, logger *slog.Logger) *Controller {
	hl := navigate.NewHighlighter(h)
	return &Controller{
		link:      l,
		model:     model,
		host:      h,
		navigator: navigate.New(h, hl),
		hl:        hl,
		copier:    &extract.Copier{Clipboard: h, Notifier: h},
		logger:    slogutil.OrDiscard(logger).With(slogutil.ComponentKey, "session"),
	}
}

// Model returns the presentation model.
func (c *Controller) Model() *tree.Model {
	return c.model
}

// ActivePath returns the file the view currently follows.
func (c *Controller) ActivePath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activePath
}

// Start connects the link and analyses the active document. A failed connect is
// reported to the user and returned.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.link.Connect(ctx); err != nil {
		c.host.Error("Failed to connect to jxscout server: " + errors.MessageOf(err))
		return err
	}
	return c.Refresh(ctx)
}

// WhenReady waits for the link to come up and then refreshes the view.
func (c *Controller) WhenReady(ctx context.Context) error {
	if err := c.link.WaitReady(ctx); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// ActiveDocumentChanged follows a new active document. An empty path means no document.
func (c *Controller) ActiveDocumentChanged(ctx context.Context, path string) error {
	c.hl.ActiveEditorChanged(path)

	c.mu.Lock()
	c.activePath = path
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// Refresh re-analyses the active document.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	path := c.activePath
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	if path == "" {
		c.model.SetState(tree.StateEmpty)
		return nil
	}
	return c.analyze(ctx, path, seq)
}

// current reports whether the request numbered seq for path is still the latest.
func (c *Controller) current(path string, seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq == seq && c.activePath == path
}

func (c *Controller) analyze(ctx context.Context, path string, seq uint64) error {
	c.model.SetState(tree.StateLoading)

	result, err := c.link.GetAnalysis(ctx, path)
	if !c.current(path, seq) {
		c.logger.Debug("Discarding stale analysis", "filePath", path)
		return nil
	}

	if err != nil {
		if errors.Is(err, errors.AssetNotFound) {
			c.model.SetState(tree.StateAssetNotFound)
			return err
		}
		c.host.Error("Failed to get descriptors: " + errors.MessageOf(err))
		c.model.SetState(tree.StateEmpty)
		return err
	}

	c.logger.Debug("Analysis received", "filePath", path, "roots", len(result.Results))
	c.model.ShowResult(result)
	return nil
}

// ToggleScope flips between project and file scope.
func (c *Controller) ToggleScope() tree.Scope {
	scope := c.model.Scope().Toggle()
	c.model.SetScope(scope)
	return scope
}

// ToggleSortMode flips between alphabetical and occurrence order.
func (c *Controller) ToggleSortMode() tree.SortMode {
	mode := c.model.SortMode().Toggle()
	c.model.SetSortMode(mode)
	return mode
}

// Title returns the view title.
func (c *Controller) Title() string {
	return c.model.Title()
}

// NavigateToMatch opens the item's location. Failures are reported to the user.
func (c *Controller) NavigateToMatch(ctx context.Context, item *tree.Item) (host.Range, error) {
	if f := item.Finding(); f != nil && (!f.Start.Valid() || !f.End.Valid()) {
		c.logger.Warn("Match coordinates out of range, clamping",
			"id", item.ID, "start", fmt.Sprintf("%d:%d", f.Start.Line, f.Start.Column),
			"end", fmt.Sprintf("%d:%d", f.End.Line, f.End.Column))
	}
	r, err := c.navigator.ToMatch(ctx, item)
	if err != nil {
		c.host.Error("Failed to open file: " + errors.MessageOf(err))
		return host.Range{}, err
	}
	return r, nil
}

// CursorMoved forwards cursor movements to the highlighter.
func (c *Controller) CursorMoved(path string, p host.Position) {
	c.hl.CursorMoved(path, p)
}

// Copy copies kind from the selected items.
func (c *Controller) Copy(ctx context.Context, kind extract.Kind, items []*tree.Item) (*extract.Result, error) {
	return c.copier.Copy(ctx, kind, items)
}

// ApplyEndpoint switches the link to endpoint by disconnecting and connecting again.
// Nothing happens when the endpoint is unchanged and the link is up.
func (c *Controller) ApplyEndpoint(ctx context.Context, endpoint string) error {
	if endpoint == c.link.Endpoint() && c.link.Connected() {
		return nil
	}

	c.logger.Info("Server endpoint changed", "endpoint", endpoint)
	c.link.Disconnect()
	c.host.SetStatus(StatusReconnecting, "Reconnecting to "+endpoint)
	c.link.UpdateEndpoint(endpoint)

	if err := c.link.Connect(ctx); err != nil {
		c.host.Error("Failed to connect to jxscout server: " + errors.MessageOf(err))
		return err
	}
	return c.Refresh(ctx)
}

// HandleStatus renders a link status transition on the status bar.
func (c *Controller) HandleStatus(status link.Status, err error) {
	text, tooltip := StatusText(status, c.link.Endpoint(), err)
	c.host.SetStatus(text, tooltip)
}

// HandleServerError reports an uncorrelated server error.
func (c *Controller) HandleServerError(message string) {
	c.host.Error("jxscout error: " + message)
}

// StatusText returns the status bar text and tooltip for a link status.
func StatusText(status link.Status, endpoint string, err error) (string, string) {
	switch status {
	case link.StatusConnecting:
		return StatusConnecting, "Connecting to " + endpoint
	case link.StatusConnected:
		return StatusConnected, "Connected to " + endpoint
	default:
		if err != nil {
			return StatusDisconnected, fmt.Sprintf("Failed to connect: %s", errors.MessageOf(err))
		}
		return StatusDisconnected, "Disconnected from " + endpoint
	}
}
