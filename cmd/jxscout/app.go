package main

import (
	"io"
	"log/slog"
	"sync/atomic"

	"golang.org/x/text/language"

	"jxscout/internal/config"
	"jxscout/internal/host"
	"jxscout/internal/link"
	"jxscout/internal/session"
	"jxscout/internal/tree"
)

// app is the wired client: one link, one model, one controller.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	term   *host.Terminal
	link   *link.Client
	model  *tree.Model
	ctrl   *session.Controller

	// showStatus prints connection transitions; one-shot commands leave them to the log
	showStatus bool

	// onReconnect runs after every connection except the first
	onReconnect   func()
	connectedOnce atomic.Bool
}

func newApp(cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer, showStatus bool) (*app, error) {
	scope, err := tree.ParseScope(cfg.View.Scope)
	if err != nil {
		return nil, err
	}
	sortMode, err := tree.ParseSortMode(cfg.View.SortMode)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		term:   host.NewTerminal(stdout, stderr),
		model:  tree.NewModel(tree.Options{Scope: scope, SortMode: sortMode, Language: language.Und}),

		showStatus: showStatus,
	}

	a.link = link.New(cfg.Endpoint(), link.Options{
		ReconnectDelay: cfg.ReconnectDelay(),
		RequestTimeout: cfg.RequestTimeout(),
		Logger:         logger,
		OnServerError: func(message string) {
			a.ctrl.HandleServerError(message)
		},
		OnStatus: func(status link.Status, err error) {
			if status == link.StatusConnected && a.connectedOnce.Swap(true) && a.onReconnect != nil {
				go a.onReconnect()
			}
			if a.showStatus {
				a.ctrl.HandleStatus(status, err)
				return
			}
			logger.Debug("Connection status changed", "status", string(status))
		},
	})
	a.ctrl = session.New(a.link, a.model, a.term, logger)
	return a, nil
}

func (a *app) close() {
	a.link.Disconnect()
}
