package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jxscout/internal/config"
	"jxscout/internal/debounce"
	"jxscout/internal/extract"
	"jxscout/internal/update"
)

const renderDelay = 50 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow active files read from stdin",
	Long: `Read file paths from stdin, one per line, and treat each as the newly active
document. The descriptor tree is re-rendered whenever it changes. An empty line means
no active document. Lines starting with ':' are commands:

  :refresh                 re-analyse the active file
  :scope                   toggle project/file scope
  :sort                    toggle alphabetical/occurrence order
  :open <id>               navigate to the match with the given row id
  :copy <kind> [analyzer]  copy values, paths, hostnames or query-params

Config file changes are picked up and reconnect the client when the endpoint changes.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	loader := newLoader()
	cfg, err := loadConfig(loader)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	a, err := newApp(cfg, logger, os.Stdout, os.Stderr, true)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := newContext()
	defer cancel()

	out := cmd.OutOrStdout()
	render := debounce.New(renderDelay, func() {
		resp := newAnalyzeResponse(a.ctrl.ActivePath(), a.model)
		fmt.Fprint(out, "\n"+formatAnalyzeHuman(resp))
	})
	defer render.Stop()
	unsubscribe := a.model.Subscribe(render.Trigger)
	defer unsubscribe()

	a.onReconnect = func() { _ = a.ctrl.Refresh(ctx) }

	if loader.Watch(func(next *config.Config, err error) {
		if err != nil {
			logger.Warn("Ignoring invalid config change", "error", err)
			return
		}
		applyFlagOverrides(next)
		_ = a.ctrl.ApplyEndpoint(ctx, next.Endpoint())
	}) {
		logger.Info("Watching config file", "path", loader.ConfigFile())
	}

	if cfg.Update.Enabled && !update.Disabled() {
		checker := update.NewChecker(update.CheckerOptions{
			Cache:  update.NewCache(cfg.UpdateInterval()),
			Logger: logger,
		})
		svc := update.NewService(checker, cfg.UpdateInterval(), func(u *update.UpdateInfo) {
			a.term.Info(u.Message() + " " + u.ReleasesURL)
		}, logger)
		svc.Start(ctx)
		defer svc.Stop()
	}

	if err := a.ctrl.Start(ctx); err != nil {
		go func() { _ = a.ctrl.WhenReady(ctx) }()
	}

	lines := make(chan string)
	go readLines(cmd.InOrStdin(), lines)

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				render.Flush()
				return nil
			}
			handleWatchLine(ctx, a, line)
		}
	}
}

func readLines(r io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
}

func handleWatchLine(ctx context.Context, a *app, line string) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, ":") {
		path := line
		if path != "" {
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
		}
		// Newer lines supersede older requests; the controller drops stale answers.
		go func() { _ = a.ctrl.ActiveDocumentChanged(ctx, path) }()
		return
	}

	fields := strings.Fields(strings.TrimPrefix(line, ":"))
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "refresh":
		go func() { _ = a.ctrl.Refresh(ctx) }()
	case "scope":
		a.ctrl.ToggleScope()
	case "sort":
		a.ctrl.ToggleSortMode()
	case "open":
		if len(fields) < 2 {
			a.term.Error("usage: :open <id>")
			return
		}
		item := a.model.Find(fields[1])
		if item == nil || !item.IsMatch() {
			a.term.Error("no match with id " + fields[1])
			return
		}
		_, _ = a.ctrl.NavigateToMatch(ctx, item)
	case "copy":
		if len(fields) < 2 {
			a.term.Error("usage: :copy <kind> [analyzer]")
			return
		}
		kind, err := extract.ParseKind(fields[1])
		if err != nil {
			a.term.Error(err.Error())
			return
		}
		analyzer := ""
		if len(fields) > 2 {
			analyzer = strings.Join(fields[2:], " ")
		}
		if _, err := a.ctrl.Copy(ctx, kind, selectMatches(a.model, analyzer)); err != nil {
			a.term.Error(err.Error())
		}
	default:
		a.term.Error("unknown command :" + fields[0])
	}
}
