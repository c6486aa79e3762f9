// internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cartpilot/api/schemas"
	"github.com/xkilldash9x/cartpilot/internal/config"
)

// Session owns the single persistent browser process for the whole run. The
// user-data directory is reused across runs so storefront logins and cookies
// survive; the remote-debugging port is fixed so the observation backend can
// attach to the same instance.
//
// The memoized state (process, allocator) is not safe for concurrent first
// use; callers serialize the first Start/Allocator call.
type Session struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
	client *http.Client

	cmd         *exec.Cmd
	execPath    string
	allocCtx    context.Context
	allocCancel context.CancelFunc
	closeOnce   sync.Once
}

// versionPayload is the subset of the devtools /json/version response we need.
type versionPayload struct {
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// NewSession prepares a session without side effects; the browser process is
// launched by the first Start call.
func NewSession(cfg config.BrowserConfig, logger *zap.Logger) *Session {
	return &Session{
		cfg:    cfg,
		logger: logger.Named("browser"),
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Start launches the browser on first call and waits until the debugging
// endpoint answers. Idempotent: once the process is up, Start returns nil
// without relaunching.
func (s *Session) Start(ctx context.Context) error {
	if s.cmd != nil {
		return nil
	}

	execPath, err := findExecutable(s.cfg.ExecutablePath)
	if err != nil {
		return err
	}
	s.execPath = execPath

	if err := os.MkdirAll(s.cfg.UserDataDir, 0o755); err != nil {
		return schemas.NewEnvironmentError("cannot create browser profile directory "+s.cfg.UserDataDir, err)
	}

	args := []string{
		"--remote-debugging-port=" + strconv.Itoa(s.cfg.DebugPort),
		"--user-data-dir=" + s.cfg.UserDataDir,
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-blink-features=AutomationControlled",
	}
	if s.cfg.Headless {
		args = append(args, "--headless=new", "--disable-gpu")
	}
	args = append(args, "about:blank")

	cmd := exec.Command(execPath, args...)
	if err := cmd.Start(); err != nil {
		return schemas.NewEnvironmentError("failed to launch browser process "+execPath, err)
	}
	s.cmd = cmd

	s.logger.Info("Browser launched",
		zap.String("executable", execPath),
		zap.Int("pid", cmd.Process.Pid),
		zap.Int("debug_port", s.cfg.DebugPort))

	// The devtools port opens a beat after the process starts; poll until it
	// answers or the launch window elapses. This is launch readiness, not a
	// retry of the endpoint query itself.
	launchTimeout := s.cfg.LaunchTimeout
	if launchTimeout <= 0 {
		launchTimeout = 10 * time.Second
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = launchTimeout

	probe := func() error {
		_, err := s.DebugEndpoint(ctx)
		return err
	}
	if err := backoff.Retry(probe, backoff.WithContext(b, ctx)); err != nil {
		s.killProcess()
		s.cmd = nil
		return err
	}

	return nil
}

// DebugEndpoint queries the well-known debugging port and returns the
// websocket endpoint URL the observation backend attaches to.
func (s *Session) DebugEndpoint(ctx context.Context) (string, error) {
	url := fmt.Sprintf("http://127.0.0.1:%d/json/version", s.cfg.DebugPort)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", schemas.NewConnectivityError("failed to build devtools request", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", schemas.NewConnectivityError("debugging endpoint unreachable on port "+strconv.Itoa(s.cfg.DebugPort), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", schemas.NewConnectivityError(fmt.Sprintf("debugging endpoint returned status %d", resp.StatusCode), nil)
	}

	var payload versionPayload
	if err := jsoniter.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", schemas.NewConnectivityError("failed to decode devtools version payload", err)
	}
	if payload.WebSocketDebuggerURL == "" {
		return "", schemas.NewConnectivityError("devtools version payload has no websocket endpoint", nil)
	}

	return payload.WebSocketDebuggerURL, nil
}

// Allocator returns the memoized chromedp allocator context attached to the
// running browser. Pages derive their tab contexts from it.
func (s *Session) Allocator(ctx context.Context) (context.Context, error) {
	if s.allocCtx != nil {
		return s.allocCtx, nil
	}

	if err := s.Start(ctx); err != nil {
		return nil, err
	}

	ws, err := s.DebugEndpoint(ctx)
	if err != nil {
		return nil, err
	}

	allocCtx, cancel := chromedp.NewRemoteAllocator(context.Background(), ws, chromedp.NoModifyURL)
	s.allocCtx = allocCtx
	s.allocCancel = cancel

	s.logger.Debug("Attached to debugging endpoint", zap.String("ws_url", ws))
	return s.allocCtx, nil
}

// Close tears the session down: detach the allocator, then stop the browser
// process. Best-effort; safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.logger.Info("Closing browser session")
		if s.allocCancel != nil {
			s.allocCancel()
		}
		s.killProcess()
	})
	return nil
}

// killProcess interrupts the browser and falls back to a hard kill if it
// does not exit promptly.
func (s *Session) killProcess() {
	if s.cmd == nil || s.cmd.Process == nil {
		return
	}

	_ = s.cmd.Process.Signal(os.Interrupt)

	done := make(chan struct{})
	go func() {
		_, _ = s.cmd.Process.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		s.logger.Warn("Browser did not exit on interrupt; killing", zap.Int("pid", s.cmd.Process.Pid))
		_ = s.cmd.Process.Kill()
	}
}
