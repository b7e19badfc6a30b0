package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/filmio/pageload/internal/pageload/configuration"
)

// DefaultNavigationTimeout bounds every page load.
const DefaultNavigationTimeout = 360 * time.Second

// ChromeLauncher starts a local Chrome through the DevTools protocol.
type ChromeLauncher struct {
	config            configuration.BrowserConfiguration
	navigationTimeout time.Duration
}

func NewChromeLauncher(config configuration.BrowserConfiguration, navigationTimeout time.Duration) *ChromeLauncher {
	if navigationTimeout <= 0 {
		navigationTimeout = DefaultNavigationTimeout
	}
	return &ChromeLauncher{config: config, navigationTimeout: navigationTimeout}
}

// AllocatorOptions are the Chrome flags a session starts with. Web security and site isolation are
// turned off so the credential injection and cross-origin assets behave the same as for a logged in user.
// profileDir is the session's own user data directory; empty lets Chrome pick a temporary one.
func (l *ChromeLauncher) AllocatorOptions(profileDir string) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", l.config.Headless),
		chromedp.Flag("disable-web-security", true),
		chromedp.Flag("disable-features", "IsolateOrigins,site-per-process"),
		chromedp.Flag("allow-running-insecure-content", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-accelerated-2d-canvas", true),
		chromedp.Flag("start-maximized", true),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.NoFirstRun,
		chromedp.WindowSize(l.config.WindowWidth, l.config.WindowHeight),
	)
	if profileDir != "" {
		opts = append(opts, chromedp.UserDataDir(profileDir))
	}
	if l.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.config.ExecPath))
	}
	return opts
}

// newProfileDir creates a fresh user data directory under the configured one. Sessions running side by
// side in one process must not share a profile, or their local storage would mix.
func (l *ChromeLauncher) newProfileDir() (string, error) {
	if l.config.UserDataDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(l.config.UserDataDir, 0o755); err != nil {
		return "", errors.WithStack(err)
	}
	dir, err := os.MkdirTemp(l.config.UserDataDir, "session-")
	return dir, errors.WithStack(err)
}

func (l *ChromeLauncher) Launch(_ context.Context) (Session, error) {
	profileDir, err := l.newProfileDir()
	if err != nil {
		return nil, errors.WithMessage(err, "error creating browser profile")
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), l.AllocatorOptions(profileDir)...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Debugf), chromedp.WithErrorf(log.Errorf))

	session := &chromeSession{
		ctx:               browserCtx,
		navigationTimeout: l.navigationTimeout,
		profileDir:        profileDir,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
	}
	// The first Run starts the browser process and ties its lifetime to browserCtx, so it must not run on a
	// derived context.
	if err := chromedp.Run(browserCtx); err != nil {
		session.release()
		return nil, errors.Wrap(err, "error launching browser")
	}
	return session, nil
}

type chromeSession struct {
	ctx               context.Context
	cancel            func()
	navigationTimeout time.Duration
	profileDir        string
}

// run executes actions on the browser tab, bounded by timeout when positive and cancelled together with ctx.
func (s *chromeSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return errors.WithStack(chromedp.Run(runCtx, actions...))
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, s.navigationTimeout, chromedp.Navigate(url))
}

func (s *chromeSession) Title(ctx context.Context) (string, error) {
	var title string
	err := s.run(ctx, 0, chromedp.Title(&title))
	return title, err
}

func (s *chromeSession) EvaluateVisibility(ctx context.Context, selector string) (bool, error) {
	arg, err := json.Marshal(selector)
	if err != nil {
		return false, errors.WithStack(err)
	}
	var visible bool
	err = s.run(ctx, 0, chromedp.Evaluate(fmt.Sprintf(visibilityScript, arg), &visible))
	return visible, err
}

func (s *chromeSession) InjectStorage(ctx context.Context, entries map[string]string) error {
	arg, err := json.Marshal(entries)
	if err != nil {
		return errors.WithStack(err)
	}
	var ok bool
	return s.run(ctx, 0, chromedp.Evaluate(fmt.Sprintf(injectStorageScript, arg), &ok))
}

func (s *chromeSession) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		data, err := page.CaptureScreenshot().WithFormat(page.CaptureScreenshotFormatPng).Do(ctx)
		if err != nil {
			return err
		}
		buf = data
		return nil
	}))
	return buf, err
}

func (s *chromeSession) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.release()
	return errors.WithStack(err)
}

// release stops the browser process and removes its profile.
func (s *chromeSession) release() {
	s.cancel()
	if s.profileDir == "" {
		return
	}
	if err := os.RemoveAll(s.profileDir); err != nil {
		log.WithError(err).Warnf("failed to remove browser profile %s", s.profileDir)
	}
}
