package chat

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

const (
	defaultMessageSelector = "div.message-in, div.message-out"
	defaultComposeSelector = `footer div[contenteditable="true"]`
	defaultPaneSelector    = "#pane-side"
)

type ChromeConfig struct {
	URL             string
	Chat            string // conversation title to open; empty keeps the current one
	ProfileDir      string
	Headless        bool
	SampleTimeout   time.Duration
	LoginTimeout    time.Duration
	MessageSelector string
	ComposeSelector string
	PaneSelector    string
}

// ChromeSampler drives a logged-in chat web client in a Chrome profile.
type ChromeSampler struct {
	cfg         ChromeConfig
	logger      *slog.Logger
	browserCtx  context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
	tailJS      string
}

type tailResult struct {
	Ref    string `json:"ref"`
	Kind   string `json:"kind"`
	Text   string `json:"text"`
	Image  string `json:"image"`
	Sender string `json:"sender"`
	Self   bool   `json:"self"`
}

// tailScript returns the newest message matching the selector. Images are
// read from their blob URL and returned base64 encoded.
const tailScript = `(async () => {
  const nodes = document.querySelectorAll(%q);
  if (!nodes.length) return {ref: ""};
  const el = nodes[nodes.length - 1];
  const holder = el.closest('[data-id]');
  let ref = holder ? holder.getAttribute('data-id') : el.getAttribute('data-vagas-ref');
  if (!ref) {
    window.__vagasSeq = (window.__vagasSeq || 0) + 1;
    ref = 'seq-' + window.__vagasSeq;
    el.setAttribute('data-vagas-ref', ref);
  }
  const out = {ref: ref, kind: 'text', text: '', image: '', sender: '', self: el.classList.contains('message-out')};
  const pre = el.querySelector('[data-pre-plain-text]');
  if (pre) out.sender = pre.getAttribute('data-pre-plain-text').trim();
  const img = el.querySelector('img[src^="blob:"]');
  if (img) {
    out.kind = 'image';
    const blob = await (await fetch(img.src)).blob();
    out.image = await new Promise((resolve, reject) => {
      const r = new FileReader();
      r.onload = () => resolve(String(r.result).split(',')[1] || '');
      r.onerror = reject;
      r.readAsDataURL(blob);
    });
    return out;
  }
  const txt = el.querySelector('span.selectable-text');
  out.text = txt ? txt.innerText : el.innerText;
  return out;
})()`

// NewChromeSampler starts Chrome with the profile, opens the client and waits
// until the conversation list renders. The browser lives until Close.
func NewChromeSampler(ctx context.Context, cfg ChromeConfig, logger *slog.Logger) (*ChromeSampler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MessageSelector == "" {
		cfg.MessageSelector = defaultMessageSelector
	}
	if cfg.ComposeSelector == "" {
		cfg.ComposeSelector = defaultComposeSelector
	}
	if cfg.PaneSelector == "" {
		cfg.PaneSelector = defaultPaneSelector
	}
	if cfg.SampleTimeout <= 0 {
		cfg.SampleTimeout = 20 * time.Second
	}
	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = 2 * time.Minute
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(cfg.ProfileDir),
		chromedp.Flag("headless", cfg.Headless),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		logger.Debug("chat.chrome.cdp", "msg", fmt.Sprintf(format, args...))
	}))

	s := &ChromeSampler{
		cfg:         cfg,
		logger:      logger,
		browserCtx:  browserCtx,
		cancelAlloc: cancelAlloc,
		cancelTab:   cancelTab,
		tailJS:      fmt.Sprintf(tailScript, cfg.MessageSelector),
	}

	start := time.Now()
	err := s.run(ctx, cfg.LoginTimeout,
		chromedp.Navigate(cfg.URL),
		chromedp.WaitVisible(cfg.PaneSelector, chromedp.ByQuery),
	)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open %s: %w", cfg.URL, err)
	}
	if cfg.Chat != "" {
		sel := fmt.Sprintf(`span[title=%q]`, cfg.Chat)
		if err := s.run(ctx, cfg.SampleTimeout,
			chromedp.Click(sel, chromedp.ByQuery),
			chromedp.WaitVisible(cfg.ComposeSelector, chromedp.ByQuery),
		); err != nil {
			s.Close()
			return nil, fmt.Errorf("open chat %q: %w", cfg.Chat, err)
		}
	}
	logger.Info("chat.chrome.ready", "url", cfg.URL, "chat", cfg.Chat, "duration_ms", time.Since(start).Milliseconds())
	return s, nil
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
func (s *ChromeSampler) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.browserCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (s *ChromeSampler) Tail(ctx context.Context) (Unit, error) {
	var res tailResult
	err := s.run(ctx, s.cfg.SampleTimeout, chromedp.Evaluate(s.tailJS, &res,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
	if err != nil {
		return Unit{}, fmt.Errorf("sample tail: %w", err)
	}
	u := Unit{Ref: res.Ref, Sender: res.Sender, FromSelf: res.Self}
	switch res.Kind {
	case "image":
		img, err := base64.StdEncoding.DecodeString(res.Image)
		if err != nil {
			return Unit{}, fmt.Errorf("decode image %s: %w", res.Ref, err)
		}
		u.Kind, u.Image = UnitImage, img
	default:
		u.Kind, u.Text = UnitText, res.Text
	}
	return u, nil
}

// Send types text into the compose box. Line breaks are entered with
// Shift+Enter so the message goes out as one.
func (s *ChromeSampler) Send(ctx context.Context, text string) error {
	sel := s.cfg.ComposeSelector
	actions := []chromedp.Action{chromedp.Click(sel, chromedp.ByQuery)}
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			actions = append(actions, chromedp.KeyEvent(kb.Enter, chromedp.KeyModifiers(input.ModifierShift)))
		}
		if line != "" {
			actions = append(actions, chromedp.SendKeys(sel, line, chromedp.ByQuery))
		}
	}
	actions = append(actions, chromedp.KeyEvent(kb.Enter))
	if err := s.run(ctx, s.cfg.SampleTimeout, actions...); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (s *ChromeSampler) Close() error {
	s.cancelTab()
	s.cancelAlloc()
	return nil
}
