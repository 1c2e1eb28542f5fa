package resolver

import (
	"context"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	apperrors "github.com/flat-hunter/internal/errors"
	"github.com/flat-hunter/internal/logging"
)

const priceURL = "https://www.immowelt.de/immobilienpreise/deutschland/wohnungspreise"

// The consent popup lives inside a shadow root, out of reach of normal
// selector waits, so it is dismissed with a direct script click.
const consentClickJS = `document.querySelector('div#usercentrics-root').shadowRoot
	.querySelector('button[data-testid="uc-accept-all-button"]').click()`

// referenceAddressXPath points at the heading span naming the area the
// price panel was computed for.
const referenceAddressXPath = `//*[@id="app"]/div/div[1]/div[1]/div[1]/div/div[2]/div/div[1]/div/div[1]/div/div/div[1]/h1/span[2]`

var hasHouseNumber = regexp.MustCompile(`[0-9]`)

// ImmoweltConfig configures the headless-browser resolver.
type ImmoweltConfig struct {
	// BrowserPath overrides browser binary discovery.
	BrowserPath string
	// StepWait bounds each interactive step (element wait, click,
	// render). Defaults to 10 seconds.
	StepWait time.Duration
	// ConsentDelay is the fixed wait for the consent popup to appear;
	// its shadow root cannot be waited on by selector.
	ConsentDelay time.Duration
}

// Immowelt resolves reference prices by driving a headless browser through
// immowelt.de's market-data search. Each call owns its own browser session;
// sessions are never pooled or reused, trading throughput for isolation.
type Immowelt struct {
	cfg ImmoweltConfig
	log *logging.Logger
}

// NewImmowelt creates the resolver. Missing config fields get defaults.
func NewImmowelt(cfg ImmoweltConfig, log *logging.Logger) *Immowelt {
	if cfg.StepWait <= 0 {
		cfg.StepWait = 10 * time.Second
	}
	if cfg.ConsentDelay <= 0 {
		cfg.ConsentDelay = 5 * time.Second
	}
	if cfg.BrowserPath == "" {
		cfg.BrowserPath = findBrowserBinary()
	}
	return &Immowelt{cfg: cfg, log: log}
}

// Resolve navigates the market-data page, dismisses the consent
// interstitial, submits the address, selects the best-matching autocomplete
// suggestion and parses the rendered price panel. Every interactive step is
// bounded by the configured step wait; any missing element, intercepted
// click or timeout yields a ResolutionError, never a crash.
func (r *Immowelt) Resolve(ctx context.Context, address string) (Result, error) {
	r.log.WithField("address", address).Info("resolving reference sqm price")

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.cfg.BrowserPath != "" {
		opts = append(opts, chromedp.ExecPath(r.cfg.BrowserPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	sessionCtx, cancelSession := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelSession()

	if err := r.step(sessionCtx,
		chromedp.Navigate(priceURL),
		chromedp.Sleep(r.cfg.ConsentDelay),
		chromedp.Evaluate(consentClickJS, nil),
	); err != nil {
		return Result{}, apperrors.NewResolutionError(address, err)
	}

	if err := r.step(sessionCtx,
		chromedp.WaitVisible("#addressSearch", chromedp.ByID),
		chromedp.SendKeys("#addressSearch", address, chromedp.ByID),
		chromedp.WaitVisible("#dropdownMenuContainer", chromedp.ByID),
	); err != nil {
		return Result{}, apperrors.NewResolutionError(address, err)
	}

	// Tie-break: an address containing a house or street number gets the
	// exact street-level suggestion; otherwise the district or postal
	// aggregate entry at the bottom of the dropdown.
	suggestion := "#sublistItem_10_0"
	if hasHouseNumber.MatchString(address) {
		suggestion = "#sublistItem_Address_0"
	}

	if err := r.step(sessionCtx,
		chromedp.WaitVisible(suggestion, chromedp.ByID),
		chromedp.Click(suggestion, chromedp.ByID),
	); err != nil {
		return Result{}, apperrors.NewResolutionError(address, err)
	}

	var priceText, resolvedAddress string
	if err := r.step(sessionCtx,
		chromedp.WaitVisible("#squareMeterPrice", chromedp.ByID),
		chromedp.Text("#squareMeterPrice", &priceText, chromedp.ByID),
		chromedp.Text(referenceAddressXPath, &resolvedAddress, chromedp.BySearch),
	); err != nil {
		return Result{}, apperrors.NewResolutionError(address, err)
	}

	sqmPrice, err := parseSqmPrice(priceText)
	if err != nil {
		return Result{}, apperrors.NewResolutionError(address, err)
	}

	res := Result{SqmPrice: sqmPrice, Address: strings.TrimSpace(resolvedAddress)}
	r.log.WithFields(map[string]interface{}{
		"address":     address,
		"ref_address": res.Address,
		"ref_sqm":     res.SqmPrice,
	}).Info("resolved reference sqm price")
	return res, nil
}

// step runs one interactive stage under its own bounded wait.
func (r *Immowelt) step(ctx context.Context, actions ...chromedp.Action) error {
	stepCtx, cancel := context.WithTimeout(ctx, r.cfg.StepWait)
	defer cancel()
	return chromedp.Run(stepCtx, actions...)
}

// parseSqmPrice extracts the integer from panel text like "4.850 €/m²".
func parseSqmPrice(text string) (int, error) {
	first := strings.Fields(strings.TrimSpace(text))
	if len(first) == 0 {
		return 0, apperrors.NewParseError("sqm price panel", text)
	}
	value, err := strconv.Atoi(strings.ReplaceAll(first[0], ".", ""))
	if err != nil {
		return 0, apperrors.NewParseError("sqm price panel", text)
	}
	return value, nil
}

// findBrowserBinary locates a Chrome/Chromium binary.
func findBrowserBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
