package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// SSOLogin drives the hosted Wanderstay login page in a browser and returns
// the access token, refresh token, and expiry in RFC3339. With credentials
// it fills the form itself; without them the user completes the page (social
// sign-in included), so headless only makes sense when credentials are set.
// A failed headless attempt is retried once with a visible window.
func (c *WanderClient) SSOLogin(ctx context.Context, email, password string, headless bool) (string, string, string, error) {
	if headless && (email == "" || password == "") {
		return "", "", "", fmt.Errorf("headless login requires email and password")
	}

	browserCtx, cancel, err := createChromeContext(headless)
	if err != nil {
		return "", "", "", err
	}
	defer cancel()

	log.Info().Msg("Opening the Wanderstay login page.")
	finalURL, err := performLogin(browserCtx, c.authURL(), email, password, headless)
	if err != nil {
		if !headless {
			return "", "", "", fmt.Errorf("failed to login: %w", err)
		}
		log.Warn().Err(err).Msg("Headless login failed, retrying with window mode.")
		fmt.Println("Headless login failed, retrying with window mode.")
		browserCtx, cancel, err = createChromeContext(false)
		if err != nil {
			return "", "", "", fmt.Errorf("failed to create browser context: %w", err)
		}
		defer cancel()
		finalURL, err = performLogin(browserCtx, c.authURL(), email, password, false)
		if err != nil {
			return "", "", "", fmt.Errorf("failed to login: %w", err)
		}
	}

	code, err := extractAuthCode(finalURL)
	if err != nil {
		return "", "", "", err
	}
	return c.exchangeCodeForToken(ctx, code)
}

func createChromeContext(headless bool) (context.Context, context.CancelFunc, error) {
	var execPath string
	if p, err := exec.LookPath("google-chrome"); err == nil {
		execPath = p
	} else if p, err := exec.LookPath("chromium"); err == nil {
		execPath = p
	} else if p, err := exec.LookPath("chrome"); err == nil {
		execPath = p
	} else {
		return nil, nil, fmt.Errorf("no Chrome or Chromium executable found in PATH")
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.ExecPath(execPath))
	if !headless {
		opts = append(opts, chromedp.Flag("headless", false), chromedp.Flag("disable-gpu", false),
			chromedp.Flag("start-maximized", true))
	}
	allocatorCtx, cancelAllocator := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancelContext := chromedp.NewContext(allocatorCtx, chromedp.WithLogf(log.Info().Msgf))
	return ctx, func() {
		cancelContext()
		cancelAllocator()
	}, nil
}

// performLogin navigates to the login page and waits for the success
// redirect carrying the authorization code. Interactive logins get a longer
// window so the user can finish a social sign-in or a 2FA prompt.
func performLogin(ctx context.Context, authURL, email, password string, headlessMode bool) (string, error) {
	var timeoutCtx context.Context
	var cancel context.CancelFunc
	if headlessMode {
		timeoutCtx, cancel = context.WithTimeout(ctx, 30*time.Second)
	} else {
		timeoutCtx, cancel = context.WithTimeout(ctx, 4*time.Minute)
	}
	defer cancel()

	actions := []chromedp.Action{chromedp.Navigate(authURL)}
	if email != "" && password != "" {
		actions = append(actions,
			chromedp.WaitVisible(`#login_email`, chromedp.ByID),
			chromedp.SendKeys(`#login_email`, email, chromedp.ByID),
			chromedp.SendKeys(`#login_password`, password, chromedp.ByID),
			chromedp.Click(`#login_submit`, chromedp.ByID),
		)
	}

	var finalURL string
	actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
		for {
			var currentURL string
			if err := chromedp.Location(&currentURL).Do(ctx); err != nil {
				return err
			}
			if strings.Contains(currentURL, "auth/callback") && strings.Contains(currentURL, "code=") {
				finalURL = currentURL
				return nil
			}
			time.Sleep(500 * time.Millisecond)
		}
	}))

	err := chromedp.Run(timeoutCtx, actions...)
	return finalURL, err
}

func extractAuthCode(callbackURL string) (string, error) {
	parsedURL, err := url.Parse(callbackURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}
	code := parsedURL.Query().Get("code")
	if code == "" {
		return "", errors.New("authorization code not found in the URL")
	}
	return code, nil
}
