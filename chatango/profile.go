package chatango

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// loginURL is the account login form endpoint.
	loginURL = "http://chatango.com/login"

	// authCookie carries the session token on a successful login.
	authCookie = "auth.chatango.com"

	httpTimeout = 10 * time.Second
)

// httpClient is shared by all profile and login requests. Cookies are read
// straight off responses, so no jar.
var httpClient = &http.Client{Timeout: httpTimeout}

// msgStyles mirrors the msgstyles.json document. Every value arrives as a
// string, including the background toggle.
type msgStyles struct {
	NameColor     string `json:"nameColor"`
	TextColor     string `json:"textColor"`
	FontSize      string `json:"fontSize"`
	FontFamily    string `json:"fontFamily"`
	UseBackground string `json:"usebackground"`
}

// FetchStyles loads user's msgstyles.json document, applies it to the
// user's style record and retains the raw bytes. When the document enables
// a background the msgbg.xml document is fetched as well.
func FetchStyles(ctx context.Context, user *User) error {
	body, err := fetchDoc(ctx, user.StylesURL())
	if err != nil {
		return err
	}
	styles := user.Styles()
	styles.SetStylesBlob(body)

	var doc msgStyles
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("decode styles for %s: %w", user.Name(), err)
	}
	styles.SetNameColor(doc.NameColor)
	styles.SetFontColor(doc.TextColor)
	styles.SetFontSize(doc.FontSize)
	styles.SetFontFace(doc.FontFamily)
	if doc.UseBackground == "1" {
		styles.SetUseBackground(true)
		bg, err := fetchDoc(ctx, user.BackgroundURL())
		if err != nil {
			return err
		}
		styles.SetBackgroundBlob(bg)
	}
	return nil
}

// FetchProfile loads user's mini-profile document and retains the raw
// bytes. The document is XML; interpreting it is the caller's concern.
func FetchProfile(ctx context.Context, user *User) error {
	body, err := fetchDoc(ctx, user.ProfileURL())
	if err != nil {
		return err
	}
	user.Styles().SetProfileBlob(body)
	return nil
}

func fetchDoc(ctx context.Context, docURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", docURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// GetToken logs into chatango.com with account credentials and returns the
// session token the PM gateway authenticates with. An empty token with a
// nil error means the credentials were rejected.
func GetToken(ctx context.Context, username, password string) (string, error) {
	form := url.Values{
		"user_id":     {strings.ToLower(username)},
		"password":    {password},
		"storecookie": {"on"},
		"checkerrors": {"yes"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	for _, c := range resp.Cookies() {
		if c.Name == authCookie && c.Value != "" {
			return c.Value, nil
		}
	}
	return "", nil
}
