package updaters

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"golang.org/x/net/publicsuffix"

	"sp2any/src/config"
	"sp2any/src/plurality"
	"sp2any/src/secretstore"
	"sp2any/src/users"
)

// vrchatUserAgent identifies this updater to VRChat's API, as required by
// their terms of service (spec §4.4.2).
const vrchatUserAgent = "sp2any-to-vrchat-updater/1.0 golly.ticker@gmail.com"

// TwoFactorAuthMethod is which second factor VRChat is asking for.
type TwoFactorAuthMethod string

const (
	TwoFactorAuthMethodEmail TwoFactorAuthMethod = "emailOtp"
	TwoFactorAuthMethodApp   TwoFactorAuthMethod = "totp"
)

// methodFromRequiresTwoFactorAuth picks Email over App whenever "emailOtp"
// is among the offered methods, matching the source's
// TwoFactorAuthMethod::from.
func methodFromRequiresTwoFactorAuth(offered []string) TwoFactorAuthMethod {
	for _, m := range offered {
		if m == string(TwoFactorAuthMethodEmail) {
			return TwoFactorAuthMethodEmail
		}
	}
	return TwoFactorAuthMethodApp
}

// VRChatCredentials is a bare username/password pair.
type VRChatCredentials struct {
	Username string
	Password string
}

// TwoFactorCodeRequired is returned from AuthenticateForNewCookie when
// VRChat demands a second factor before issuing a session cookie.
type TwoFactorCodeRequired struct {
	Method    TwoFactorAuthMethod
	TmpCookie string
}

// VRChatCredentialsWithCookie pairs credentials with an already-issued,
// serialized session cookie.
type VRChatCredentialsWithCookie struct {
	Creds  VRChatCredentials
	Cookie string
}

// VRChatCredentialsWithTwoFactorAuth carries the second-factor code back
// alongside the temporary cookie obtained from the first login attempt.
type VRChatCredentialsWithTwoFactorAuth struct {
	Creds     VRChatCredentials
	Method    TwoFactorAuthMethod
	Code      string
	TmpCookie string
}

var vrchatAPIURL = &url.URL{Scheme: "https", Host: "api.vrchat.cloud"}

func newVRChatClient(cookie string) (*http.Client, *cookiejar.Jar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, nil, err
	}
	if cookie != "" {
		if err := deserializeCookies(cookie, jar); err != nil {
			return nil, nil, err
		}
	}
	return &http.Client{Jar: jar}, jar, nil
}

// serializeCookies snapshots the jar's cookies for api.vrchat.cloud into a
// base64(JSON) string, the same shape AuthenticateForNewCookie persists and
// later AuthenticateWithCookie calls restore (spec §4.4.2).
func serializeCookies(jar *cookiejar.Jar) (string, error) {
	cookies := jar.Cookies(vrchatAPIURL)
	b, err := json.Marshal(cookies)
	if err != nil {
		return "", fmt.Errorf("vrchat: serialize cookies: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func deserializeCookies(encoded string, jar *cookiejar.Jar) error {
	b, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("vrchat: decode cookie: %w", err)
	}
	var cookies []*http.Cookie
	if err := json.Unmarshal(b, &cookies); err != nil {
		return fmt.Errorf("vrchat: deserialize cookies: %w", err)
	}
	jar.SetCookies(vrchatAPIURL, cookies)
	return nil
}

type currentUserResponse struct {
	ID                    string   `json:"id"`
	RequiresTwoFactorAuth []string `json:"requiresTwoFactorAuth"`
}

// getCurrentUser calls GET /auth/user, which VRChat overloads to mean both
// "validate this session" and "log in with these basic-auth credentials".
func getCurrentUser(ctx context.Context, client *http.Client, username, password string) (currentUserResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.vrchat.cloud/api/1/auth/user", nil)
	if err != nil {
		return currentUserResponse{}, err
	}
	if username != "" {
		req.SetBasicAuth(username, password)
	}
	req.Header.Set("User-Agent", vrchatUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return currentUserResponse{}, fmt.Errorf("vrchat: get current user: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return currentUserResponse{}, fmt.Errorf("vrchat: get current user: status %d", resp.StatusCode)
	}
	var out currentUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return currentUserResponse{}, fmt.Errorf("vrchat: decode current user: %w", err)
	}
	return out, nil
}

func verify2FA(ctx context.Context, client *http.Client, method TwoFactorAuthMethod, code string) error {
	path := "totp"
	if method == TwoFactorAuthMethodEmail {
		path = "emailotp"
	}
	body, _ := json.Marshal(map[string]string{"code": code})
	url := "https://api.vrchat.cloud/api/1/auth/twofactorauth/" + path + "/verify"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", vrchatUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("vrchat: verify 2fa: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("vrchat: verify 2fa: status %d", resp.StatusCode)
	}
	return nil
}

// AuthenticateWithCookie validates an already-issued cookie without
// attempting a fresh username/password login (spec §4.4.2,
// "setup only validates an existing cookie, it never starts a new login").
func AuthenticateWithCookie(ctx context.Context, cfg config.ForUpdater) (*http.Client, *cookiejar.Jar, string, error) {
	client, jar, err := newVRChatClient(cfg.VRChatCookie)
	if err != nil {
		return nil, nil, "", err
	}
	me, err := getCurrentUser(ctx, client, "", "")
	if err != nil {
		return nil, nil, "", err
	}
	if len(me.RequiresTwoFactorAuth) > 0 {
		return nil, nil, "", fmt.Errorf("vrchat: authenticate with cookie: login failed")
	}
	return client, jar, me.ID, nil
}

// AuthenticateForNewCookie starts a fresh username/password login. If
// VRChat accepts it outright, a cookie is returned; otherwise a
// TwoFactorCodeRequired describing the second factor to complete.
func AuthenticateForNewCookie(ctx context.Context, creds VRChatCredentials) (*VRChatCredentialsWithCookie, *TwoFactorCodeRequired, error) {
	client, jar, err := newVRChatClient("")
	if err != nil {
		return nil, nil, err
	}
	me, err := getCurrentUser(ctx, client, creds.Username, creds.Password)
	if err != nil {
		return nil, nil, err
	}
	cookie, err := serializeCookies(jar)
	if err != nil {
		return nil, nil, err
	}
	if len(me.RequiresTwoFactorAuth) == 0 {
		return &VRChatCredentialsWithCookie{Creds: creds, Cookie: cookie}, nil, nil
	}
	return nil, &TwoFactorCodeRequired{
		Method:    methodFromRequiresTwoFactorAuth(me.RequiresTwoFactorAuth),
		TmpCookie: cookie,
	}, nil
}

// AuthenticateForNewCookieWith2FA completes a login that demanded a second
// factor, exchanging the temporary cookie and code for a durable one.
func AuthenticateForNewCookieWith2FA(ctx context.Context, creds VRChatCredentialsWithTwoFactorAuth) (VRChatCredentialsWithCookie, error) {
	client, jar, err := newVRChatClient(creds.TmpCookie)
	if err != nil {
		return VRChatCredentialsWithCookie{}, err
	}
	if err := verify2FA(ctx, client, creds.Method, creds.Code); err != nil {
		return VRChatCredentialsWithCookie{}, err
	}
	cookie, err := serializeCookies(jar)
	if err != nil {
		return VRChatCredentialsWithCookie{}, err
	}
	return VRChatCredentialsWithCookie{Creds: creds.Creds, Cookie: cookie}, nil
}

// VRChatUpdater writes the fronting status into the user's VRChat status
// description (spec §4.4.2). It keeps the authenticated HTTP client and
// resolved VRChat user id alive across Update calls, persisting freshly
// issued cookies back to the store after every successful VRChat
// interaction so a pipeline restart reuses them instead of logging in
// again.
type VRChatUpdater struct {
	*state
	Store *secretstore.Store

	httpClient *http.Client
	jar        *cookiejar.Jar
	vrcUserID  string
}

// NewVRChatUpdater constructs a VRChatUpdater backed by store for cookie
// persistence.
func NewVRChatUpdater(store *secretstore.Store) *VRChatUpdater {
	return &VRChatUpdater{state: newState(), Store: store}
}

func (u *VRChatUpdater) Setup(ctx context.Context, cfg config.ForUpdater) error {
	u.setDisabled(!cfg.EnableVRChat)
	u.beginSetup()
	if !cfg.EnableVRChat {
		u.record(nil)
		return nil
	}

	client, jar, vrcUserID, err := AuthenticateWithCookie(ctx, cfg)
	if err != nil {
		u.record(err)
		return err
	}
	u.httpClient, u.jar, u.vrcUserID = client, jar, vrcUserID

	if err := u.saveCookie(ctx, cfg.UserID); err != nil {
		u.record(err)
		return err
	}
	u.record(nil)
	return nil
}

func (u *VRChatUpdater) Update(ctx context.Context, cfg config.ForUpdater, fronters []plurality.Fronter) error {
	if !cfg.EnableVRChat {
		u.setDisabled(true)
		return nil
	}
	u.setDisabled(false)
	if u.httpClient == nil {
		err := fmt.Errorf("vrchat: update called before setup")
		u.record(err)
		return err
	}

	maxLen := VRChatMaxStatusLength
	formatted := FormatFrontingStatus(Format{
		Prefix:                cfg.StatusPrefix,
		StatusIfNoFronters:    cfg.StatusNoFronts,
		TruncateNamesToLength: cfg.StatusTruncateNamesTo,
		Cleaning:              CleanForVRChat,
		MaxLength:             &maxLen,
	}, fronters, cfg.UsePluralKitName != 0)

	err := u.setStatus(ctx, formatted)
	if err == nil {
		err = u.saveCookie(ctx, cfg.UserID)
	}
	u.record(err)
	return err
}

func (u *VRChatUpdater) setStatus(ctx context.Context, statusDescription string) error {
	body, _ := json.Marshal(map[string]string{"statusDescription": statusDescription})
	apiURL := "https://api.vrchat.cloud/api/1/users/" + url.PathEscape(u.vrcUserID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", vrchatUserAgent)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vrchat: set status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("vrchat: set status: status %d", resp.StatusCode)
	}
	return nil
}

func (u *VRChatUpdater) saveCookie(ctx context.Context, userID users.UserId) error {
	cookie, err := serializeCookies(u.jar)
	if err != nil {
		return err
	}
	return u.Store.UpdateVRChatCookie(ctx, userID, cookie)
}
