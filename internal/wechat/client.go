// Package wechat wraps the mini-program code2session endpoint. The exchange
// is opaque to the rest of the system: a login code goes in, an openid plus
// session key come out.
package wechat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultLoginURL = "https://api.weixin.qq.com/sns/jscode2session"
	grantType       = "authorization_code"
)

// ErrCodeInvalid is returned when WeChat rejects the login code.
var ErrCodeInvalid = errors.New("wechat: invalid login code")

// Session is the identity WeChat asserts for one login.
type Session struct {
	Openid     string `json:"openid"`
	Unionid    string `json:"unionid"`
	SessionKey string `json:"session_key"`
}

// Config carries mini-program credentials.
type Config struct {
	AppID    string
	Secret   string
	LoginURL string
	Timeout  time.Duration
}

// Client exchanges mini-program login codes for sessions.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient constructs a WeChat client with a bounded request timeout.
func NewClient(cfg Config) *Client {
	if cfg.LoginURL == "" {
		cfg.LoginURL = defaultLoginURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type loginResponse struct {
	Openid     string `json:"openid"`
	Unionid    string `json:"unionid"`
	SessionKey string `json:"session_key"`
	ErrCode    int    `json:"errcode"`
	ErrMsg     string `json:"errmsg"`
}

// Login exchanges a js_code for the WeChat session.
func (c *Client) Login(ctx context.Context, code string) (Session, error) {
	if strings.TrimSpace(code) == "" {
		return Session{}, ErrCodeInvalid
	}
	query := url.Values{
		"appid":      {c.cfg.AppID},
		"secret":     {c.cfg.Secret},
		"js_code":    {code},
		"grant_type": {grantType},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.LoginURL+"?"+query.Encode(), nil)
	if err != nil {
		return Session{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("wechat login: %w", err)
	}
	defer resp.Body.Close()

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Session{}, fmt.Errorf("wechat login: decode response: %w", err)
	}
	if body.ErrCode != 0 {
		// 40029 is the invalid-code error; everything else is upstream trouble.
		if body.ErrCode == 40029 {
			return Session{}, fmt.Errorf("%w: %s", ErrCodeInvalid, body.ErrMsg)
		}
		return Session{}, fmt.Errorf("wechat login: errcode=%d errmsg=%s", body.ErrCode, body.ErrMsg)
	}
	if body.Openid == "" {
		return Session{}, errors.New("wechat login: missing openid")
	}
	return Session{
		Openid:     body.Openid,
		Unionid:    body.Unionid,
		SessionKey: body.SessionKey,
	}, nil
}
