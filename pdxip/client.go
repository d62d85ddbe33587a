// Package pdxip talks to Paradox IP camera/alarm modules (HD77 family)
// over their HTTP JSON API.
package pdxip

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	logp "github.com/charmbracelet/log"
	paradox "github.com/dmoraes/homekit-paradox"
	"github.com/j-keck/arping"
)

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "pdxip",
})

const (
	// DefaultPort is the module's factory HTTP port.
	DefaultPort = 80
	// DefaultTimeout bounds every request.
	DefaultTimeout = 10 * time.Second

	developerKey = "5e9ca577a3e54bd6"
)

// Module result codes. The API signals almost everything through these
// rather than HTTP status.
const (
	resultOK             = 33816578
	resultBadCredentials = 50331651
	resultSessionExpired = 50331650
)

// ResultError is a non-OK result code from the module. The module only
// answers these for rejected credentials or sessions it no longer
// accepts, so they classify as auth failures.
type ResultError struct {
	Code int
	Str  string
}

func (e *ResultError) Error() string {
	if e.Str == "" {
		return fmt.Sprintf("module result code %d", e.Code)
	}
	return fmt.Sprintf("module result code %d: %s", e.Code, e.Str)
}

// Options configure a client. Zero values fall back to the module
// factory defaults.
type Options struct {
	Host     string
	Port     int
	Password string // module server password
	Username string // panel user name
	Usercode string // panel user code
	Timeout  time.Duration

	// HTTPClient overrides the default client, mostly for tests.
	HTTPClient *http.Client
}

// Client implements paradox.Transport against a real module.
type Client struct {
	model string
	base  string
	creds Options
	http  *http.Client

	mu         sync.Mutex
	sessionKey string
}

func newClient(model string, opts Options) *Client {
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	httpcli := opts.HTTPClient
	if httpcli == nil {
		httpcli = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		model: model,
		base:  "http://" + net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)) + "/app",
		creds: opts,
		http:  httpcli,
	}
}

// MacAddress resolves the MAC of the module via ARP. Needs cap_net_raw.
func MacAddress(ip string) (string, error) {
	hw, _, err := arping.Ping(net.ParseIP(ip))
	if err != nil {
		return "", fmt.Errorf("could not get the mac address: %w", err)
	}
	return hw.String(), nil
}

type unitPayload struct {
	Model    string `json:"Model"`
	SerialNo string `json:"SerialNo"`
	Version  string `json:"Version"`
	Revision string `json:"Revision"`
}

func (u unitPayload) version() string {
	if u.Revision == "" {
		return u.Version
	}
	return u.Version + "." + u.Revision
}

type loginResponse struct {
	ResultCode int          `json:"ResultCode"`
	ResultStr  string       `json:"ResultStr"`
	SessionKey string       `json:"SessionKey"`
	Module     *unitPayload `json:"Module"`
	ParadoxCP  *unitPayload `json:"ParadoxCP"`
}

// Login starts a fresh session and reports what the module knows about
// itself and, when one is wired in, the attached control panel.
func (c *Client) Login(ctx context.Context) (*paradox.LoginData, error) {
	log.Debug("login", "host", c.creds.Host, "model", c.model, "user", c.creds.Username)
	c.mu.Lock()
	c.sessionKey = ""
	c.mu.Unlock()

	var resp loginResponse
	err := c.post(ctx, "login", map[string]string{
		"DeveloperKey":   developerKey,
		"ServerPassword": c.creds.Password,
		"UserCode":       c.creds.Usercode,
		"UserName":       c.creds.Username,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.ResultCode != resultOK {
		return nil, authErr("login", &ResultError{Code: resp.ResultCode, Str: resp.ResultStr})
	}
	if resp.SessionKey == "" || resp.Module == nil {
		return nil, &paradox.Error{
			Kind: paradox.KindUnclassified,
			Op:   "login",
			Err:  fmt.Errorf("login response missing session key or module info"),
		}
	}

	c.mu.Lock()
	c.sessionKey = resp.SessionKey
	c.mu.Unlock()

	data := &paradox.LoginData{
		Module: paradox.UnitInfo{
			Model:   resp.Module.Model,
			Serial:  resp.Module.SerialNo,
			Version: resp.Module.version(),
		},
	}
	if resp.ParadoxCP != nil {
		data.Panel = &paradox.UnitInfo{
			Model:   resp.ParadoxCP.Model,
			Serial:  resp.ParadoxCP.SerialNo,
			Version: resp.ParadoxCP.version(),
		}
	}
	return data, nil
}

// IsAuthenticated reports whether a session key is held. The module may
// still have expired it server-side; that shows up as an auth error on
// the next call.
func (c *Client) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionKey != ""
}

type statusResponse struct {
	ResultCode int    `json:"ResultCode"`
	ResultStr  string `json:"ResultStr"`
	AreaStatus []struct {
		AreaID      int    `json:"AreaId"`
		AreaLabel   string `json:"AreaLabel"`
		ArmingLevel int    `json:"ArmingLevelID"`
		InAlarm     bool   `json:"InAlarm"`
		ReadyToArm  bool   `json:"ReadyToArm"`
	} `json:"AreaStatus"`
}

// Status fetches the per-area alarm state.
func (c *Client) Status(ctx context.Context) ([]paradox.Area, error) {
	log.Debug("pingstatus")
	var resp statusResponse
	if err := c.post(ctx, "pingstatus", c.sessionBody(nil), &resp); err != nil {
		return nil, err
	}
	if err := c.checkResult("pingstatus", resp.ResultCode, resp.ResultStr); err != nil {
		return nil, err
	}
	areas := make([]paradox.Area, 0, len(resp.AreaStatus))
	for _, a := range resp.AreaStatus {
		areas = append(areas, paradox.Area{
			ID:          a.AreaID,
			Label:       strings.TrimSpace(a.AreaLabel),
			ArmingLevel: a.ArmingLevel,
			InAlarm:     a.InAlarm,
			ReadyToArm:  a.ReadyToArm,
		})
	}
	return areas, nil
}

type resultEnvelope struct {
	ResultCode int    `json:"ResultCode"`
	ResultStr  string `json:"ResultStr"`
}

// AreaControl submits area commands.
func (c *Client) AreaControl(ctx context.Context, cmds []paradox.AreaCommand) error {
	log.Debug("areacontrol", "commands", len(cmds))
	var resp resultEnvelope
	err := c.post(ctx, "areacontrol", c.sessionBody(map[string]any{
		"AreaCommands": cmds,
	}), &resp)
	if err != nil {
		return err
	}
	return c.checkResult("areacontrol", resp.ResultCode, resp.ResultStr)
}

// Recording submits a record-on-demand command and hands the raw result
// code back. Success is the caller's call: the module acks refusals with
// a 200 and a non-OK code.
func (c *Client) Recording(ctx context.Context, action paradox.RecordingAction) (int, error) {
	log.Debug("rod", "action", int(action))
	var resp resultEnvelope
	err := c.post(ctx, "rod", c.sessionBody(map[string]any{
		"Action": int(action),
	}), &resp)
	if err != nil {
		return 0, err
	}
	if resp.ResultCode == resultSessionExpired {
		return 0, c.checkResult("rod", resp.ResultCode, resp.ResultStr)
	}
	return resp.ResultCode, nil
}

// Manifest fetches the raw multi-bitrate playlist for the tier. An
// expired session answers a JSON envelope instead of a playlist, which is
// surfaced as an auth error rather than handed to the parser.
func (c *Client) Manifest(ctx context.Context, tier paradox.ChannelTier) (string, error) {
	log.Debug("vod", "channel", tier)
	body, err := c.postRaw(ctx, "vod", c.sessionBody(map[string]any{
		"ChannelType": strings.ToLower(string(tier)),
	}))
	if err != nil {
		return "", err
	}
	if trimmed := strings.TrimSpace(body); strings.HasPrefix(trimmed, "{") {
		var resp resultEnvelope
		if err := json.Unmarshal([]byte(trimmed), &resp); err == nil {
			if err := c.checkResult("vod", resp.ResultCode, resp.ResultStr); err != nil {
				return "", err
			}
		}
	}
	return body, nil
}

// sessionBody merges the session key into a request body.
func (c *Client) sessionBody(extra map[string]any) map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	body := map[string]any{"SessionKey": c.sessionKey}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

// checkResult maps a non-OK result code to an auth error and drops the
// session key, so the next operation re-authenticates.
func (c *Client) checkResult(op string, code int, str string) error {
	if code == resultOK {
		return nil
	}
	c.mu.Lock()
	c.sessionKey = ""
	c.mu.Unlock()
	return authErr(op, &ResultError{Code: code, Str: str})
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	raw, err := c.postRaw(ctx, path, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return &paradox.Error{
			Kind: paradox.KindUnclassified,
			Op:   path,
			Err:  fmt.Errorf("could not decode response: %w", err),
		}
	}
	return nil
}

func (c *Client) postRaw(ctx context.Context, path string, body any) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", &paradox.Error{Kind: paradox.KindUnclassified, Op: path, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/"+path, bytes.NewReader(payload))
	if err != nil {
		return "", &paradox.Error{Kind: paradox.KindUnclassified, Op: path, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return "", &paradox.Error{Kind: paradox.KindTransient, Op: path, Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", &paradox.Error{Kind: paradox.KindTransient, Op: path, Err: err}
	}

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return "", authErr(path, fmt.Errorf("http %d", res.StatusCode))
	case res.StatusCode >= 500:
		return "", &paradox.Error{
			Kind: paradox.KindTransient,
			Op:   path,
			Err:  fmt.Errorf("http %d", res.StatusCode),
		}
	case res.StatusCode != http.StatusOK:
		return "", &paradox.Error{
			Kind: paradox.KindUnclassified,
			Op:   path,
			Err:  fmt.Errorf("http %d: %s", res.StatusCode, strings.TrimSpace(string(raw))),
		}
	}
	return string(raw), nil
}

func authErr(op string, err error) *paradox.Error {
	return &paradox.Error{Kind: paradox.KindAuth, Op: op, Err: err}
}
