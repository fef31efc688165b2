package padapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Account identifies the player the API session is opened for.
type Account struct {
	UUID  string
	IntID string
}

// ErrNoSession is returned when a login response carries no session id.
var ErrNoSession = errors.New("login response has no sid")

// Endpoint names one data download action and its version parameter.
type Endpoint struct {
	Action       string
	VersionName  string
	VersionValue string
}

// BonusEndpoint is always pulled; its file name carries the account group.
var BonusEndpoint = Endpoint{Action: "download_limited_bonus_data", VersionName: "v", VersionValue: "2"}

// DataEndpoints are pulled in order after the bonus data.
var DataEndpoints = []Endpoint{
	{Action: "download_card_data", VersionName: "v", VersionValue: "3"},
	{Action: "download_dungeon_data", VersionName: "v", VersionValue: "2"},
	{Action: "download_skill_data", VersionName: "ver", VersionValue: "1"},
	{Action: "download_enemy_skill_data", VersionName: "ver", VersionValue: "0"},
}

// LoginParams returns the ordered login payload for account.
func (c *Client) LoginParams(account Account) []Param {
	return []Param{
		{"action", "login"},
		{"t", "1"},
		{"v", c.base.Version},
		{"u", account.UUID},
		{"i", account.IntID},
		{"p", c.apiName},
		{"dev", "bullhead"},
		{"osv", "6.0"},
		{"r", c.base.Revision()},
		{"m", "0"},
	}
}

// Login opens a session and returns its sid.
func (c *Client) Login(ctx context.Context, account Account) (string, error) {
	doc, err := c.getJSON(ctx, c.LoginParams(account))
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	sid, ok := doc["sid"].(string)
	if !ok || sid == "" {
		return "", fmt.Errorf("login: %w (res=%v)", ErrNoSession, doc["res"])
	}
	return sid, nil
}

// Action downloads one action's document in an open session.
func (c *Client) Action(ctx context.Context, action, pid, sid, vName, vValue string) (map[string]any, error) {
	params := []Param{
		{"action", action},
		{"pid", pid},
		{"sid", sid},
		{vName, vValue},
		{"r", c.base.Revision()},
	}
	doc, err := c.getJSON(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	return doc, nil
}

// WriteJSON writes doc to path indented by four spaces. Object keys are
// sorted because doc is built from maps.
func WriteJSON(path string, doc any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}

// GroupForID returns the bonus group letter ('a'-'e') for an account's
// internal id.
func GroupForID(intID string) (string, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(intID), 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid account id %q: %w", intID, err)
	}
	return string(rune('a' + id%5)), nil
}

// Puller logs in once and downloads the data documents into a directory.
type Puller struct {
	client    *Client
	account   Account
	outputDir string
	logger    *zap.Logger
}

// NewPuller constructs a Puller.
//
// Precondition: client must be non-nil.
func NewPuller(client *Client, account Account, outputDir string, logger *zap.Logger) *Puller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Puller{client: client, account: account, outputDir: outputDir, logger: logger}
}

// Run logs in and writes the bonus document, then, unless onlyBonus is set,
// every DataEndpoints document. It returns the paths written in order.
//
// Postcondition: on error the returned paths are those completed before the
// failure.
func (p *Puller) Run(ctx context.Context, onlyBonus bool) ([]string, error) {
	group, err := GroupForID(p.account.IntID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", p.outputDir, err)
	}

	sid, err := p.client.Login(ctx, p.account)
	if err != nil {
		return nil, err
	}
	p.logger.Info("logged in", zap.String("server", p.client.Server()), zap.String("group", group))

	var written []string
	path, err := p.pull(ctx, sid, BonusEndpoint, "_"+group)
	if err != nil {
		return written, err
	}
	written = append(written, path)

	if onlyBonus {
		p.logger.Info("skipping other downloads")
		return written, nil
	}

	for _, ep := range DataEndpoints {
		path, err := p.pull(ctx, sid, ep, "")
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func (p *Puller) pull(ctx context.Context, sid string, ep Endpoint, suffix string) (string, error) {
	start := time.Now()
	doc, err := p.client.Action(ctx, ep.Action, p.account.IntID, sid, ep.VersionName, ep.VersionValue)
	if err != nil {
		return "", err
	}
	path := filepath.Join(p.outputDir, ep.Action+suffix+".json")
	if err := WriteJSON(path, doc); err != nil {
		return "", err
	}
	p.logger.Info("wrote",
		zap.String("action", ep.Action),
		zap.String("path", path),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
	)
	return path, nil
}
