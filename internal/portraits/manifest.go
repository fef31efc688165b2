// Package portraits downloads monster thumbnail images for every monster
// asset a game server publishes.
package portraits

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
)

// Asset is one downloadable file listed by a game server.
type Asset struct {
	URL string
}

// AssetSource lists the assets to consider.
type AssetSource interface {
	Assets(ctx context.Context) ([]Asset, error)
}

// ManifestSource reads a JSON array of asset URLs from an http(s) URL or a
// local file.
type ManifestSource struct {
	Location string
	HTTP     *http.Client
}

// Assets loads and decodes the manifest.
//
// Postcondition: returns the assets in manifest order, or an error.
func (m ManifestSource) Assets(ctx context.Context) ([]Asset, error) {
	data, err := m.read(ctx)
	if err != nil {
		return nil, err
	}
	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return nil, fmt.Errorf("decoding manifest %s: %w", m.Location, err)
	}
	assets := make([]Asset, 0, len(urls))
	for _, u := range urls {
		assets = append(assets, Asset{URL: u})
	}
	return assets, nil
}

func (m ManifestSource) read(ctx context.Context) ([]byte, error) {
	if !strings.HasPrefix(m.Location, "http://") && !strings.HasPrefix(m.Location, "https://") {
		data, err := os.ReadFile(m.Location)
		if err != nil {
			return nil, fmt.Errorf("reading manifest: %w", err)
		}
		return data, nil
	}

	hc := m.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.Location, nil)
	if err != nil {
		return nil, fmt.Errorf("building manifest request: %w", err)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching manifest %s: HTTP %d", m.Location, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading manifest body: %w", err)
	}
	return data, nil
}

// MonsterID extracts the zero-padded monster id from an asset file name such
// as "mons_0123.bc". Only .bc files whose name contains "mons" qualify.
func MonsterID(fileName string) (string, bool) {
	if !strings.HasSuffix(fileName, ".bc") || !strings.Contains(fileName, "mons") {
		return "", false
	}
	id := strings.TrimSuffix(fileName, ".bc")
	id = strings.TrimPrefix(id, "mons_")
	if id == "" {
		return "", false
	}
	return id, true
}

// assetFileName returns the last path element of an asset URL, ignoring any
// query string.
func assetFileName(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		rawURL = rawURL[:i]
	}
	return path.Base(rawURL)
}
