package padapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// BaseInfo is the subset of a server's base JSON the API client needs.
type BaseInfo struct {
	// Base is the API endpoint every action is sent to.
	Base string `json:"base"`
	// Version is the current client version, e.g. "18.41".
	Version string `json:"rver"`
}

// Revision returns the version with its dots removed, the form sent as the r
// parameter.
func (b BaseInfo) Revision() string {
	return strings.ReplaceAll(b.Version, ".", "")
}

// FetchBaseInfo downloads and decodes the base JSON at url.
//
// Precondition: hc must be non-nil.
// Postcondition: returns a BaseInfo with non-empty Base and Version, or an error.
func FetchBaseInfo(ctx context.Context, hc *http.Client, url string) (BaseInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return BaseInfo{}, fmt.Errorf("building base request: %w", err)
	}
	req.Header.Set("Accept-Encoding", "gzip")

	body, err := doRequest(hc, req)
	if err != nil {
		return BaseInfo{}, fmt.Errorf("fetching base info %s: %w", url, err)
	}

	var info BaseInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return BaseInfo{}, fmt.Errorf("decoding base info %s: %w", url, err)
	}
	if info.Base == "" {
		return BaseInfo{}, fmt.Errorf("base info %s: missing base endpoint", url)
	}
	if info.Version == "" {
		return BaseInfo{}, fmt.Errorf("base info %s: missing rver", url)
	}
	return info, nil
}
