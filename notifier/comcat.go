package notifier

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CatalogInfo is the alias-resolution result for one physical event.
// It is produced per run and never persisted.
type CatalogInfo struct {
	CanonicalID string
	Alternates  []string
	URL         string
}

type CatalogClient interface {
	AssociatedIDs(eventCode string) (CatalogInfo, error)
}

const DefaultCatalogBaseURL = "https://earthquake.usgs.gov/fdsnws/event/1"

// ComCatClient resolves event aliases against a ComCat-style FDSN event
// service. Lookup failures are reported as errors; the resolver treats
// them as "no alias information available".
type ComCatClient struct {
	baseURL string
	client  *http.Client
}

func NewComCatClient(baseURL string, timeout time.Duration) *ComCatClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultCatalogBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ComCatClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type comcatDetail struct {
	ID         string `json:"id"`
	Properties struct {
		IDs string `json:"ids"`
		URL string `json:"url"`
	} `json:"properties"`
}

func (c *ComCatClient) AssociatedIDs(eventCode string) (CatalogInfo, error) {
	q := url.Values{}
	q.Set("eventid", eventCode)
	q.Set("format", "geojson")
	resp, err := c.client.Get(c.baseURL + "/query?" + q.Encode())
	if err != nil {
		return CatalogInfo{}, fmt.Errorf("catalog query: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return CatalogInfo{}, fmt.Errorf("catalog query: unexpected status %d", resp.StatusCode)
	}

	var detail comcatDetail
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return CatalogInfo{}, fmt.Errorf("catalog decode: %w", err)
	}
	if strings.TrimSpace(detail.ID) == "" {
		return CatalogInfo{}, fmt.Errorf("catalog: event %q unknown", eventCode)
	}

	info := CatalogInfo{
		CanonicalID: detail.ID,
		URL:         detail.Properties.URL,
	}
	// properties.ids is comma-separated with leading/trailing commas,
	// e.g. ",us1000abcd,ci38457511,".
	for _, id := range strings.Split(detail.Properties.IDs, ",") {
		id = strings.TrimSpace(id)
		if id == "" || id == info.CanonicalID {
			continue
		}
		info.Alternates = append(info.Alternates, id)
	}
	return info, nil
}
