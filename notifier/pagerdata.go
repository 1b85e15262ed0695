package notifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PagerData is the hazard assessment computed upstream for one event,
// read from the product data directory.
type PagerData struct {
	EventCode     string  `json:"eventcode"`
	OriginTime    string  `json:"time"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Depth         float64 `json:"depth"`
	Magnitude     float64 `json:"magnitude"`
	Country       string  `json:"country"`
	FatalityLevel string  `json:"fatality_alert"`
	EconomicLevel string  `json:"economy_alert"`
	SummaryLevel  string  `json:"alert_level"`
	// AlertStatus is the literal string "pending" for not-yet-released
	// assessments; anything else means released.
	AlertStatus  string  `json:"alert_status"`
	MaxIntensity float64 `json:"maxmmi"`
}

const pendingStatus = "pending"

func (p *PagerData) Pending() bool {
	return strings.TrimSpace(p.AlertStatus) == pendingStatus
}

func (p *PagerData) ParsedOriginTime() (time.Time, error) {
	s := strings.TrimSpace(p.OriginTime)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty origin time")
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.000",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}
	var lastErr error
	for _, layout := range layouts {
		var tm time.Time
		if strings.Contains(layout, "Z07") {
			tm, lastErr = time.Parse(layout, s)
		} else {
			tm, lastErr = time.ParseInLocation(layout, s, time.UTC)
		}
		if lastErr == nil {
			return tm.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported origin time format: %q", s)
}

// LoadPagerData reads the assessment JSON from the data directory,
// preferring <dir>/json/pager.json over <dir>/pager.json. A missing
// directory or file is a fatal input error.
func LoadPagerData(dataDir string) (*PagerData, error) {
	info, err := os.Stat(dataDir)
	if err != nil {
		return nil, fmt.Errorf("data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data directory: %q is not a directory", dataDir)
	}

	candidates := []string{
		filepath.Join(dataDir, "json", "pager.json"),
		filepath.Join(dataDir, "pager.json"),
	}
	var b []byte
	var readErr error
	for _, p := range candidates {
		b, readErr = os.ReadFile(p)
		if readErr == nil {
			break
		}
	}
	if readErr != nil {
		return nil, fmt.Errorf("read pager.json under %q: %w", dataDir, readErr)
	}

	var pd PagerData
	if err := json.Unmarshal(b, &pd); err != nil {
		return nil, fmt.Errorf("decode pager.json: %w", err)
	}
	if strings.TrimSpace(pd.EventCode) == "" {
		return nil, fmt.Errorf("pager.json: missing eventcode")
	}
	if _, err := pd.ParsedOriginTime(); err != nil {
		return nil, fmt.Errorf("pager.json: %w", err)
	}
	return &pd, nil
}

// OnepagerPath returns the rendered report location inside the data
// directory, or "" when no report was produced.
func OnepagerPath(dataDir string) string {
	p := filepath.Join(dataDir, "onepager.pdf")
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}
