package notifier

import (
	"fmt"
	"strings"
	"time"
)

// Subject builds the two fixed subject variants: a first notice and an
// "UPDATE:"-prefixed form for update buckets.
func Subject(v *Version, isUpdate bool) string {
	base := fmt.Sprintf("PAGER %s alert: M%.1f earthquake, %s", v.SummaryLevel, v.Magnitude, v.Country)
	if isUpdate {
		return "UPDATE: " + base
	}
	return base
}

// Body renders the message text for short and long formats. The pdf
// bucket reuses the long body.
func Body(v *Version, format string, eventURL string) string {
	switch format {
	case FormatShort:
		return fmt.Sprintf("PAGER V%d %s: M%.1f %s %s lat=%.3f lon=%.3f depth=%.0fkm mmi=%.1f",
			v.Number, v.SummaryLevel, v.Magnitude, v.Country,
			v.OriginTime.UTC().Format("2006-01-02 15:04:05"),
			v.Lat, v.Lon, v.Depth, v.MaxIntensity)
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "PAGER alert level: %s\n", v.SummaryLevel)
		fmt.Fprintf(&b, "Version: %d\n", v.Number)
		fmt.Fprintf(&b, "Magnitude: %.1f\n", v.Magnitude)
		fmt.Fprintf(&b, "Origin time: %s UTC\n", v.OriginTime.UTC().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&b, "Location: %.3f, %.3f\n", v.Lat, v.Lon)
		fmt.Fprintf(&b, "Depth: %.0f km\n", v.Depth)
		fmt.Fprintf(&b, "Max intensity: %.1f\n", v.MaxIntensity)
		if v.Country != "" {
			fmt.Fprintf(&b, "Impacted country: %s\n", v.Country)
		}
		fmt.Fprintf(&b, "Fatality alert: %s\n", v.FatLevel)
		fmt.Fprintf(&b, "Economic alert: %s\n", v.EcoLevel)
		if !v.Released {
			b.WriteString("Status: pending review\n")
		}
		if eventURL != "" {
			fmt.Fprintf(&b, "Event page: %s\n", eventURL)
		}
		fmt.Fprintf(&b, "Processed: %s UTC\n", v.ProcessTime.UTC().Format(time.RFC3339))
		return b.String()
	}
}
