package notifier

import "time"

// Message format preferences carried by Address.Format.
const (
	FormatShort = "short"
	FormatLong  = "long"
	FormatPDF   = "pdf"
)

type Event struct {
	ID        uint   `gorm:"primaryKey"`
	EventCode string `gorm:"uniqueIndex;size:64"`
	CreatedAt time.Time
	// Versions are exclusively owned by their Event. Load order is by
	// Number ascending (see Store.EventByCode).
	Versions []Version `gorm:"foreignKey:EventID"`
}

type Version struct {
	ID      uint `gorm:"primaryKey"`
	EventID uint `gorm:"index"`
	// Number is 1-based and strictly increasing within an Event,
	// assigned as count(existing versions)+1 at creation time.
	Number       int `gorm:"index"`
	OriginTime   time.Time
	Lat          float64
	Lon          float64
	Depth        float64
	Magnitude    float64
	Country      string     `gorm:"size:64"`
	FatLevel     AlertLevel `gorm:"index"`
	EcoLevel     AlertLevel
	SummaryLevel AlertLevel `gorm:"index"`
	Released     bool       `gorm:"index"`
	// WasPending records whether this version started life unreleased,
	// independent of later release unlocks.
	WasPending   bool
	ProcessTime  time.Time
	MaxIntensity float64
	Notified     []Notification `gorm:"foreignKey:VersionID"`
}

type Address struct {
	ID    uint   `gorm:"primaryKey"`
	Email string `gorm:"uniqueIndex;size:254"`
	// Format is one of short, long, pdf. Unset or unrecognized values
	// fall back to long (see FormatOrDefault).
	Format       string `gorm:"size:8"`
	MinLevel     AlertLevel
	MinMagnitude float64
	// MaxAgeHours suppresses notices for events whose origin time is
	// older than this. Zero disables the window.
	MaxAgeHours float64
	Disabled    bool `gorm:"index"`
}

func (a *Address) FormatOrDefault() string {
	switch a.Format {
	case FormatShort, FormatLong, FormatPDF:
		return a.Format
	default:
		return FormatLong
	}
}

// Notification is one row per (version, address) send. The collection is
// append-only: an address may accumulate multiple rows for the same
// version across re-notification runs.
type Notification struct {
	ID        uint `gorm:"primaryKey"`
	VersionID uint `gorm:"index"`
	EventID   uint `gorm:"index"`
	AddressID uint `gorm:"index"`
	SentAt    time.Time
	Batch     string `gorm:"size:64"`
}
