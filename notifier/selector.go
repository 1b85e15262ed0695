package notifier

import "time"

// Decider answers, per address, whether a notification is due for the
// resolved version and whether it counts as an update for that address.
type Decider interface {
	ShouldAlert(v *Version, ev *Event, addr *Address, renotify, release, ignoreTimeLimit bool) (send bool, isUpdate bool, err error)
}

// BucketKey identifies one of the six dispatch buckets.
type BucketKey struct {
	Format string
	Update bool
}

// DispatchOrder is the fixed bucket processing order: short before long
// before pdf, updates before first notices within each format.
var DispatchOrder = []BucketKey{
	{Format: FormatShort, Update: true},
	{Format: FormatShort, Update: false},
	{Format: FormatLong, Update: true},
	{Format: FormatLong, Update: false},
	{Format: FormatPDF, Update: true},
	{Format: FormatPDF, Update: false},
}

// SelectRecipients asks the decider once per address and partitions the
// positives into the six (format, update) buckets. Every address lands
// in at most one bucket; negatives are dropped for this run.
func SelectRecipients(d Decider, v *Version, ev *Event, addrs []Address, renotify, release, ignoreTimeLimit bool) (map[BucketKey][]Address, error) {
	buckets := make(map[BucketKey][]Address)
	for i := range addrs {
		addr := &addrs[i]
		send, isUpdate, err := d.ShouldAlert(v, ev, addr, renotify, release, ignoreTimeLimit)
		if err != nil {
			return nil, err
		}
		if !send {
			continue
		}
		key := BucketKey{Format: addr.FormatOrDefault(), Update: isUpdate}
		buckets[key] = append(buckets[key], *addr)
	}
	return buckets, nil
}

// ThresholdDecider is the default eligibility rule set. It consults the
// store's notification history to classify updates and to keep pending
// results off addresses that have never heard of the event.
type ThresholdDecider struct {
	store *Store
	now   func() time.Time
}

func NewThresholdDecider(store *Store) *ThresholdDecider {
	return &ThresholdDecider{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (d *ThresholdDecider) ShouldAlert(v *Version, ev *Event, addr *Address, renotify, release, ignoreTimeLimit bool) (bool, bool, error) {
	forEvent, forVersion, err := d.store.NotificationCounts(ev.ID, v.ID, addr.ID)
	if err != nil {
		return false, false, err
	}
	isUpdate := forEvent > 0

	if addr.Disabled {
		return false, isUpdate, nil
	}
	if v.SummaryLevel < addr.MinLevel &&
		!(addr.MinMagnitude > 0 && v.Magnitude >= addr.MinMagnitude) {
		return false, isUpdate, nil
	}
	// Unreleased results go only to addresses already following the
	// event, unless this run carries an explicit release.
	if !v.Released && !release && forEvent == 0 {
		return false, isUpdate, nil
	}
	// Same version, already told: only a renotify run repeats it.
	if forVersion > 0 && !renotify {
		return false, isUpdate, nil
	}
	if !renotify && !ignoreTimeLimit && addr.MaxAgeHours > 0 {
		age := d.now().Sub(v.OriginTime)
		if age > time.Duration(addr.MaxAgeHours*float64(time.Hour)) {
			return false, isUpdate, nil
		}
	}
	return true, isUpdate, nil
}
