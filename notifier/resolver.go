package notifier

import (
	"log"
	"time"
)

// Resolution is the outcome of mapping an incoming assessment onto the
// persisted version history.
type Resolution struct {
	Event   *Event
	Version *Version
	Catalog CatalogInfo
	// Created marks a version built by this run that has not been
	// persisted yet. Release and renotify paths reuse stored versions
	// and leave Created false.
	Created bool
}

type Resolver struct {
	store   *Store
	catalog CatalogClient
	debug   bool
}

func NewResolver(store *Store, catalog CatalogClient, debug bool) *Resolver {
	return &Resolver{store: store, catalog: catalog, debug: debug}
}

func (r *Resolver) debugf(format string, args ...any) {
	if r == nil || !r.debug {
		return
	}
	log.Printf(format, args...)
}

// Resolve decides which Version this assessment represents.
//
// Lookup goes by the incoming code first, then by catalog aliases
// (canonical ID first, remaining alternates next, first match wins).
// Catalog failures degrade to "no alias information". With a prior
// unreleased version and release set, that version is unlocked in place;
// with renotify set, the latest version is returned unchanged. Otherwise
// a new version numbered len(versions)+1 is built but not persisted --
// the caller commits it speculatively.
func (r *Resolver) Resolve(in *PagerData, release, renotify bool) (*Resolution, error) {
	ev, err := r.store.EventByCode(in.EventCode)
	if err != nil {
		return nil, err
	}

	var info CatalogInfo
	if ev == nil && r.catalog != nil {
		ci, cerr := r.catalog.AssociatedIDs(in.EventCode)
		if cerr != nil {
			r.debugf("catalog lookup failed code=%q err=%v", in.EventCode, cerr)
		} else {
			info = ci
			ev, err = r.findByAlias(in.EventCode, ci)
			if err != nil {
				return nil, err
			}
		}
	}

	if ev == nil {
		code := in.EventCode
		if info.CanonicalID != "" {
			code = info.CanonicalID
		}
		r.debugf("new event code=%q (incoming=%q)", code, in.EventCode)
		ev = &Event{EventCode: code}
	}

	if n := len(ev.Versions); n > 0 {
		latest := &ev.Versions[n-1]
		if release && !latest.Released {
			// A release signal is an administrative unlock, not a new
			// hazard computation; the version number must not move.
			r.debugf("release unlock event=%q version=%d", ev.EventCode, latest.Number)
			if err := r.store.MarkReleased(latest); err != nil {
				return nil, err
			}
			return &Resolution{Event: ev, Version: latest, Catalog: info}, nil
		}
		if renotify {
			r.debugf("renotify event=%q version=%d", ev.EventCode, latest.Number)
			return &Resolution{Event: ev, Version: latest, Catalog: info}, nil
		}
	}

	v, err := buildVersion(in, len(ev.Versions)+1)
	if err != nil {
		return nil, err
	}
	r.debugf("new version event=%q number=%d released=%v", ev.EventCode, v.Number, v.Released)
	return &Resolution{Event: ev, Version: v, Catalog: info, Created: true}, nil
}

func (r *Resolver) findByAlias(incoming string, info CatalogInfo) (*Event, error) {
	codes := make([]string, 0, 1+len(info.Alternates))
	if info.CanonicalID != "" && info.CanonicalID != incoming {
		codes = append(codes, info.CanonicalID)
	}
	for _, alt := range info.Alternates {
		if alt == incoming || alt == info.CanonicalID {
			continue
		}
		codes = append(codes, alt)
	}
	for _, code := range codes {
		ev, err := r.store.EventByCode(code)
		if err != nil {
			return nil, err
		}
		if ev != nil {
			r.debugf("alias hit incoming=%q stored=%q", incoming, code)
			return ev, nil
		}
	}
	return nil, nil
}

func buildVersion(in *PagerData, number int) (*Version, error) {
	origin, err := in.ParsedOriginTime()
	if err != nil {
		return nil, err
	}
	fat, err := ParseAlertLevel(in.FatalityLevel)
	if err != nil {
		return nil, err
	}
	// The economic field is validated but the stored eco level mirrors
	// the fatality alert; upstream populates both from the same source.
	if _, err := ParseAlertLevel(in.EconomicLevel); err != nil {
		return nil, err
	}
	sum, err := ParseAlertLevel(in.SummaryLevel)
	if err != nil {
		return nil, err
	}

	pending := in.Pending()
	return &Version{
		Number:       number,
		OriginTime:   origin,
		Lat:          in.Latitude,
		Lon:          in.Longitude,
		Depth:        in.Depth,
		Magnitude:    in.Magnitude,
		Country:      in.Country,
		FatLevel:     fat,
		EcoLevel:     fat,
		SummaryLevel: sum,
		Released:     !pending,
		WasPending:   pending,
		ProcessTime:  time.Now().UTC(),
		MaxIntensity: in.MaxIntensity,
	}, nil
}
