package notifier

import (
	"errors"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func OpenDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Event{}, &Version{}, &Address{}, &Notification{}); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenQueryDB opens an existing DB for querying without mutating schema.
func OpenQueryDB(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(path), &gorm.Config{})
}

// Store wraps the persistence provider. All mutating operations commit
// their own transaction; the caller sequences them.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// EventByCode returns the Event with its versions ordered by number
// ascending, or nil when no such event exists.
func (s *Store) EventByCode(code string) (*Event, error) {
	var ev Event
	err := s.db.Preload("Versions", func(db *gorm.DB) *gorm.DB {
		return db.Order("number asc")
	}).Where("event_code = ?", code).First(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (s *Store) AllAddresses() ([]Address, error) {
	var addrs []Address
	if err := s.db.Order("id asc").Find(&addrs).Error; err != nil {
		return nil, err
	}
	return addrs, nil
}

// SaveEventVersion persists a new version, creating its event first when
// the event is not stored yet. Both writes commit atomically.
func (s *Store) SaveEventVersion(ev *Event, v *Version) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if ev.ID == 0 {
			if err := tx.Omit("Versions").Create(ev).Error; err != nil {
				return err
			}
		}
		v.EventID = ev.ID
		return tx.Omit("Notified").Create(v).Error
	})
}

// MarkReleased flips the released flag in place without touching the
// version number.
func (s *Store) MarkReleased(v *Version) error {
	if err := s.db.Model(&Version{}).Where("id = ?", v.ID).Update("released", true).Error; err != nil {
		return err
	}
	v.Released = true
	return nil
}

// AppendNotifications records one notification row per address against
// the version. Rows are append-only; duplicates across batches are
// expected and allowed.
func (s *Store) AppendNotifications(v *Version, addrs []Address, batch string) error {
	if len(addrs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]Notification, 0, len(addrs))
	for _, a := range addrs {
		rows = append(rows, Notification{
			VersionID: v.ID,
			EventID:   v.EventID,
			AddressID: a.ID,
			SentAt:    now,
			Batch:     batch,
		})
	}
	return s.db.Create(&rows).Error
}

// NotificationCounts returns how many notification rows exist for the
// address against the event as a whole and against the one version.
func (s *Store) NotificationCounts(eventID, versionID, addressID uint) (forEvent int64, forVersion int64, err error) {
	if err = s.db.Model(&Notification{}).
		Where("event_id = ? AND address_id = ?", eventID, addressID).
		Count(&forEvent).Error; err != nil {
		return 0, 0, err
	}
	if err = s.db.Model(&Notification{}).
		Where("version_id = ? AND address_id = ?", versionID, addressID).
		Count(&forVersion).Error; err != nil {
		return 0, 0, err
	}
	return forEvent, forVersion, nil
}

// DeleteVersion removes the version, its notification rows, and the
// owning event when no versions remain. The whole deletion commits
// atomically.
func (s *Store) DeleteVersion(v *Version) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("version_id = ?", v.ID).Delete(&Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&Version{}, v.ID).Error; err != nil {
			return err
		}
		var remaining int64
		if err := tx.Model(&Version{}).Where("event_id = ?", v.EventID).Count(&remaining).Error; err != nil {
			return err
		}
		if remaining == 0 {
			if err := tx.Delete(&Event{}, v.EventID).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
