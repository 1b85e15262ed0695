package notifier

import (
	"fmt"
	"log"
)

type DispatcherConfig struct {
	From string
	// NoSend suppresses the transport call only; notification
	// bookkeeping still happens.
	NoSend bool
	// AttachmentPath is the rendered report for pdf buckets. It is
	// attached only when the resolved version is released.
	AttachmentPath string
	Batch          string
	Debug          bool
}

type Dispatcher struct {
	cfg    DispatcherConfig
	store  *Store
	sender MailSender
}

func NewDispatcher(cfg DispatcherConfig, store *Store, sender MailSender) *Dispatcher {
	return &Dispatcher{cfg: cfg, store: store, sender: sender}
}

func (d *Dispatcher) debugf(format string, args ...any) {
	if d == nil || !d.cfg.Debug {
		return
	}
	log.Printf(format, args...)
}

// DispatchAll walks the six buckets in DispatchOrder, sends each
// non-empty one, and records every recipient against the version after
// a successful send. The first transport or bookkeeping failure aborts
// the remaining buckets.
func (d *Dispatcher) DispatchAll(v *Version, ev *Event, buckets map[BucketKey][]Address, info CatalogInfo, stats *RunStats) error {
	for _, key := range DispatchOrder {
		addrs := buckets[key]
		if len(addrs) == 0 {
			continue
		}

		subject := Subject(v, key.Update)
		bodyFormat := key.Format
		if bodyFormat == FormatPDF {
			bodyFormat = FormatLong
		}
		body := Body(v, bodyFormat, info.URL)

		var attachments []string
		// Never attach a not-yet-released report.
		if key.Format == FormatPDF && v.Released && d.cfg.AttachmentPath != "" {
			attachments = []string{d.cfg.AttachmentPath}
		}

		to := make([]string, 0, len(addrs))
		for _, a := range addrs {
			to = append(to, a.Email)
		}

		if d.cfg.NoSend {
			d.debugf("no-send: bucket format=%s update=%v recipients=%d subject=%q attachments=%d",
				key.Format, key.Update, len(to), subject, len(attachments))
		} else {
			msg := MailMessage{
				From:        d.cfg.From,
				To:          to,
				Subject:     subject,
				Body:        body,
				Attachments: attachments,
			}
			if err := d.sender.Send(msg); err != nil {
				return fmt.Errorf("send bucket format=%s update=%v: %w", key.Format, key.Update, err)
			}
			d.debugf("sent bucket format=%s update=%v recipients=%d subject=%q", key.Format, key.Update, len(to), subject)
			if stats != nil {
				stats.MailsSent += len(to)
			}
		}

		if err := d.store.AppendNotifications(v, addrs, d.cfg.Batch); err != nil {
			return fmt.Errorf("record notifications format=%s update=%v: %w", key.Format, key.Update, err)
		}
		if stats != nil {
			stats.BucketsSent++
		}
	}
	return nil
}
