package notifier

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type mockMailSender struct {
	calls []MailMessage
	failN int
}

func (m *mockMailSender) Send(msg MailMessage) error {
	m.calls = append(m.calls, msg)
	if m.failN > 0 {
		m.failN--
		return errors.New("mock smtp failure")
	}
	return nil
}

func dispatchFixture(t *testing.T, released bool) (*Store, *Event, *Version) {
	t.Helper()
	store := newTestStore(t)
	ev := &Event{EventCode: "us1000abcd"}
	v := &Version{
		Number:       1,
		OriginTime:   time.Date(2026, 8, 20, 4, 10, 33, 0, time.UTC),
		Magnitude:    7.8,
		Country:      "Nepal",
		SummaryLevel: LevelYellow,
		FatLevel:     LevelYellow,
		EcoLevel:     LevelYellow,
		Released:     released,
		ProcessTime:  time.Now().UTC(),
	}
	if err := store.SaveEventVersion(ev, v); err != nil {
		t.Fatal(err)
	}
	return store, ev, v
}

func allSixBuckets() map[BucketKey][]Address {
	buckets := make(map[BucketKey][]Address)
	id := uint(1)
	for _, key := range DispatchOrder {
		buckets[key] = []Address{{ID: id, Email: key.Format + "-" + boolWord(key.Update) + "@example.org", Format: key.Format}}
		id++
	}
	return buckets
}

func boolWord(b bool) string {
	if b {
		return "update"
	}
	return "new"
}

func TestDispatcher_BucketOrderAndSubjects(t *testing.T) {
	store, ev, v := dispatchFixture(t, true)
	sender := &mockMailSender{}
	d := NewDispatcher(DispatcherConfig{From: "pager@example.org", Batch: "run-1"}, store, sender)

	if err := d.DispatchAll(v, ev, allSixBuckets(), CatalogInfo{URL: "https://example.org/ev"}, nil); err != nil {
		t.Fatal(err)
	}
	if len(sender.calls) != 6 {
		t.Fatalf("expected 6 sends, got %d", len(sender.calls))
	}
	for i, key := range DispatchOrder {
		call := sender.calls[i]
		wantTo := key.Format + "-" + boolWord(key.Update) + "@example.org"
		if len(call.To) != 1 || call.To[0] != wantTo {
			t.Fatalf("call %d: expected recipient %q, got %v", i, wantTo, call.To)
		}
		if key.Update && !strings.HasPrefix(call.Subject, "UPDATE: ") {
			t.Fatalf("call %d: expected UPDATE subject, got %q", i, call.Subject)
		}
		if !key.Update && strings.HasPrefix(call.Subject, "UPDATE: ") {
			t.Fatalf("call %d: unexpected UPDATE prefix: %q", i, call.Subject)
		}
	}

	// Short and long bodies differ; pdf reuses the long body.
	shortBody := sender.calls[0].Body
	longBody := sender.calls[2].Body
	pdfBody := sender.calls[4].Body
	if shortBody == longBody {
		t.Fatalf("expected distinct short and long bodies")
	}
	if pdfBody != longBody {
		t.Fatalf("expected pdf bucket to reuse the long body")
	}
	if !strings.Contains(longBody, "https://example.org/ev") {
		t.Fatalf("expected event URL in long body, got %q", longBody)
	}
}

func TestDispatcher_AttachmentPolicy(t *testing.T) {
	report := filepath.Join(t.TempDir(), "onepager.pdf")
	if err := os.WriteFile(report, []byte("%PDF-1.4 fake"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Released version: pdf buckets carry exactly one attachment.
	store, ev, v := dispatchFixture(t, true)
	sender := &mockMailSender{}
	d := NewDispatcher(DispatcherConfig{From: "pager@example.org", AttachmentPath: report, Batch: "run-1"}, store, sender)
	if err := d.DispatchAll(v, ev, allSixBuckets(), CatalogInfo{}, nil); err != nil {
		t.Fatal(err)
	}
	for i, key := range DispatchOrder {
		want := 0
		if key.Format == FormatPDF {
			want = 1
		}
		if got := len(sender.calls[i].Attachments); got != want {
			t.Fatalf("call %d (%v): expected %d attachments, got %d", i, key, want, got)
		}
	}

	// Unreleased version: never attach, regardless of format.
	store2, ev2, v2 := dispatchFixture(t, false)
	sender2 := &mockMailSender{}
	d2 := NewDispatcher(DispatcherConfig{From: "pager@example.org", AttachmentPath: report, Batch: "run-2"}, store2, sender2)
	if err := d2.DispatchAll(v2, ev2, allSixBuckets(), CatalogInfo{}, nil); err != nil {
		t.Fatal(err)
	}
	for i := range sender2.calls {
		if len(sender2.calls[i].Attachments) != 0 {
			t.Fatalf("call %d: expected no attachment for unreleased version", i)
		}
	}
}

func TestDispatcher_RecordsNotificationsPerBucket(t *testing.T) {
	store, ev, v := dispatchFixture(t, true)
	addrs := []Address{
		*mustCreateAddress(t, store, &Address{Email: "s1@example.org", Format: FormatShort}),
		*mustCreateAddress(t, store, &Address{Email: "s2@example.org", Format: FormatShort}),
	}
	buckets := map[BucketKey][]Address{{Format: FormatShort, Update: false}: addrs}

	sender := &mockMailSender{}
	stats := &RunStats{}
	d := NewDispatcher(DispatcherConfig{From: "pager@example.org", Batch: "run-9"}, store, sender)
	if err := d.DispatchAll(v, ev, buckets, CatalogInfo{}, stats); err != nil {
		t.Fatal(err)
	}

	var rows []Notification
	if err := store.db.Order("id asc").Find(&rows).Error; err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 notification rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.VersionID != v.ID || row.EventID != ev.ID || row.Batch != "run-9" {
			t.Fatalf("unexpected notification row: %+v", row)
		}
	}
	if stats.MailsSent != 2 || stats.BucketsSent != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestDispatcher_NoSendSuppressesTransportOnly(t *testing.T) {
	store, ev, v := dispatchFixture(t, true)
	addr := mustCreateAddress(t, store, &Address{Email: "dbg@example.org", Format: FormatLong})
	buckets := map[BucketKey][]Address{{Format: FormatLong, Update: true}: {*addr}}

	sender := &mockMailSender{}
	d := NewDispatcher(DispatcherConfig{From: "pager@example.org", NoSend: true, Batch: "run-3"}, store, sender)
	if err := d.DispatchAll(v, ev, buckets, CatalogInfo{}, nil); err != nil {
		t.Fatal(err)
	}
	if len(sender.calls) != 0 {
		t.Fatalf("expected no transport calls in no-send mode, got %d", len(sender.calls))
	}
	var n int64
	if err := store.db.Model(&Notification{}).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected bookkeeping to still record 1 row, got %d", n)
	}
}

func TestDispatcher_FailureAbortsRemainingBuckets(t *testing.T) {
	store, ev, v := dispatchFixture(t, true)
	sender := &mockMailSender{failN: 1}
	d := NewDispatcher(DispatcherConfig{From: "pager@example.org", Batch: "run-4"}, store, sender)

	err := d.DispatchAll(v, ev, allSixBuckets(), CatalogInfo{}, nil)
	if err == nil {
		t.Fatalf("expected dispatch failure")
	}
	if len(sender.calls) != 1 {
		t.Fatalf("expected dispatch to stop after the failed bucket, got %d calls", len(sender.calls))
	}
	var n int64
	if err := store.db.Model(&Notification{}).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected no bookkeeping for the failed bucket, got %d rows", n)
	}
}
