package notifier

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"
)

type RunnerConfig struct {
	DBPath  string
	DataDir string

	// EventID, when set, overrides the assessment's own event code
	// (the distributor's preferred ID wins).
	EventID string

	SMTPAddr string
	From     string

	CatalogBaseURL string
	CatalogTimeout time.Duration

	// ReleaseThresholdHours: see FileConfig.ReleaseThresholdHours.
	ReleaseThresholdHours float64

	MetricsDir string

	Renotify   bool
	Release    bool
	ForceEmail bool

	Debug  bool
	NoSend bool
}

type Runner struct {
	cfg     RunnerConfig
	db      *gorm.DB
	store   *Store
	catalog CatalogClient
	sender  MailSender
	decider Decider
	metrics *RunMetrics
	now     func() time.Time
}

func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if strings.TrimSpace(cfg.DBPath) == "" {
		return nil, fmt.Errorf("DBPath is required")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return nil, fmt.Errorf("DataDir is required")
	}
	if strings.TrimSpace(cfg.SMTPAddr) == "" {
		cfg.SMTPAddr = "127.0.0.1:25"
	}
	if strings.TrimSpace(cfg.From) == "" {
		cfg.From = "pager@localhost"
	}

	db, err := OpenDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	store := NewStore(db)
	r := &Runner{
		cfg:     cfg,
		db:      db,
		store:   store,
		catalog: NewComCatClient(cfg.CatalogBaseURL, cfg.CatalogTimeout),
		sender:  NewSMTPClient(cfg.SMTPAddr),
		decider: NewThresholdDecider(store),
		metrics: NewRunMetrics(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	return r, nil
}

func (r *Runner) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	err = sqlDB.Close()
	r.db = nil
	return err
}

func (r *Runner) debugf(format string, args ...any) {
	if r == nil || !r.cfg.Debug {
		return
	}
	log.Printf(format, args...)
}

// RunOnce processes one assessment: resolve the version, commit it
// speculatively, select recipients, dispatch the buckets, finalize.
//
// Only input errors (unreadable data directory or assessment file)
// surface to the caller. Any failure after the input is loaded is
// handled here: it is logged with the data directory, the speculative
// version is rolled back, and RunOnce returns nil so an automated
// pipeline is never blocked on a notification failure.
func (r *Runner) RunOnce() error {
	start := r.now()
	stats := &RunStats{}
	defer func() {
		if strings.TrimSpace(r.cfg.MetricsDir) == "" {
			return
		}
		r.metrics.Observe(stats, start, r.now())
		if err := r.metrics.WriteTextfile(r.cfg.MetricsDir); err != nil {
			log.Printf("write metrics textfile: %v", err)
		}
	}()

	in, err := LoadPagerData(r.cfg.DataDir)
	if err != nil {
		return err
	}
	if strings.TrimSpace(r.cfg.EventID) != "" {
		in.EventCode = strings.TrimSpace(r.cfg.EventID)
	}
	r.debugf("run start dataDir=%q event=%q renotify=%v release=%v forceEmail=%v",
		r.cfg.DataDir, in.EventCode, r.cfg.Renotify, r.cfg.Release, r.cfg.ForceEmail)

	if err := r.process(in, stats); err != nil {
		log.Printf("notification run failed dataDir=%q err=%v", r.cfg.DataDir, err)
	}
	r.debugf("run done considered=%d selected=%d buckets=%d mails=%d rolledBack=%v elapsed=%s",
		stats.AddressesConsidered, stats.AddressesSelected, stats.BucketsSent, stats.MailsSent,
		stats.RolledBack, time.Since(start))
	return nil
}

func (r *Runner) process(in *PagerData, stats *RunStats) error {
	resolver := NewResolver(r.store, r.catalog, r.cfg.Debug)
	res, err := resolver.Resolve(in, r.cfg.Release, r.cfg.Renotify)
	if err != nil {
		return err
	}

	guard := NewGuard(r.store, res)
	if err := guard.CommitSpeculative(); err != nil {
		return err
	}
	if err := r.notify(res, stats); err != nil {
		stats.RolledBack = true
		if rbErr := guard.Rollback(); rbErr != nil {
			log.Printf("rollback failed event=%q version=%d err=%v", res.Event.EventCode, res.Version.Number, rbErr)
		}
		return err
	}
	guard.Finalize()
	return nil
}

func (r *Runner) notify(res *Resolution, stats *RunStats) error {
	addrs, err := r.store.AllAddresses()
	if err != nil {
		return err
	}
	stats.AddressesConsidered = len(addrs)

	ignoreTimeLimit := r.cfg.ForceEmail || r.pastReleaseDeadline(res.Version)
	if ignoreTimeLimit {
		r.debugf("time-based suppression disabled forceEmail=%v", r.cfg.ForceEmail)
	}

	buckets, err := SelectRecipients(r.decider, res.Version, res.Event, addrs,
		r.cfg.Renotify, r.cfg.Release, ignoreTimeLimit)
	if err != nil {
		return err
	}
	for _, b := range buckets {
		stats.AddressesSelected += len(b)
	}

	dispatcher := NewDispatcher(DispatcherConfig{
		From:           r.cfg.From,
		NoSend:         r.cfg.NoSend,
		AttachmentPath: OnepagerPath(r.cfg.DataDir),
		Batch:          fmt.Sprintf("run-%d", r.now().UnixNano()),
		Debug:          r.cfg.Debug,
	}, r.store, r.sender)
	return dispatcher.DispatchAll(res.Version, res.Event, buckets, res.Catalog, stats)
}

// pastReleaseDeadline is the force-email deadline check, computed once
// per run: now > version origin time + configured threshold.
func (r *Runner) pastReleaseDeadline(v *Version) bool {
	if r.cfg.ReleaseThresholdHours <= 0 {
		return false
	}
	deadline := v.OriginTime.Add(time.Duration(r.cfg.ReleaseThresholdHours * float64(time.Hour)))
	return r.now().After(deadline)
}
