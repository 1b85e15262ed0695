package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"pager-notifier/notifier"
)

const expectedProductType = "losspager"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var configPath string
	var dataDir string
	var productType string
	var status string
	var action string

	// Preferred event fields, passed through by the product distributor.
	var eventID string
	var latitude float64
	var longitude float64
	var depth float64
	var magnitude float64
	var eventTime string

	// Ternary property flags: only the literal string "true" enables
	// the behavior; anything else (including absence) disables it.
	var propRenotify string
	var propRelease string
	var propForceEmail string

	var dbPath string
	var smtpAddr string
	var from string
	var metricsDir string
	var debug bool
	var noSend bool

	flag.StringVar(&configPath, "config", "", "YAML config file path.")
	flag.StringVar(&dataDir, "data-dir", "", "Product data directory (contains pager.json).")
	flag.StringVar(&productType, "type", expectedProductType, "Product type.")
	flag.StringVar(&status, "status", "UPDATE", "Product status (UPDATE or DELETE).")
	flag.StringVar(&action, "action", "", "Product action.")
	flag.StringVar(&eventID, "eventid", "", "Preferred event ID (overrides the assessment's event code).")
	flag.Float64Var(&latitude, "latitude", 0, "Preferred event latitude.")
	flag.Float64Var(&longitude, "longitude", 0, "Preferred event longitude.")
	flag.Float64Var(&depth, "depth", 0, "Preferred event depth.")
	flag.Float64Var(&magnitude, "magnitude", 0, "Preferred event magnitude.")
	flag.StringVar(&eventTime, "time", "", "Preferred event origin time.")
	flag.StringVar(&propRenotify, "property-renotify", "", "Re-send the latest version when \"true\".")
	flag.StringVar(&propRelease, "property-release", "", "Release the latest pending version when \"true\".")
	flag.StringVar(&propForceEmail, "property-force-email", "", "Ignore time-based suppression when \"true\".")
	flag.StringVar(&dbPath, "db", "pager.db", "SQLite database path.")
	flag.StringVar(&smtpAddr, "smtp-addr", "", "SMTP relay address.")
	flag.StringVar(&from, "from", "", "Sender identity.")
	flag.StringVar(&metricsDir, "metrics-dir", "", "Prometheus textfile collector directory.")
	flag.BoolVar(&debug, "debug", false, "Enable debug logs.")
	flag.BoolVar(&noSend, "no-send", false, "Suppress transport calls; bookkeeping still happens.")
	flag.Parse()

	visited := map[string]bool{}
	flag.CommandLine.Visit(func(f *flag.Flag) {
		visited[f.Name] = true
	})

	fileCfg := &notifier.FileConfig{}
	if configPath != "" {
		cfg, err := notifier.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		fileCfg = cfg
	}

	// Recognized no-ops: the run just doesn't apply here.
	if !fileCfg.IsPrimary() {
		log.Printf("not the primary system; nothing to do")
		os.Exit(0)
	}
	if strings.EqualFold(status, "DELETE") || strings.EqualFold(action, "DELETE") {
		log.Printf("delete-type message; nothing to do")
		os.Exit(0)
	}

	// Unrecoverable input errors.
	if productType != expectedProductType {
		fmt.Fprintf(os.Stderr, "unexpected product type %q (want %q)\n", productType, expectedProductType)
		os.Exit(1)
	}
	if strings.TrimSpace(dataDir) == "" {
		fmt.Fprintln(os.Stderr, "missing data directory (use --data-dir)")
		os.Exit(1)
	}

	finalDB := fileCfg.DB
	if finalDB == "" || visited["db"] {
		finalDB = dbPath
	}
	finalSMTP := fileCfg.SMTP.Addr
	if visited["smtp-addr"] {
		finalSMTP = smtpAddr
	}
	finalFrom := fileCfg.SMTP.From
	if visited["from"] {
		finalFrom = from
	}
	finalMetricsDir := fileCfg.MetricsDir
	if visited["metrics-dir"] {
		finalMetricsDir = metricsDir
	}
	finalDebug := fileCfg.Debug
	if visited["debug"] {
		finalDebug = debug
	}
	finalNoSend := fileCfg.NoSend
	if visited["no-send"] {
		finalNoSend = noSend
	}

	if eventID != "" && finalDebug {
		log.Printf("preferred event: id=%s lat=%.3f lon=%.3f depth=%.0f mag=%.1f time=%q",
			eventID, latitude, longitude, depth, magnitude, eventTime)
	}

	runner, err := notifier.NewRunner(notifier.RunnerConfig{
		DBPath:                finalDB,
		DataDir:               dataDir,
		EventID:               eventID,
		SMTPAddr:              finalSMTP,
		From:                  finalFrom,
		CatalogBaseURL:        fileCfg.Catalog.BaseURL,
		CatalogTimeout:        time.Duration(fileCfg.Catalog.TimeoutSeconds) * time.Second,
		ReleaseThresholdHours: fileCfg.ReleaseThresholdHours,
		MetricsDir:            finalMetricsDir,
		Renotify:              propRenotify == "true",
		Release:               propRelease == "true",
		ForceEmail:            propForceEmail == "true",
		Debug:                 finalDebug,
		NoSend:                finalNoSend,
	})
	if err != nil {
		log.Printf("init runner: %v", err)
		os.Exit(1)
	}
	defer runner.Close()

	if err := runner.RunOnce(); err != nil {
		log.Printf("run: %v", err)
		os.Exit(1)
	}
}
