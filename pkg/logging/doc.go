// Package logging provides the process-wide structured logger for ccsim.
//
// The package wraps [log/slog] and exposes a single global logger that is
// configured once at startup and then retrieved via GetLogger. Simulation
// runs, the HTTP server and the terminal UI all log through it so the level
// and destination are controlled from one place.
//
// # Initialisation
//
//	if err := logging.Init(logging.Config{Level: logging.LevelDebug, Format: "json"}); err != nil {
//	    log.Fatal(err)
//	}
//
// If GetLogger is called before Init, a default INFO logger writing text to
// stderr is created lazily.
//
// # Context helpers
//
//	log := logging.WithRun(runID, "twophase") // adds run_id and algorithm
//	log := logging.WithTx(3)                  // adds tx_id
//	log := logging.WithLock(3, "A")           // adds tx_id and resource
package logging
