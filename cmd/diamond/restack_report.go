package main

import (
	"github.com/rsperko/diamond/internal/diamond"
	"github.com/rsperko/diamond/internal/log"
)

// logRestackOutcome reports the result of restacking a single branch and
// tells the caller whether the operation is paused on a conflict.
func logRestackOutcome(logger *log.Logger, outcome *diamond.RestackOutcome) (conflicted bool) {
	switch outcome.Result {
	case diamond.RestackCompleted:
		logger.Infof("%s: restacked on %s", outcome.Branch, outcome.Base)
	case diamond.RestackEmpty:
		logger.Infof("%s: already up to date", outcome.Branch)
	case diamond.RestackConflicted:
		logger.Errorf("%s: conflict while restacking onto %s", outcome.Branch, outcome.Base)
		logger.Info("resolve the conflict, stage the result, and run 'diamond continue'")
		logger.Info("or run 'diamond abort' to cancel")
		conflicted = true
	}
	return conflicted
}

// logRestackReport reports the result of restacking a sequence of
// branches and tells the caller whether the run is paused on a conflict.
func logRestackReport(logger *log.Logger, report *diamond.Report) (conflicted bool) {
	for _, outcome := range report.Outcomes {
		logRestackOutcome(logger, &outcome)
	}

	if report.Conflicted == "" {
		return false
	}

	logger.Errorf("%s: conflict while restacking", report.Conflicted)
	if len(report.Remaining) > 0 {
		logger.Infof("branches not yet attempted: %v", report.Remaining)
	}
	logger.Info("resolve the conflict, stage the result, and run 'diamond continue'")
	logger.Info("or run 'diamond abort' to cancel")
	return true
}
