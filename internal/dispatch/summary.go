package dispatch

// Summary accumulates invocation outcomes in run order and answers the
// aggregate questions a run reports on: how many repositories ran, which
// failed, and whether the whole run succeeded.
type Summary struct {
	outcomes []InvocationOutcome
}

// Record appends one outcome to the summary.
func (summary *Summary) Record(outcome InvocationOutcome) {
	summary.outcomes = append(summary.outcomes, outcome)
}

// Outcomes returns every recorded outcome in run order.
func (summary *Summary) Outcomes() []InvocationOutcome {
	return summary.outcomes
}

// RepositoryCount returns the number of repositories the tool ran in.
func (summary *Summary) RepositoryCount() int {
	return len(summary.outcomes)
}

// FailedOutcomes returns the outcomes that did not succeed, in run order.
func (summary *Summary) FailedOutcomes() []InvocationOutcome {
	failedOutcomes := make([]InvocationOutcome, 0, len(summary.outcomes))
	for _, outcome := range summary.outcomes {
		if outcome.Succeeded() {
			continue
		}
		failedOutcomes = append(failedOutcomes, outcome)
	}
	return failedOutcomes
}

// FailureCount returns the number of repositories whose invocation failed.
func (summary *Summary) FailureCount() int {
	return len(summary.FailedOutcomes())
}

// AllSucceeded reports whether every recorded invocation succeeded.
func (summary *Summary) AllSucceeded() bool {
	return summary.FailureCount() == 0
}
