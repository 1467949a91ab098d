package dispatch_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/grpr/internal/dispatch"
)

const (
	firstRepositoryPathConstant  = "/workspace/alpha"
	secondRepositoryPathConstant = "/workspace/beta"
	thirdRepositoryPathConstant  = "/workspace/gamma"
	summarySpawnMessageConstant  = "tool missing"
)

func TestSummaryAggregation(testInstance *testing.T) {
	testCases := []struct {
		name                    string
		outcomes                []dispatch.InvocationOutcome
		expectedRepositoryCount int
		expectedFailureCount    int
		expectedAllSucceeded    bool
		expectedFailedPaths     []string
	}{
		{
			name:                    "empty_summary_counts_as_success",
			outcomes:                nil,
			expectedRepositoryCount: 0,
			expectedFailureCount:    0,
			expectedAllSucceeded:    true,
			expectedFailedPaths:     []string{},
		},
		{
			name: "all_invocations_succeed",
			outcomes: []dispatch.InvocationOutcome{
				{RepositoryPath: firstRepositoryPathConstant},
				{RepositoryPath: secondRepositoryPathConstant},
			},
			expectedRepositoryCount: 2,
			expectedFailureCount:    0,
			expectedAllSucceeded:    true,
			expectedFailedPaths:     []string{},
		},
		{
			name: "failures_preserve_run_order",
			outcomes: []dispatch.InvocationOutcome{
				{RepositoryPath: firstRepositoryPathConstant, ExitCode: 2},
				{RepositoryPath: secondRepositoryPathConstant},
				{RepositoryPath: thirdRepositoryPathConstant, SpawnError: errors.New(summarySpawnMessageConstant)},
			},
			expectedRepositoryCount: 3,
			expectedFailureCount:    2,
			expectedAllSucceeded:    false,
			expectedFailedPaths:     []string{firstRepositoryPathConstant, thirdRepositoryPathConstant},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			runSummary := &dispatch.Summary{}
			for _, outcome := range testCase.outcomes {
				runSummary.Record(outcome)
			}

			require.Equal(subtestInstance, testCase.expectedRepositoryCount, runSummary.RepositoryCount())
			require.Equal(subtestInstance, testCase.expectedFailureCount, runSummary.FailureCount())
			require.Equal(subtestInstance, testCase.expectedAllSucceeded, runSummary.AllSucceeded())

			failedPaths := []string{}
			for _, failedOutcome := range runSummary.FailedOutcomes() {
				failedPaths = append(failedPaths, failedOutcome.RepositoryPath)
			}
			require.Equal(subtestInstance, testCase.expectedFailedPaths, failedPaths)
			require.Len(subtestInstance, runSummary.Outcomes(), testCase.expectedRepositoryCount)
		})
	}
}
