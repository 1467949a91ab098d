package tests

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	runIntegrationTimeout                 = 20 * time.Second
	runIntegrationRunSubcommandConstant   = "run"
	runIntegrationModulePathConstant      = "."
	runIntegrationRootsEnvNameConstant    = "GRPR_TOOLS_RUN_ROOTS"
	runIntegrationToolEnvNameConstant     = "GRPR_TOOLS_RUN_TOOL"
	runIntegrationConfigEnvNameConstant   = "GRPR_CONFIG"
	runIntegrationStubToolNameConstant    = "repotool"
	runIntegrationStubLogEnvNameConstant  = "REPOTOOL_LOG"
	runIntegrationStubLogFileNameConstant = "invocations.log"
	runIntegrationFailMarkerNameConstant  = ".stub-fail"
	runIntegrationMarkerDirectoryConstant = ".git"
	runIntegrationStubScriptConstant      = "#!/bin/sh\nprintf 'TOOL %s\\n' \"$*\"\nif [ -n \"$REPOTOOL_LOG\" ]; then\n  basename \"$PWD\" >>\"$REPOTOOL_LOG\"\nfi\nif [ -e .stub-fail ]; then\n  exit 7\nfi\nexit 0\n"
	runIntegrationSubtestNameTemplate     = "%d_%s"
	runIntegrationConfigFileNameConstant  = "config.yaml"
	runIntegrationConfigTemplateConstant  = "common:\n  log_level: error\ntools:\n  run:\n    roots:\n      - %s\n    tool: %s\n    default_arguments:\n      - --inventory\n"
)

type repositoryForest struct {
	rootPath        string
	repositoryPaths []string
}

func buildRepositoryForest(testInstance *testing.T) repositoryForest {
	testInstance.Helper()
	forestRoot := testInstance.TempDir()
	repositoryRelativePaths := []string{
		"alpha",
		filepath.Join("beta", "delta"),
		filepath.Join("beta", "gamma"),
		"zeta",
	}
	repositoryPaths := make([]string, 0, len(repositoryRelativePaths))
	for _, repositoryRelativePath := range repositoryRelativePaths {
		repositoryPath := filepath.Join(forestRoot, repositoryRelativePath)
		require.NoError(testInstance, os.MkdirAll(filepath.Join(repositoryPath, runIntegrationMarkerDirectoryConstant), 0o755))
		repositoryPaths = append(repositoryPaths, repositoryPath)
	}
	require.NoError(testInstance, os.MkdirAll(filepath.Join(forestRoot, "alpha", "third_party", runIntegrationMarkerDirectoryConstant), 0o755))
	require.NoError(testInstance, os.MkdirAll(filepath.Join(forestRoot, "notes"), 0o755))
	return repositoryForest{rootPath: forestRoot, repositoryPaths: repositoryPaths}
}

func installRepositoryToolStub(testInstance *testing.T) string {
	testInstance.Helper()
	stubDirectory := testInstance.TempDir()
	stubPath := filepath.Join(stubDirectory, runIntegrationStubToolNameConstant)
	require.NoError(testInstance, os.WriteFile(stubPath, []byte(runIntegrationStubScriptConstant), 0o755))
	return stubDirectory + string(os.PathListSeparator) + os.Getenv("PATH")
}

func TestRunIntegrationExecutesToolAcrossRepositories(testInstance *testing.T) {
	workingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)
	repositoryRoot := filepath.Dir(workingDirectory)

	forest := buildRepositoryForest(testInstance)
	extendedPath := installRepositoryToolStub(testInstance)
	stubLogPath := filepath.Join(testInstance.TempDir(), runIntegrationStubLogFileNameConstant)

	commandOptions := integrationCommandOptions{
		PathVariable: extendedPath,
		EnvironmentOverrides: map[string]string{
			runIntegrationRootsEnvNameConstant:   forest.rootPath,
			runIntegrationToolEnvNameConstant:    runIntegrationStubToolNameConstant,
			runIntegrationStubLogEnvNameConstant: stubLogPath,
		},
	}

	commandArguments := []string{runIntegrationRunSubcommandConstant, runIntegrationModulePathConstant, "snapshot", "--verbose"}
	rawOutput := runIntegrationCommand(testInstance, repositoryRoot, commandOptions, runIntegrationTimeout, commandArguments)

	var expectedOutput strings.Builder
	for _, repositoryPath := range forest.repositoryPaths {
		expectedOutput.WriteString(fmt.Sprintf("REPO-RUN: repotool snapshot --verbose (%s)\n", repositoryPath))
		expectedOutput.WriteString("TOOL snapshot --verbose\n")
	}
	expectedOutput.WriteString("RUN-SUMMARY: 4 repositories processed, all commands succeeded\n")
	require.Equal(testInstance, expectedOutput.String(), filterStructuredOutput(rawOutput))

	logBytes, logReadError := os.ReadFile(stubLogPath)
	require.NoError(testInstance, logReadError)
	require.Equal(testInstance, "alpha\ndelta\ngamma\nzeta\n", string(logBytes))
}

func TestRunIntegrationReportsRepositoryFailures(testInstance *testing.T) {
	workingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)
	repositoryRoot := filepath.Dir(workingDirectory)

	testCases := []struct {
		name             string
		toolName         string
		installStub      bool
		markFailing      bool
		expectedSnippets func(forest repositoryForest) []string
		expectedLogLines string
	}{
		{
			name:        "tool_exit_failure_continues_run",
			toolName:    runIntegrationStubToolNameConstant,
			installStub: true,
			markFailing: true,
			expectedSnippets: func(forest repositoryForest) []string {
				return []string{
					"RUN-SUMMARY: 4 repositories processed, 1 failed",
					fmt.Sprintf("RUN-FAIL: %s (exit code 7)", forest.repositoryPaths[1]),
					"command failed in 1 of 4 repositories",
				}
			},
			expectedLogLines: "alpha\ndelta\ngamma\nzeta\n",
		},
		{
			name:     "missing_tool_spawn_failure",
			toolName: "grpr-absent-tool",
			expectedSnippets: func(forest repositoryForest) []string {
				return []string{
					"RUN-SUMMARY: 4 repositories processed, 4 failed",
					fmt.Sprintf("RUN-FAIL: %s (spawn failure: ", forest.repositoryPaths[0]),
					"command failed in 4 of 4 repositories",
				}
			},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(runIntegrationSubtestNameTemplate, testCaseIndex, testCase.name), func(subtestInstance *testing.T) {
			forest := buildRepositoryForest(subtestInstance)
			stubLogPath := filepath.Join(subtestInstance.TempDir(), runIntegrationStubLogFileNameConstant)

			environmentOverrides := map[string]string{
				runIntegrationRootsEnvNameConstant: forest.rootPath,
				runIntegrationToolEnvNameConstant:  testCase.toolName,
			}
			commandOptions := integrationCommandOptions{EnvironmentOverrides: environmentOverrides}
			if testCase.installStub {
				commandOptions.PathVariable = installRepositoryToolStub(subtestInstance)
				environmentOverrides[runIntegrationStubLogEnvNameConstant] = stubLogPath
			}
			if testCase.markFailing {
				failMarkerPath := filepath.Join(forest.repositoryPaths[1], runIntegrationFailMarkerNameConstant)
				require.NoError(subtestInstance, os.WriteFile(failMarkerPath, nil, 0o644))
			}

			commandArguments := []string{runIntegrationRunSubcommandConstant, runIntegrationModulePathConstant, "snapshot"}
			outputText, runError := runFailingIntegrationCommand(subtestInstance, repositoryRoot, commandOptions, runIntegrationTimeout, commandArguments)

			var exitError *exec.ExitError
			require.ErrorAs(subtestInstance, runError, &exitError)
			require.Equal(subtestInstance, 1, exitError.ExitCode())

			for _, expectedSnippet := range testCase.expectedSnippets(forest) {
				require.Contains(subtestInstance, outputText, expectedSnippet)
			}
			if len(testCase.expectedLogLines) > 0 {
				logBytes, logReadError := os.ReadFile(stubLogPath)
				require.NoError(subtestInstance, logReadError)
				require.Equal(subtestInstance, testCase.expectedLogLines, string(logBytes))
			}
		})
	}
}

func TestRunIntegrationUsesConfiguredDefaultArguments(testInstance *testing.T) {
	workingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)
	repositoryRoot := filepath.Dir(workingDirectory)

	forestRoot := testInstance.TempDir()
	repositoryPath := filepath.Join(forestRoot, "alpha")
	require.NoError(testInstance, os.MkdirAll(filepath.Join(repositoryPath, runIntegrationMarkerDirectoryConstant), 0o755))
	extendedPath := installRepositoryToolStub(testInstance)

	configurationPath := filepath.Join(testInstance.TempDir(), runIntegrationConfigFileNameConstant)
	configurationContent := fmt.Sprintf(runIntegrationConfigTemplateConstant, forestRoot, runIntegrationStubToolNameConstant)
	require.NoError(testInstance, os.WriteFile(configurationPath, []byte(configurationContent), 0o600))

	commandOptions := integrationCommandOptions{
		PathVariable: extendedPath,
		EnvironmentOverrides: map[string]string{
			runIntegrationConfigEnvNameConstant: configurationPath,
		},
	}

	commandArguments := []string{runIntegrationRunSubcommandConstant, runIntegrationModulePathConstant}
	rawOutput := runIntegrationCommand(testInstance, repositoryRoot, commandOptions, runIntegrationTimeout, commandArguments)

	expectedOutput := fmt.Sprintf("REPO-RUN: repotool --inventory (%s)\nTOOL --inventory\nRUN-SUMMARY: 1 repositories processed, all commands succeeded\n", repositoryPath)
	require.Equal(testInstance, expectedOutput, filterStructuredOutput(rawOutput))
}
