package tests

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

type integrationCommandOptions struct {
	PathVariable         string
	EnvironmentOverrides map[string]string
}

func runIntegrationCommand(testInstance *testing.T, repositoryRoot string, commandOptions integrationCommandOptions, timeout time.Duration, arguments []string) string {
	testInstance.Helper()
	outputText, runError := executeIntegrationCommand(repositoryRoot, commandOptions, timeout, arguments)
	requireNoError(testInstance, runError, outputText)
	return outputText
}

func runFailingIntegrationCommand(testInstance *testing.T, repositoryRoot string, commandOptions integrationCommandOptions, timeout time.Duration, arguments []string) (string, error) {
	testInstance.Helper()
	outputText, runError := executeIntegrationCommand(repositoryRoot, commandOptions, timeout, arguments)
	if runError == nil {
		testInstance.Fatalf("command succeeded unexpectedly:\n%s", outputText)
	}
	return outputText, runError
}

func executeIntegrationCommand(repositoryRoot string, commandOptions integrationCommandOptions, timeout time.Duration, arguments []string) (string, error) {
	executionContext, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	command := exec.CommandContext(executionContext, "go", arguments...)
	command.Dir = repositoryRoot
	environment := append([]string{}, os.Environ()...)
	if len(commandOptions.PathVariable) > 0 {
		environment = append(environment, "PATH="+commandOptions.PathVariable)
	}
	for overrideName, overrideValue := range commandOptions.EnvironmentOverrides {
		environment = append(environment, fmt.Sprintf("%s=%s", overrideName, overrideValue))
	}
	command.Env = environment

	outputBytes, runError := command.CombinedOutput()
	return string(outputBytes), runError
}

func filterStructuredOutput(rawOutput string) string {
	lines := strings.Split(rawOutput, "\n")
	var filtered []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		if strings.HasPrefix(trimmed, "{") {
			continue
		}
		filtered = append(filtered, line)
	}
	if len(filtered) == 0 {
		return ""
	}
	return strings.Join(filtered, "\n") + "\n"
}

func requireNoError(testInstance *testing.T, err error, output string) {
	testInstance.Helper()
	if err != nil {
		testInstance.Fatalf("command failed: %v\n%s", err, output)
	}
}
