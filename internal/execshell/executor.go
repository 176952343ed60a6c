package execshell

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

const (
	gitToolNameConstant                  = "git"
	gitHubCLIToolNameConstant            = "gh"
	pipToolNameConstant                  = "pip"
	preCommitToolNameConstant            = "pre-commit"
	pythonToolNameConstant               = "python3"
	commandRunnerMissingMessageConstant  = "command runner not configured"
	commandNameMissingMessageConstant    = "command name must be provided"
	logFieldCommandNameConstant          = "command_name"
	logFieldCommandArgumentsConstant     = "command_arguments"
	logFieldWorkingDirectoryConstant     = "working_directory"
	logFieldExitCodeConstant             = "exit_code"
	commandStartedLogMessageConstant     = "executing command"
	commandCompletedLogMessageConstant   = "command completed"
	commandFailedLogMessageConstant      = "command execution failed"
	commandNonZeroExitLogMessageConstant = "command returned non-zero exit code"
)

// ToolName identifies a supported executable.
type ToolName string

// Supported tool enumerations.
const (
	ToolGit       ToolName = ToolName(gitToolNameConstant)
	ToolGitHubCLI ToolName = ToolName(gitHubCLIToolNameConstant)
	ToolPip       ToolName = ToolName(pipToolNameConstant)
	ToolPreCommit ToolName = ToolName(preCommitToolNameConstant)
	ToolPython    ToolName = ToolName(pythonToolNameConstant)
)

// CommandDetails describes the parameters for a single tool invocation.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand combines a ToolName with concrete invocation details.
type ShellCommand struct {
	Name    ToolName
	Details CommandDetails
}

// ExecutionResult captures the observable outcome of executing a command.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner represents the ability to run shell commands.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// ShellExecutor coordinates command construction, execution, logging, and event observation.
type ShellExecutor struct {
	commandRunner CommandRunner
	logger        *zap.Logger
	eventObserver CommandEventObserver
}

// NewShellExecutor builds a ShellExecutor around the provided runner.
func NewShellExecutor(logger *zap.Logger, commandRunner CommandRunner, eventObserver CommandEventObserver) (*ShellExecutor, error) {
	if commandRunner == nil {
		return nil, errors.New(commandRunnerMissingMessageConstant)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if eventObserver == nil {
		eventObserver = noopCommandEventObserver{}
	}
	return &ShellExecutor{commandRunner: commandRunner, logger: logger, eventObserver: eventObserver}, nil
}

// Execute runs an arbitrary command using the configured runner.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	if len(command.Name) == 0 {
		return ExecutionResult{}, errors.New(commandNameMissingMessageConstant)
	}

	executor.logger.Debug(
		commandStartedLogMessageConstant,
		zap.String(logFieldCommandNameConstant, string(command.Name)),
		zap.Strings(logFieldCommandArgumentsConstant, command.Details.Arguments),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
	)
	executor.eventObserver.CommandStarted(command)

	executionResult, executionError := executor.commandRunner.Run(executionContext, command)
	if executionError != nil {
		executor.logger.Debug(
			commandFailedLogMessageConstant,
			zap.String(logFieldCommandNameConstant, string(command.Name)),
			zap.Error(executionError),
		)
		executor.eventObserver.CommandExecutionFailed(command, executionError)
		return ExecutionResult{}, executionError
	}

	if executionResult.ExitCode == 0 {
		executor.logger.Debug(
			commandCompletedLogMessageConstant,
			zap.String(logFieldCommandNameConstant, string(command.Name)),
		)
	} else {
		executor.logger.Debug(
			commandNonZeroExitLogMessageConstant,
			zap.String(logFieldCommandNameConstant, string(command.Name)),
			zap.Int(logFieldExitCodeConstant, executionResult.ExitCode),
		)
	}
	executor.eventObserver.CommandCompleted(command, executionResult)

	return executionResult, nil
}

// ExecuteGit runs git with the provided details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: ToolGit, Details: details})
}

// ExecuteGitHubCLI runs the GitHub CLI with the provided details.
func (executor *ShellExecutor) ExecuteGitHubCLI(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: ToolGitHubCLI, Details: details})
}

// ExecutePip runs pip with the provided details.
func (executor *ShellExecutor) ExecutePip(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: ToolPip, Details: details})
}

// ExecutePreCommit runs the pre-commit hook manager with the provided details.
func (executor *ShellExecutor) ExecutePreCommit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: ToolPreCommit, Details: details})
}

// ExecutePython runs the python interpreter with the provided details.
func (executor *ShellExecutor) ExecutePython(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: ToolPython, Details: details})
}
