package tasklet

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// evalSuccessCode is the exit status an evaluation command returns to
// declare the run successful.
const evalSuccessCode = 42

// Evaluation is the outcome of running a task's evaluation command.
type Evaluation struct {
	Completed bool
	Feedback  string
}

// Evaluate runs the configured command with the agent state snapshot JSON
// on stdin. Exit status 42 means the evaluation passed; anything printed to
// stdout is feedback for the operator (or the next run).
func (e *EvalConfig) Evaluate(ctx context.Context, stateJSON []byte, workingDirectory string) (Evaluation, error) {
	if len(e.Command) == 0 {
		return Evaluation{}, fmt.Errorf("no evaluation command defined")
	}

	cmd := exec.CommandContext(ctx, e.Command[0], e.Command[1:]...)
	if workingDirectory != "" {
		cmd.Dir = workingDirectory
	}
	cmd.Stdin = bytes.NewReader(stateJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	eval := Evaluation{Feedback: strings.TrimSpace(stdout.String())}

	if err == nil {
		return eval, nil
	}
	if exit, ok := err.(*exec.ExitError); ok {
		if exit.ExitCode() == evalSuccessCode {
			eval.Completed = true
			return eval, nil
		}
		return eval, nil
	}
	return eval, fmt.Errorf("evaluation command: %w", err)
}
