package tasklet

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	safeexec "github.com/nerverun/nerve/internal/exec"
	"github.com/nerverun/nerve/internal/state"
	toolexec "github.com/nerverun/nerve/internal/tools/exec"
	"github.com/nerverun/nerve/pkg/models"
)

// taskCompleteExitCode is the exit status a tasklet-defined tool returns to
// declare the task finished, with its stdout as the reason.
const taskCompleteExitCode = 65

const defaultMaxShownOutput = 256

// RAGConfig declares the optional document store attached to a task.
type RAGConfig struct {
	SourcePath string `yaml:"source_path"`
	DataPath   string `yaml:"data_path"`
	ChunkSize  int    `yaml:"chunk_size"`
}

// EvalConfig declares the optional external evaluation command run against
// the agent's state.
type EvalConfig struct {
	Command []string `yaml:"command"`
}

// FunctionAction is one user-defined tool: a shell command template plus
// the argument surface shown to the model.
type FunctionAction struct {
	Name           string            `yaml:"name"`
	Description    string            `yaml:"description"`
	Tool           string            `yaml:"tool"`
	ExamplePayload string            `yaml:"example_payload"`
	Args           map[string]string `yaml:"args"`
	MaxShownOutput int               `yaml:"max_shown_output"`
}

// FunctionGroup is a user-defined namespace of FunctionActions.
type FunctionGroup struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Actions     []FunctionAction `yaml:"actions"`
}

// Tasklet is a parsed task file.
type Tasklet struct {
	Name         string          `yaml:"name"`
	SystemPrompt string          `yaml:"system_prompt"`
	Prompt       string          `yaml:"prompt"`
	Using        []string        `yaml:"using"`
	Guidance     []string        `yaml:"guidance"`
	Functions    []FunctionGroup `yaml:"functions"`
	RAG          *RAGConfig      `yaml:"rag"`
	Evaluation   *EvalConfig     `yaml:"evaluation"`

	folder string
}

// baseGuidance is prepended to every task's own guidance list.
var baseGuidance = []string{
	"Perform the task to the best of your ability, one step at a time.",
	"Use only the actions you have been given, exactly as documented.",
	"Do not invent actions that do not exist.",
	"When you have verified that the task is done, use the task-complete action.",
}

// Load parses a task file. The file's folder becomes the working directory
// for its function tools.
func Load(path string) (*Tasklet, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading task file: %w", err)
	}

	var t Tasklet
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("invalid task file %s: %w", path, err)
	}
	if strings.TrimSpace(t.SystemPrompt) == "" {
		return nil, fmt.Errorf("invalid task file %s: system_prompt is required", path)
	}
	if t.Name == "" {
		t.Name = strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	}
	t.folder = filepath.Dir(abs)
	return &t, nil
}

// Folder returns the directory containing the task file.
func (t *Tasklet) Folder() string { return t.folder }

// FullGuidance returns the base guidance extended with the task's own.
func (t *Tasklet) FullGuidance() []string {
	return append(append([]string{}, baseGuidance...), t.Guidance...)
}

// InterpolatePrompts resolves variable references inside the prompts.
func (t *Tasklet) InterpolatePrompts(ctx context.Context) error {
	sys, err := Interpolate(ctx, t.SystemPrompt)
	if err != nil {
		return err
	}
	t.SystemPrompt = sys
	if t.Prompt != "" {
		prompt, err := Interpolate(ctx, t.Prompt)
		if err != nil {
			return err
		}
		t.Prompt = prompt
	}
	return nil
}

// CompileFunctions turns the task's function groups into namespaces whose
// actions dispatch the declared shell command templates.
func (t *Tasklet) CompileFunctions() ([]state.Namespace, error) {
	var out []state.Namespace
	for _, group := range t.Functions {
		ns := state.Namespace{
			Name:        group.Name,
			Description: group.Description,
		}
		for _, fa := range group.Actions {
			action, err := t.compileAction(fa)
			if err != nil {
				return nil, fmt.Errorf("function %s/%s: %w", group.Name, fa.Name, err)
			}
			ns.Actions = append(ns.Actions, action)
		}
		out = append(out, ns)
	}
	return out, nil
}

func (t *Tasklet) compileAction(fa FunctionAction) (state.Action, error) {
	parts := strings.Fields(fa.Tool)
	if len(parts) == 0 {
		return state.Action{}, fmt.Errorf("no tool defined")
	}
	if err := safeexec.ValidateExecutable(parts[0]); err != nil {
		return state.Action{}, fmt.Errorf("tool %q: %w", parts[0], err)
	}

	maxShown := fa.MaxShownOutput
	if maxShown <= 0 {
		maxShown = defaultMaxShownOutput
	}

	action := state.Action{
		Name:        fa.Name,
		Description: fa.Description,
	}
	if fa.ExamplePayload != "" {
		action.ExamplePayload = &fa.ExamplePayload
	}
	if len(fa.Args) > 0 {
		action.ExampleAttributes = fa.Args
	}

	folder := t.folder
	runner := toolexec.NewRunner(folder)
	action.Run = func(s *state.State, attrs map[string]string, payload *string) (*models.ToolOutput, error) {
		argv := []string{parts[0]}
		for _, part := range parts[1:] {
			if strings.HasPrefix(part, "$") {
				_, value, err := ResolveExpr(context.Background(), part)
				if err != nil {
					return nil, err
				}
				argv = append(argv, value)
				continue
			}
			argv = append(argv, part)
		}
		if err := safeexec.ValidateArguments(argv[1:]); err != nil {
			return nil, err
		}
		for key, value := range attrs {
			argv = append(argv, "--"+key, value)
		}
		if payload != nil {
			argv = append(argv, *payload)
		}

		res, err := runner.Argv(context.Background(), argv, folder, Variables())
		if err != nil {
			return nil, err
		}

		stdout := strings.TrimSpace(res.Stdout)
		stderr := strings.TrimSpace(res.Stderr)

		if res.ExitCode == taskCompleteExitCode {
			s.OnComplete(false, stdout)
			out := models.Text("task complete")
			return &out, nil
		}
		if stderr != "" {
			return nil, fmt.Errorf("%s", stderr)
		}
		if res.ExitCode != 0 {
			return nil, fmt.Errorf("exit code %d", res.ExitCode)
		}

		if len(stdout) > maxShown {
			stdout = stdout[:maxShown] + "\n<truncated>"
		}
		out := models.Text(stdout)
		return &out, nil
	}
	return action, nil
}
