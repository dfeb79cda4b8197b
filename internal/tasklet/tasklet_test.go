package tasklet

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTaskFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "task.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeTaskFile(t, `
name: test-task
system_prompt: You are a tester.
prompt: run the tests
using:
  - '*'
  - shell
guidance:
  - be careful
`)
	task, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if task.Name != "test-task" || task.SystemPrompt != "You are a tester." {
		t.Errorf("unexpected task: %+v", task)
	}
	if len(task.Using) != 2 || task.Using[0] != "*" || task.Using[1] != "shell" {
		t.Errorf("using = %v", task.Using)
	}
	if task.Folder() == "" {
		t.Error("folder not recorded")
	}

	guidance := task.FullGuidance()
	if guidance[len(guidance)-1] != "be careful" {
		t.Errorf("guidance = %v", guidance)
	}
	if len(guidance) != len(baseGuidance)+1 {
		t.Errorf("guidance length = %d", len(guidance))
	}
}

func TestLoadMissingSystemPrompt(t *testing.T) {
	path := writeTaskFile(t, "name: broken\nprompt: hi\n")
	if _, err := Load(path); err == nil {
		t.Error("expected an error for missing system_prompt")
	}
}

func TestLoadDefaultsNameFromFile(t *testing.T) {
	path := writeTaskFile(t, "system_prompt: hi\n")
	task, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if task.Name != "task" {
		t.Errorf("name = %q", task.Name)
	}
}

func TestCompileFunctions(t *testing.T) {
	path := writeTaskFile(t, `
system_prompt: sys
functions:
  - name: Echoing
    description: Repeat things.
    actions:
      - name: say
        description: Print the payload back.
        example_payload: hello
        tool: echo
`)
	task, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	namespaces, err := task.CompileFunctions()
	if err != nil {
		t.Fatal(err)
	}
	if len(namespaces) != 1 || namespaces[0].Name != "Echoing" {
		t.Fatalf("unexpected namespaces: %+v", namespaces)
	}
	action, ok := namespaces[0].FindAction("say")
	if !ok {
		t.Fatal("say not found")
	}
	if action.ExamplePayload == nil || *action.ExamplePayload != "hello" {
		t.Errorf("example payload = %v", action.ExamplePayload)
	}

	payload := "hello"
	out, err := action.Run(nil, nil, &payload)
	if err != nil {
		t.Fatal(err)
	}
	if out.Text != "hello" {
		t.Errorf("output = %q", out.Text)
	}
}

func TestCompileFunctionsRejectsUnsafeTool(t *testing.T) {
	path := writeTaskFile(t, `
system_prompt: sys
functions:
  - name: Bad
    actions:
      - name: evil
        description: nope
        tool: "sh;rm"
`)
	task, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := task.CompileFunctions(); err == nil {
		t.Error("expected unsafe tool template to be rejected")
	}
}

func TestInterpolateIdentityWithoutSentinels(t *testing.T) {
	resetVariables()
	got, err := Interpolate(context.Background(), "nothing to replace here")
	if err != nil || got != "nothing to replace here" {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestInterpolateFromEnvAndDefault(t *testing.T) {
	resetVariables()
	t.Setenv("NERVE_TEST_VAR", "from-env")

	got, err := Interpolate(context.Background(), "value=$NERVE_TEST_VAR end")
	if err != nil || got != "value=from-env end" {
		t.Errorf("got %q, %v", got, err)
	}

	got, err = Interpolate(context.Background(), "missing=$NERVE_TEST_UNSET||fallback")
	if err != nil || got != "missing=fallback" {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestInterpolateFromCacheAndPrompt(t *testing.T) {
	resetVariables()
	Define("CACHED", "cached-value")
	got, err := Interpolate(context.Background(), "$CACHED")
	if err != nil || got != "cached-value" {
		t.Errorf("got %q, %v", got, err)
	}

	prompts := 0
	old := Input
	Input = func(string) (string, error) {
		prompts++
		return "asked-once", nil
	}
	defer func() { Input = old }()

	for i := 0; i < 2; i++ {
		got, err = Interpolate(context.Background(), "$NERVE_ASKED")
		if err != nil || got != "asked-once" {
			t.Errorf("got %q, %v", got, err)
		}
	}
	if prompts != 1 {
		t.Errorf("interactive prompt ran %d times, want 1", prompts)
	}
}

func TestInterpolateFileScheme(t *testing.T) {
	resetVariables()
	dir := t.TempDir()
	path := filepath.Join(dir, "secret.txt")
	if err := os.WriteFile(path, []byte("s3cret\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := Interpolate(context.Background(), "token=$file://"+path)
	if err != nil || got != "token=s3cret" {
		t.Errorf("got %q, %v", got, err)
	}

	// unreadable file with a default falls back
	got, err = Interpolate(context.Background(), "$file://"+filepath.Join(dir, "missing")+"||fallback")
	if err != nil || got != "fallback" {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestParseDefines(t *testing.T) {
	resetVariables()
	if err := ParseDefines([]string{"A=1", "B=x=y"}); err != nil {
		t.Fatal(err)
	}
	if v, _ := LookupVariable("A"); v != "1" {
		t.Errorf("A = %q", v)
	}
	if v, _ := LookupVariable("B"); v != "x=y" {
		t.Errorf("B = %q", v)
	}
	if err := ParseDefines([]string{"noequals"}); err == nil {
		t.Error("expected an error for malformed define")
	}
}

func TestEvaluate(t *testing.T) {
	eval := &EvalConfig{Command: []string{"/bin/sh", "-c", "cat > /dev/null; echo looks good; exit 42"}}
	res, err := eval.Evaluate(context.Background(), []byte(`{"metrics":{}}`), "")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Completed || res.Feedback != "looks good" {
		t.Errorf("unexpected evaluation: %+v", res)
	}

	eval = &EvalConfig{Command: []string{"/bin/sh", "-c", "echo try harder; exit 1"}}
	res, err = eval.Evaluate(context.Background(), nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Completed || !strings.Contains(res.Feedback, "try harder") {
		t.Errorf("unexpected evaluation: %+v", res)
	}
}
