// Command nerve runs a single declarative task (a "tasklet") through an
// LLM-driven agent loop against a configurable provider backend.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nerverun/nerve/internal/agent"
	"github.com/nerverun/nerve/internal/events"
	"github.com/nerverun/nerve/internal/namespaces"
	"github.com/nerverun/nerve/internal/observability"
	"github.com/nerverun/nerve/internal/providers"
	"github.com/nerverun/nerve/internal/rag"
	"github.com/nerverun/nerve/internal/state"
	"github.com/nerverun/nerve/internal/tasklet"
)

type options struct {
	generator     string
	embedder      string
	taskletPath   string
	prompt        string
	defines       []string
	serialization string
	window        string
	forceFormat   bool
	contextWindow int
	maxIterations int
	saveTo        string
	fullDump      bool
	generateDoc   bool
	eventsFile    string
	watch         bool
	logLevel      string
	logFormat     string
}

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "nerve",
		Short:         "LLM-driven tasklet executor",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.generator, "generator", "G", "ollama://llama3", "generator uri as type://model[@host[:port]]")
	flags.StringVarP(&opts.embedder, "embedder", "E", "", "embedder uri as type://model[@host[:port]]")
	flags.StringVarP(&opts.taskletPath, "tasklet", "T", "", "path to the task file")
	flags.StringVarP(&opts.prompt, "prompt", "P", "", "task prompt, asked interactively if the task file has none")
	flags.StringArrayVarP(&opts.defines, "define", "D", nil, "define a task variable as name=value")
	flags.StringVar(&opts.serialization, "serialization", "xml", "textual invocation format (xml)")
	flags.StringVar(&opts.window, "window", "full", "conversation window: full, summary or an integer >= 2")
	flags.BoolVar(&opts.forceFormat, "force-format", false, "use the textual format even if the model supports native tools")
	flags.IntVar(&opts.contextWindow, "context-window", 0, "model context window hint, for local providers")
	flags.IntVar(&opts.maxIterations, "max-iterations", 0, "maximum number of steps, 0 for unlimited")
	flags.StringVar(&opts.saveTo, "save-to", "", "write a snapshot file to this path each step")
	flags.BoolVar(&opts.fullDump, "full-dump", false, "snapshot the full conversation instead of the system prompt only")
	flags.BoolVar(&opts.generateDoc, "generate-doc", false, "print the namespaces documentation and exit")
	flags.StringVar(&opts.eventsFile, "events-file", "", "append the JSONL event stream to this file")
	flags.BoolVar(&opts.watch, "watch", false, "re-run the task whenever the task file changes")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")

	return cmd
}

func run(ctx context.Context, opts options) error {
	observability.Setup(observability.LogConfig{Level: opts.logLevel, Format: opts.logFormat})

	if opts.generateDoc {
		fmt.Print(agent.GenerateDoc())
		return nil
	}

	if opts.serialization != "xml" {
		return fmt.Errorf("unsupported serialization format %q", opts.serialization)
	}
	if opts.taskletPath == "" {
		return fmt.Errorf("no task file specified, use --tasklet")
	}
	if err := tasklet.ParseDefines(opts.defines); err != nil {
		return err
	}
	window, err := state.ParseWindow(opts.window)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !opts.watch {
		return runOnce(ctx, opts, window)
	}

	for {
		if err := runOnce(ctx, opts, window); err != nil {
			slog.Error("run failed", "error", err)
		}
		slog.Info("waiting for task file changes", "path", opts.taskletPath)
		changed := make(chan struct{}, 1)
		watchCtx, cancel := context.WithCancel(ctx)
		go func() {
			_ = tasklet.Watch(watchCtx, opts.taskletPath, func() {
				select {
				case changed <- struct{}{}:
				default:
				}
			})
		}()
		select {
		case <-ctx.Done():
			cancel()
			return nil
		case <-changed:
			cancel()
		}
	}
}

func runOnce(ctx context.Context, opts options, window state.ConversationWindow) error {
	task, err := tasklet.Load(opts.taskletPath)
	if err != nil {
		return err
	}
	if opts.prompt != "" {
		task.Prompt = opts.prompt
	}
	if task.Prompt == "" {
		prompt, err := tasklet.Input("enter task prompt: ")
		if err != nil || prompt == "" {
			return fmt.Errorf("no task prompt provided")
		}
		task.Prompt = prompt
	}
	if err := task.InterpolatePrompts(ctx); err != nil {
		return err
	}

	genURI, err := providers.ParseGeneratorURI(opts.generator)
	if err != nil {
		return err
	}
	genURI.ContextWindow = opts.contextWindow
	generator, err := providers.NewClient(genURI)
	if err != nil {
		return err
	}

	var embedder providers.Embedder
	if opts.embedder != "" {
		embedURI, err := providers.ParseGeneratorURI(opts.embedder)
		if err != nil {
			return err
		}
		if embedder, err = providers.NewEmbedder(embedURI); err != nil {
			return err
		}
	}

	features := providers.DefaultFeatures()
	if !opts.forceFormat {
		probed, err := generator.CheckSupportedFeatures(ctx)
		if err != nil {
			slog.Warn("feature probe failed, assuming defaults", "error", err)
		} else {
			features = probed
		}
	}
	nativeTools := features.Tools && !opts.forceFormat
	slog.Info("generator ready",
		"model", genURI.Model,
		"type", genURI.Type,
		"native_tools", nativeTools,
		"window", window.String(),
	)

	nss, err := namespaces.Resolve(task.Using)
	if err != nil {
		return err
	}
	functions, err := task.CompileFunctions()
	if err != nil {
		return err
	}
	nss = append(nss, functions...)

	var vectorStore state.VectorStore
	if task.RAG != nil {
		store, err := rag.Index(ctx, embedder, task.RAG.SourcePath, task.RAG.ChunkSize)
		if err != nil {
			return err
		}
		vectorStore = store
		nss = append(nss, namespaces.RAG())
	}

	variables, err := resolveRequiredVariables(ctx, nss)
	if err != nil {
		return err
	}

	bus := events.NewBus(0)
	defer bus.Close()
	if opts.eventsFile != "" {
		f, err := os.OpenFile(opts.eventsFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		go func() { _ = events.StreamWriter(bus.Subscribe(), f) }()
	}

	agentState, err := state.New(state.Config{
		Namespaces:           nss,
		MaxSteps:             opts.maxIterations,
		UseNativeToolsFormat: nativeTools,
		Variables:            variables,
		Embedder:             embedder,
		VectorStore:          vectorStore,
		Events:               bus,
	})
	if err != nil {
		return err
	}

	runner, err := agent.New(agent.Config{
		Generator: generator,
		Task:      task,
		State:     agentState,
		Window:    window,
		Features:  features,
		SaveTo:    opts.saveTo,
		FullDump:  opts.fullDump,
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		runner.Control().Stop()
	}()

	if err := runner.Run(ctx); err != nil {
		return err
	}

	if agentState.IsComplete() {
		if agentState.Impossible() {
			slog.Warn("task declared impossible")
		} else {
			slog.Info("task complete")
		}
	}

	if task.Evaluation != nil {
		snapshot, err := json.Marshal(agentState.Snapshot())
		if err != nil {
			return err
		}
		eval, err := task.Evaluation.Evaluate(ctx, snapshot, task.Folder())
		if err != nil {
			return err
		}
		slog.Info("evaluation finished", "completed", eval.Completed, "feedback", eval.Feedback)
	}
	return nil
}

// resolveRequiredVariables eagerly resolves every variable the enabled
// actions declare, prompting interactively at most once each.
func resolveRequiredVariables(ctx context.Context, nss []state.Namespace) (map[string]string, error) {
	resolved := map[string]string{}
	for _, ns := range nss {
		for _, action := range ns.Actions {
			for _, name := range action.RequiredVariables {
				if _, done := resolved[name]; done {
					continue
				}
				varName, value, err := tasklet.ResolveExpr(ctx, "$"+name)
				if err != nil {
					return nil, err
				}
				resolved[varName] = value
			}
		}
	}
	return resolved, nil
}
