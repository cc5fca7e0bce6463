package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/soochol/flowforge/internal/checkpoint"
	"github.com/soochol/flowforge/internal/config"
	"github.com/soochol/flowforge/internal/pipeline"
	"github.com/soochol/flowforge/internal/provider"
)

func main() {
	if len(os.Args) > 2 && os.Args[1] == "compile" {
		irFormat := "json"
		if len(os.Args) > 3 {
			irFormat = os.Args[3]
		}
		compile(os.Args[2], irFormat)
		return
	}
	fmt.Println("flowforge v0.1.0")
	fmt.Println("Usage: flowforge compile <spec-file> [json|yaml]")
}

func compile(specPath, irFormat string) {
	cfg, err := config.LoadDefault()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	raw, err := os.ReadFile(specPath)
	if err != nil {
		slog.Error("failed to read spec file", "path", specPath, "err", err)
		os.Exit(1)
	}

	sink, err := newSink(cfg.Checkpoint)
	if err != nil {
		slog.Error("failed to initialize checkpoint sink", "kind", cfg.Checkpoint.Kind, "err", err)
		os.Exit(1)
	}

	sel := provider.Selector(firstNonEmpty(os.Getenv("FLOWFORGE_PROVIDER"), string(provider.SelectorClaude)))

	ctrl := pipeline.New(cfg, sink)
	result, err := ctrl.Compile(context.Background(), string(raw), pipeline.CompileOptions{Provider: sel})
	if err != nil {
		slog.Error("compile failed to start", "err", err)
		os.Exit(1)
	}

	if irFormat == "yaml" && result.SerializedIR != "" {
		if err := printIRAsYAML(result.SerializedIR); err != nil {
			slog.Error("failed to project IR as YAML", "err", err)
			os.Exit(1)
		}
	} else {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			slog.Error("failed to encode result", "err", err)
			os.Exit(1)
		}
	}

	if result.Status != pipeline.StatusComplete {
		os.Exit(1)
	}
}

// printIRAsYAML is a human-review convenience projection of the canonical
// JSON IR (spec.md §6's wire format remains JSON; this never round-trips
// back into the pipeline).
func printIRAsYAML(serializedIR string) error {
	var generic map[string]any
	if err := json.Unmarshal([]byte(serializedIR), &generic); err != nil {
		return fmt.Errorf("decode serialized IR: %w", err)
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return fmt.Errorf("marshal IR as yaml: %w", err)
	}
	_, err = os.Stdout.Write(out)
	return err
}

func newSink(cfg config.CheckpointConfig) (checkpoint.Sink, error) {
	switch cfg.Kind {
	case "", "memory":
		return checkpoint.NewMemorySink(), nil
	case "file":
		dir := cfg.Path
		if dir == "" {
			dir = "checkpoints"
		}
		return checkpoint.NewFileSink(dir)
	case "postgres":
		return checkpoint.NewPostgresSink(context.Background(), cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown checkpoint kind %q", cfg.Kind)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
