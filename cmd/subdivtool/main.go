// subdivtool refines quad OBJ figures into Catmull-Clark limit surfaces.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/Faultbox/figure-subdiv/internal/config"
	"github.com/Faultbox/figure-subdiv/internal/figure"
	"github.com/Faultbox/figure-subdiv/internal/logger"
	"github.com/Faultbox/figure-subdiv/pkg/stencil"
)

var flagLimit = flag.Int("n", 16, "Stencils to print (0 = all)")

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	if err := config.ParseArgs(os.Args[2:]); err != nil {
		os.Exit(1)
	}
	args := config.Args()

	var run func(*config.Config, []string) error
	switch command {
	case "info":
		run = cmdInfo
	case "refine":
		run = cmdRefine
	case "stencils":
		run = cmdStencils
	case "config":
		run = cmdConfig
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	err = run(cfg, args)
	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`subdivtool - Catmull-Clark figure refinement

Usage:
  subdivtool <command> [options] <part.obj>...

Commands:
  info <part.obj>...       Show control and refined counts per part
  refine <part.obj>...     Refine parts into one figure and write an OBJ
  stencils <part.obj>...   Print limit stencils of refined vertices
  config [path]            Write the resolved config (default: user config dir)

Options:
  -config <file>           Config file (default ./config.yaml, then user config dir)
  -level <n>               Refinement level 0-8
  -boundary <mode>         edge-and-corner or edge-only
  -derivatives-only        Keep control positions, emit tangents (level 0)
  -workers <n>             Parts refined in parallel
  -output <file>           Output OBJ path
  -no-normals              Do not write vertex normals
  -n <count>               Stencils to print
  -debug                   Debug logging

Examples:
  subdivtool info body.obj head.obj
  subdivtool refine -level 3 -output figure.obj body.obj head.obj
  subdivtool stencils -level 0 -derivatives-only -n 4 body.obj`)
}

var errNoInput = errors.New("no input parts")

func build(cfg *config.Config, args []string) (*figure.Figure, error) {
	if len(args) == 0 {
		return nil, errNoInput
	}
	parts, err := figure.LoadParts(args)
	if err != nil {
		return nil, err
	}

	b, err := figure.NewBuilder(cfg, logger.Named("figure"))
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return b.Build(ctx, parts)
}

func cmdInfo(cfg *config.Config, args []string) error {
	fig, err := build(cfg, args)
	if err != nil {
		return err
	}

	fmt.Printf("Level:    %d (%s)\n", cfg.Refine.Level, cfg.Refine.Boundary)
	fmt.Printf("Parts:    %d\n", len(fig.Parts))
	fmt.Printf("Control:  %d vertices\n", len(fig.Control))
	fmt.Printf("Refined:  %d vertices, %d faces, %d stencil entries\n",
		fig.Result.Mesh.VertexCount(), fig.Result.Mesh.FaceCount(), fig.Result.Mesh.Stencils.Count())
	fmt.Printf("Surfaces: %v\n", fig.Surfaces)
	fmt.Println()
	fmt.Printf("  %-20s %8s %8s %8s\n", "part", "control", "vertices", "faces")
	for _, p := range fig.Parts {
		fmt.Printf("  %-20s %8d %8d %8d\n", p.Name, p.ControlCount, p.VertexCount, p.FaceCount)
	}
	return nil
}

func cmdRefine(cfg *config.Config, args []string) error {
	fig, err := build(cfg, args)
	if err != nil {
		return err
	}

	frame, err := fig.Evaluate()
	if err != nil {
		return err
	}
	if err := fig.WriteOBJ(cfg.Output.Path, frame, cfg.Output.WriteNormals); err != nil {
		return err
	}

	logger.Info("wrote refined figure",
		zap.String("path", cfg.Output.Path),
		zap.Int("vertices", len(frame.Positions)),
		zap.Bool("normals", cfg.Output.WriteNormals))
	fmt.Printf("Wrote %s (%d vertices, %d faces)\n",
		cfg.Output.Path, len(frame.Positions), fig.Result.Mesh.FaceCount())
	return nil
}

func cmdStencils(cfg *config.Config, args []string) error {
	fig, err := build(cfg, args)
	if err != nil {
		return err
	}

	stencils := fig.Result.Mesh.Stencils
	n := stencils.Len()
	if *flagLimit > 0 && *flagLimit < n {
		n = *flagLimit
	}

	fmt.Printf("%d of %d stencils (max control index %d)\n", n, stencils.Len(), stencil.MaxIndex(stencils))
	for v := 0; v < n; v++ {
		fmt.Printf("vertex %d:\n", v)
		for _, w := range stencils.At(v) {
			fmt.Printf("  %6d  p=%+.6f  du=%+.6f  dv=%+.6f\n", w.Index, w.Weight, w.DuWeight, w.DvWeight)
		}
	}
	return nil
}

func cmdConfig(cfg *config.Config, args []string) error {
	if len(args) > 0 {
		if err := cfg.SaveTo(args[0]); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", args[0])
		return nil
	}
	if err := cfg.Save(); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", config.ConfigDir())
	return nil
}
