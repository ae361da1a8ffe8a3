package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/zyztek/suna-sub010/internal/convert"
	"github.com/zyztek/suna-sub010/internal/validation"
	"github.com/zyztek/suna-sub010/pkg/schema"
)

// document is a decoded input file: a step list or a graph.
type document struct {
	steps   []schema.Step
	graph   schema.Graph
	isGraph bool
}

func (d document) asGraph() schema.Graph {
	if d.isGraph {
		return d.graph
	}
	return convert.ToGraph(d.steps)
}

func (d document) asSteps() []schema.Step {
	if d.isGraph {
		return convert.ToTree(d.graph.Nodes, d.graph.Edges)
	}
	return d.steps
}

// readInput reads path, or stdin when path is empty or "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// loadDocument reads and decodes a step list (JSON array) or a graph
// (JSON object with nodes and edges). Step lists are checked against the
// step document schema.
func loadDocument(cmd *cobra.Command, args []string) (document, error) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	data, err := readInput(cmd, path)
	if err != nil {
		return document{}, err
	}
	return decodeDocument(data)
}

func decodeDocument(data []byte) (document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return document{}, fmt.Errorf("empty input")
	}

	switch trimmed[0] {
	case '[':
		docs, err := validation.NewDocumentValidator()
		if err != nil {
			return document{}, err
		}
		steps, err := docs.ValidateDocument(trimmed)
		if err != nil {
			return document{}, err
		}
		return document{steps: steps}, nil
	case '{':
		var g schema.Graph
		if err := json.Unmarshal(trimmed, &g); err != nil {
			return document{}, fmt.Errorf("decode graph: %w", err)
		}
		if g.Nodes == nil {
			g.Nodes = []schema.GraphNode{}
		}
		if g.Edges == nil {
			g.Edges = []schema.GraphEdge{}
		}
		return document{graph: g, isGraph: true}, nil
	}
	return document{}, fmt.Errorf("input must be a JSON array of steps or a JSON graph object")
}

// writeOutput writes data to path, or to the command's stdout when path is
// empty or "-".
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeJSON(cmd *cobra.Command, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return writeOutput(cmd, path, append(data, '\n'))
}
