// Package simgraph loads a device graph — DeviceGraph.json plus its sibling
// ComponentSchema.json and the PhysicsEngine's PartsLibrary.json — into a
// running registry of SimulatedDevice instances wired into a PhysicsEngine.
package simgraph

import (
	"encoding/json"
	"os"

	"github.com/stonegate-lab/stonegate/pkg/device"
	"github.com/stonegate-lab/stonegate/pkg/physics"
	"github.com/stonegate-lab/stonegate/pkg/registry"
)

// Node is one entry in DeviceGraph.json's nodes array.
type Node struct {
	ID    string  `json:"id"`
	Type  string  `json:"type"`
	Label string  `json:"label,omitempty"`
	Part  string  `json:"part,omitempty"`
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`
}

// Edge is one entry in DeviceGraph.json's edges array.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the canonical on-disk device topology.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// ComponentType is one entry in ComponentSchema.json, keyed by device type.
type ComponentType struct {
	Properties []string `json:"properties"`
}

// Schema maps device type name to its metric dictionary.
type Schema map[string]ComponentType

// LoadGraph reads and parses a DeviceGraph.json file.
func LoadGraph(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// LoadSchema reads and parses a ComponentSchema.json file.
func LoadSchema(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads the parts library, device graph, and component schema from the
// given paths, then populates engine and reg: every node becomes a
// SimulatedDevice registered under its id, and every edge is registered
// in the engine. A node whose type is absent from schema still gets a
// SimulatedDevice, just with an empty property list (still polled and
// broadcast, producing an empty measurement).
func Load(graphPath, schemaPath, partsPath string, engine *physics.Engine, reg *registry.Registry) error {
	if err := engine.LoadPartsLibrary(partsPath); err != nil {
		return err
	}

	schema, err := LoadSchema(schemaPath)
	if err != nil {
		return err
	}

	graph, err := LoadGraph(graphPath)
	if err != nil {
		return err
	}

	for _, node := range graph.Nodes {
		partName := node.Part
		if partName == "" {
			partName = node.Type
		}
		part, _ := engine.Part(partName) // zero-value Part if unknown: empty specs

		engine.RegisterNode(node.ID, node.Type, part)

		var properties []string
		if ct, ok := schema[node.Type]; ok {
			properties = ct.Properties
		}

		sim := device.NewSimulatedDevice(node.ID, node.Type, properties, part.Specs, engine)
		reg.Register(sim)
	}

	for _, edge := range graph.Edges {
		engine.RegisterEdge(edge.From, edge.To)
	}

	return nil
}
