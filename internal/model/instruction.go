package model

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// CategoryID identifies a node in the WordNet hierarchy (a WNID such as
// "n02084071"). It is used both as an API lookup key and as the stem of the
// archive filename.
type CategoryID string

// String returns the raw identifier.
func (id CategoryID) String() string {
	return string(id)
}

// Instruction describes one dataset class to build.
//
// Example:
//
//	{"label": "dog", "wnid": "n02084071", "recursive": true}
type Instruction struct {
	// Label is the class name. It becomes a directory segment under the
	// tar, train and validation directories.
	Label string `json:"label"`

	// RootID is the synset to start from.
	RootID CategoryID `json:"wnid"`

	// Recursive expands RootID into its full hyponym list instead of
	// downloading RootID alone.
	Recursive bool `json:"recursive"`
}

// Validate reports whether the instruction can be processed.
func (i Instruction) Validate() error {
	if strings.TrimSpace(i.Label) == "" {
		return fmt.Errorf("label is required")
	}
	if SanitizeLabel(i.Label) == "" {
		return fmt.Errorf("label %q has no usable characters", i.Label)
	}
	if strings.TrimSpace(string(i.RootID)) == "" {
		return fmt.Errorf("wnid is required")
	}
	return nil
}

// Manifest is the persisted list of instructions used for unattended runs.
type Manifest struct {
	Instructions []Instruction `json:"instructions"`
}

// LoadManifest reads instructions from a JSON file.
//
// Both an object with an "instructions" array and a bare array are accepted:
//
//	{"instructions": [{"label": "dog", "wnid": "n02084071", "recursive": true}]}
//	[{"label": "cat", "wnid": "n02121808"}]
//
// Every entry is validated; the error names the offending entry index.
func LoadManifest(path string) ([]Instruction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes manifest JSON. See LoadManifest for the accepted shapes.
func ParseManifest(data []byte) ([]Instruction, error) {
	trimmed := strings.TrimSpace(string(data))

	var instructions []Instruction
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &instructions); err != nil {
			return nil, fmt.Errorf("parse manifest: %w", err)
		}
	} else {
		var m Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse manifest: %w", err)
		}
		instructions = m.Instructions
	}

	if len(instructions) == 0 {
		return nil, fmt.Errorf("manifest contains no instructions")
	}

	for idx := range instructions {
		instructions[idx].Label = strings.TrimSpace(instructions[idx].Label)
		instructions[idx].RootID = CategoryID(strings.TrimSpace(string(instructions[idx].RootID)))
		if err := instructions[idx].Validate(); err != nil {
			return nil, fmt.Errorf("manifest entry %d: %w", idx, err)
		}
	}

	return instructions, nil
}

// ExpandInstructions builds one instruction per WNID in a comma-separated
// list, all sharing the same label.
//
// Example:
//
//	ExpandInstructions("dog", "n02084071, n02085374", true)
//	// [{dog n02084071 true} {dog n02085374 true}]
func ExpandInstructions(label, wnids string, recursive bool) ([]Instruction, error) {
	label = strings.TrimSpace(label)

	var instructions []Instruction
	for _, part := range strings.Split(wnids, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		ins := Instruction{Label: label, RootID: CategoryID(id), Recursive: recursive}
		if err := ins.Validate(); err != nil {
			return nil, err
		}
		instructions = append(instructions, ins)
	}

	if len(instructions) == 0 {
		return nil, fmt.Errorf("missing parent WNID(s)")
	}
	return instructions, nil
}
