// Package template models the CloudFormation documents handed to the
// provisioning engine.
package template

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
)

const FormatVersion = "2010-09-09"

const (
	PolicyDelete = "Delete"
	PolicyRetain = "Retain"
)

type Template struct {
	AWSTemplateFormatVersion string              `json:"AWSTemplateFormatVersion" yaml:"AWSTemplateFormatVersion"`
	Description              string              `json:"Description,omitempty" yaml:"Description,omitempty"`
	Resources                map[string]Resource `json:"Resources" yaml:"Resources"`
	Outputs                  map[string]Output   `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

type Resource struct {
	Type                string         `json:"Type" yaml:"Type"`
	Properties          map[string]any `json:"Properties,omitempty" yaml:"Properties,omitempty"`
	DependsOn           []string       `json:"DependsOn,omitempty" yaml:"DependsOn,omitempty"`
	DeletionPolicy      string         `json:"DeletionPolicy,omitempty" yaml:"DeletionPolicy,omitempty"`
	UpdateReplacePolicy string         `json:"UpdateReplacePolicy,omitempty" yaml:"UpdateReplacePolicy,omitempty"`
}

type Output struct {
	Description string `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any    `json:"Value" yaml:"Value"`
}

func New(description string) *Template {
	return &Template{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              description,
		Resources:                make(map[string]Resource),
	}
}

// Add registers a resource under logicalID. Logical ids are unique within a
// template.
func (t *Template) Add(logicalID string, r Resource) error {
	if _, ok := t.Resources[logicalID]; ok {
		return fmt.Errorf("duplicate logical id %q", logicalID)
	}
	t.Resources[logicalID] = r
	return nil
}

func (t *Template) AddOutput(name string, o Output) {
	if t.Outputs == nil {
		t.Outputs = make(map[string]Output)
	}
	t.Outputs[name] = o
}

// ResourcesOfType returns the logical ids of every resource with the given
// type, in lexical order.
func (t *Template) ResourcesOfType(resourceType string) []string {
	ids := make([]string, 0)
	for _, id := range sortedKeys(t.Resources) {
		if t.Resources[id].Type == resourceType {
			ids = append(ids, id)
		}
	}
	return ids
}

// Bytes returns the canonical JSON encoding. Map keys are sorted by
// encoding/json so equal templates always encode identically.
func (t *Template) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (t *Template) YAML() ([]byte, error) {
	// round trip through the canonical JSON form so nested values are plain
	// maps and slices with sorted keys
	b, err := t.Bytes()
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

func (t *Template) Hash() (string, error) {
	b, err := t.Bytes()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Parse reads a template body in either JSON or YAML form.
func Parse(body []byte) (*Template, error) {
	t := new(Template)
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, t); err != nil {
			return nil, fmt.Errorf("parsing json template: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(trimmed, t); err != nil {
			return nil, fmt.Errorf("parsing yaml template: %w", err)
		}
	}
	if t.Resources == nil {
		t.Resources = make(map[string]Resource)
	}
	return t, nil
}

func Ref(logicalID string) map[string]any {
	return map[string]any{"Ref": logicalID}
}

func GetAtt(logicalID, attribute string) map[string]any {
	return map[string]any{"Fn::GetAtt": []string{logicalID, attribute}}
}

func Sub(format string) map[string]any {
	return map[string]any{"Fn::Sub": format}
}
