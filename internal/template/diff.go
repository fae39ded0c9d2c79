package template

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"
)

type ChangeAction string

const (
	ChangeAdd     ChangeAction = "add"
	ChangeRemove  ChangeAction = "remove"
	ChangeModify  ChangeAction = "modify"
	ChangeReplace ChangeAction = "replace"
)

type Change struct {
	LogicalID string       `json:"logical_id"`
	Type      string       `json:"type"`
	Action    ChangeAction `json:"action"`
	// Top level properties or attributes that differ, for modify and replace.
	Fields []string `json:"fields,omitempty"`
}

func (c Change) String() string {
	var prefix string
	switch c.Action {
	case ChangeAdd:
		prefix = "[+]"
	case ChangeRemove:
		prefix = "[-]"
	case ChangeReplace:
		prefix = "[!]"
	default:
		prefix = "[~]"
	}
	s := fmt.Sprintf("%s %s %s", prefix, c.Type, c.LogicalID)
	if len(c.Fields) > 0 {
		s += " (" + strings.Join(c.Fields, ", ") + ")"
	}
	return s
}

// Diff compares two templates at resource granularity. A nil old template is
// treated as empty. Changes are ordered by logical id.
func Diff(old, new *Template) []Change {
	oldResources := map[string]Resource{}
	newResources := map[string]Resource{}
	if old != nil {
		oldResources = normalize(old.Resources)
	}
	if new != nil {
		newResources = normalize(new.Resources)
	}

	ids := make([]string, 0, len(oldResources)+len(newResources))
	for id := range oldResources {
		ids = append(ids, id)
	}
	for id := range newResources {
		if _, ok := oldResources[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	changes := make([]Change, 0)
	for _, id := range ids {
		o, inOld := oldResources[id]
		n, inNew := newResources[id]
		switch {
		case !inOld:
			changes = append(changes, Change{LogicalID: id, Type: n.Type, Action: ChangeAdd})
		case !inNew:
			changes = append(changes, Change{LogicalID: id, Type: o.Type, Action: ChangeRemove})
		case o.Type != n.Type:
			changes = append(changes, Change{
				LogicalID: id,
				Type:      n.Type,
				Action:    ChangeReplace,
				Fields:    []string{"Type"},
			})
		default:
			if fields := changedFields(o, n); len(fields) > 0 {
				changes = append(changes, Change{
					LogicalID: id,
					Type:      n.Type,
					Action:    ChangeModify,
					Fields:    fields,
				})
			}
		}
	}
	return changes
}

func changedFields(o, n Resource) []string {
	fields := make([]string, 0)
	keys := sortedKeys(o.Properties)
	for _, k := range sortedKeys(n.Properties) {
		if _, ok := o.Properties[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !reflect.DeepEqual(o.Properties[k], n.Properties[k]) {
			fields = append(fields, k)
		}
	}
	if !slices.Equal(o.DependsOn, n.DependsOn) {
		fields = append(fields, "DependsOn")
	}
	if o.DeletionPolicy != n.DeletionPolicy {
		fields = append(fields, "DeletionPolicy")
	}
	if o.UpdateReplacePolicy != n.UpdateReplacePolicy {
		fields = append(fields, "UpdateReplacePolicy")
	}
	return fields
}

// normalize round trips properties through JSON so values built in Go
// (typed slices, structs) compare equal to values parsed from a template body.
func normalize(resources map[string]Resource) map[string]Resource {
	out := make(map[string]Resource, len(resources))
	for id, r := range resources {
		if r.Properties != nil {
			b, err := json.Marshal(r.Properties)
			if err == nil {
				var props map[string]any
				if err := json.Unmarshal(b, &props); err == nil {
					r.Properties = props
				}
			}
		}
		out[id] = r
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
