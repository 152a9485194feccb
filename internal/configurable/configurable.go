// Package configurable models the tree of settings panels that option
// queries resolve to.
package configurable

import "strings"

// Configurable is one settings panel. A configurable with children is
// composite; path queries descend into it.
type Configurable struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	Children    []*Configurable `json:"children,omitempty"`
}

func (c *Configurable) IsComposite() bool {
	return len(c.Children) > 0
}

// Flatten returns every configurable of the forest in pre-order. A node
// reachable twice is returned once.
func Flatten(roots []*Configurable) []*Configurable {
	var out []*Configurable
	seen := make(map[*Configurable]struct{})
	var walk func([]*Configurable)
	walk = func(nodes []*Configurable) {
		for _, c := range nodes {
			if c == nil {
				continue
			}
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
			walk(c.Children)
		}
	}
	walk(roots)
	return out
}

// Find returns the first configurable in pre-order whose id equals id.
func Find(roots []*Configurable, id string) *Configurable {
	for _, c := range Flatten(roots) {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// FindByName returns the configurable among nodes whose display name equals
// name ignoring case.
func FindByName(nodes []*Configurable, name string) *Configurable {
	for _, c := range nodes {
		if c != nil && strings.EqualFold(c.DisplayName, name) {
			return c
		}
	}
	return nil
}

// IDs returns the ids of list in order.
func IDs(list []*Configurable) []string {
	ids := make([]string, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	return ids
}
