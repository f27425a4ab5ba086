// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package yamledit

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrKeyNotFound is returned when a key path does not exist.
var ErrKeyNotFound = errors.New("key does not exist")

// Document is a parsed YAML file.
type Document struct {
	path string
	root yaml.Node
}

// Load parses the YAML file at path. An empty file loads as an empty
// mapping.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, data)
}

// Parse parses data. path is used for Save and error messages.
func Parse(path string, data []byte) (*Document, error) {
	document := &Document{path: path}
	if err := yaml.Unmarshal(data, &document.root); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if document.root.Kind == 0 {
		document.root = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}
	}
	return document, nil
}

// Path returns the file the document was loaded from.
func (d *Document) Path() string { return d.path }

// Bytes renders the document with two-space indentation.
func (d *Document) Bytes() ([]byte, error) {
	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(2)
	if err := encoder.Encode(&d.root); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// Save writes the document back to its path, keeping the file mode.
func (d *Document) Save() error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(d.path); err == nil {
		mode = info.Mode().Perm()
	}
	return os.WriteFile(d.path, data, mode)
}

// Get returns the node at key.
func (d *Document) Get(key string) (*yaml.Node, error) {
	node := d.body()
	for _, segment := range splitKey(key) {
		child, _ := lookup(node, segment)
		if child == nil {
			return nil, fmt.Errorf("%s: %w", key, ErrKeyNotFound)
		}
		node = child
	}
	return node, nil
}

// Has reports whether key exists.
func (d *Document) Has(key string) bool {
	_, err := d.Get(key)
	return err == nil
}

// Set stores value at key, creating intermediate mappings as needed.
// An existing scalar keeps its style; an existing collection is
// replaced by the scalar.
func (d *Document) Set(key string, value *yaml.Node) error {
	segments := splitKey(key)
	if len(segments) == 0 {
		return errors.New("empty key")
	}
	node := d.body()
	for i, segment := range segments {
		last := i == len(segments)-1
		child, index := lookup(node, segment)
		if child == nil {
			if node.Kind != yaml.MappingNode {
				return fmt.Errorf("%s: cannot add key %q to a %s", key, segment, kindName(node))
			}
			if last {
				child = value
			} else {
				child = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			}
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: segment}, child)
			node = child
			continue
		}
		if last {
			if child.Kind == yaml.ScalarNode && value.Kind == yaml.ScalarNode {
				if value.Style == 0 {
					value.Style = child.Style
				}
				value.HeadComment = child.HeadComment
				value.LineComment = child.LineComment
				value.FootComment = child.FootComment
			}
			switch node.Kind {
			case yaml.MappingNode:
				node.Content[index+1] = value
			case yaml.SequenceNode:
				node.Content[index] = value
			}
			return nil
		}
		node = child
	}
	return nil
}

// Unset removes key.
func (d *Document) Unset(key string) error {
	parent, segment, err := d.parentOf(key)
	if err != nil {
		return err
	}
	child, index := lookup(parent, segment)
	if child == nil {
		return fmt.Errorf("%s: %w", key, ErrKeyNotFound)
	}
	switch parent.Kind {
	case yaml.MappingNode:
		parent.Content = append(parent.Content[:index], parent.Content[index+2:]...)
	case yaml.SequenceNode:
		parent.Content = append(parent.Content[:index], parent.Content[index+1:]...)
	}
	return nil
}

// Rename moves the value at key to newKey. newKey must not exist.
func (d *Document) Rename(key, newKey string) error {
	value, err := d.Get(key)
	if err != nil {
		return err
	}
	if d.Has(newKey) {
		return fmt.Errorf("the key %q already exists", newKey)
	}

	// A rename within the same mapping keeps the entry's position.
	oldParent, oldSegment, err := d.parentOf(key)
	if err != nil {
		return err
	}
	newParentKey, newSegment := splitParent(newKey)
	oldParentKey, _ := splitParent(key)
	if newParentKey == oldParentKey && oldParent.Kind == yaml.MappingNode {
		_, index := lookup(oldParent, oldSegment)
		oldParent.Content[index].Value = newSegment
		return nil
	}

	if err := d.Set(newKey, value); err != nil {
		return err
	}
	return d.Unset(key)
}

// body returns the top-level node under the document node.
func (d *Document) body() *yaml.Node {
	if d.root.Kind == yaml.DocumentNode && len(d.root.Content) > 0 {
		return d.root.Content[0]
	}
	return &d.root
}

func (d *Document) parentOf(key string) (*yaml.Node, string, error) {
	parentKey, segment := splitParent(key)
	if segment == "" {
		return nil, "", errors.New("empty key")
	}
	if parentKey == "" {
		return d.body(), segment, nil
	}
	parent, err := d.Get(parentKey)
	if err != nil {
		return nil, "", err
	}
	return parent, segment, nil
}

// lookup finds segment in a mapping (by key) or a sequence (by index).
// The returned index is the key's position in a mapping's Content or
// the element's position in a sequence.
func lookup(node *yaml.Node, segment string) (*yaml.Node, int) {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == segment {
				return node.Content[i+1], i
			}
		}
	case yaml.SequenceNode:
		index, err := strconv.Atoi(segment)
		if err == nil && index >= 0 && index < len(node.Content) {
			return node.Content[index], index
		}
	}
	return nil, -1
}

func splitKey(key string) []string {
	key = strings.Trim(key, ".")
	if key == "" {
		return nil
	}
	return strings.Split(key, ".")
}

func splitParent(key string) (string, string) {
	key = strings.Trim(key, ".")
	if index := strings.LastIndexByte(key, '.'); index >= 0 {
		return key[:index], key[index+1:]
	}
	return "", key
}

func kindName(node *yaml.Node) string {
	switch node.Kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "mapping"
}

// ScalarNode builds a node for a command-line value. typ forces a tag
// ("string", "int", "float", "bool", "null"); empty lets YAML resolve
// the plain scalar as it would in a file.
func ScalarNode(value, typ string) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.ScalarNode, Value: value}
	switch typ {
	case "":
		var resolved yaml.Node
		if err := yaml.Unmarshal([]byte(value), &resolved); err == nil && len(resolved.Content) == 1 && resolved.Content[0].Kind == yaml.ScalarNode {
			node.Tag = resolved.Content[0].Tag
		} else {
			node.Tag = "!!str"
		}
	case "string":
		node.Tag = "!!str"
		node.Style = yaml.DoubleQuotedStyle
	case "int":
		if _, err := strconv.ParseInt(value, 0, 64); err != nil {
			return nil, fmt.Errorf("%q is not an integer", value)
		}
		node.Tag = "!!int"
	case "float":
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return nil, fmt.Errorf("%q is not a float", value)
		}
		node.Tag = "!!float"
	case "bool":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", value)
		}
		node.Tag = "!!bool"
		node.Value = strconv.FormatBool(parsed)
	case "null":
		node.Tag = "!!null"
		node.Value = "null"
	default:
		return nil, fmt.Errorf("unknown value type %q (want string, int, float, bool or null)", typ)
	}
	return node, nil
}
