// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/gomlx/structext/pkg/support/fsutil"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ApplySettings overrides values of cfg from settings, typically the contents of a "-set" flag.
//
// The settings are a list separated by ";": e.g.: "dataset.batch_size=4;schedule.name=polynomial".
// Keys are the YAML names of the fields, separated by ".", and list elements are indexed by
// their position, e.g.: "transforms.0.params.size=1024".
// List values are separated by ",", e.g.: "optimizer.skip_decay=pos_embed,cls_token".
//
// For integer fields, "_" is removed: it allows one to enter large numbers using it as a separator, like
// in Go. E.g.: 1_000_000 = 1000000.
//
// A setting "file:<path>" reads the settings from the file, one or more per line. Empty lines and
// lines starting with "#" are ignored.
//
// It returns the list of keys set. cfg is only modified if all settings are valid.
func ApplySettings(cfg *Config, settings string) (keysSet []string, err error) {
	var doc yaml.Node
	if err = doc.Encode(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to encode configuration")
	}
	keysSet, err = applySettings(&doc, settings, nil)
	if err != nil {
		return nil, err
	}
	newCfg := &Config{}
	if err = doc.Decode(newCfg); err != nil {
		return nil, errors.Wrapf(err, "failed to apply settings %q", settings)
	}
	if err = newCfg.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "after applying settings %q", settings)
	}
	*cfg = *newCfg
	return keysSet, nil
}

func applySettings(doc *yaml.Node, settings string, keysSet []string) ([]string, error) {
	var err error
	for _, setting := range strings.Split(settings, ";") {
		keysSet, err = applySetting(doc, strings.TrimSpace(setting), keysSet)
		if err != nil {
			return nil, err
		}
	}
	return keysSet, nil
}

func applySetting(doc *yaml.Node, setting string, keysSet []string) ([]string, error) {
	if setting == "" {
		return keysSet, nil
	}
	if filePath, found := strings.CutPrefix(setting, "file:"); found {
		filePath, err := fsutil.ReplaceTildeInDir(filePath)
		if err != nil {
			return nil, err
		}
		contents, err := os.ReadFile(filePath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read settings from file %q", filePath)
		}
		for _, line := range strings.Split(string(contents), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			keysSet, err = applySettings(doc, line, keysSet)
			if err != nil {
				return nil, errors.WithMessagef(err, "in settings file %q", filePath)
			}
		}
		return keysSet, nil
	}

	key, value, found := strings.Cut(setting, "=")
	if !found {
		return nil, errors.Errorf("can't parse setting %q: each setting requires the format \"<key>=<value>\"", setting)
	}
	key = strings.TrimSpace(key)
	node, err := lookup(doc, key)
	if err != nil {
		return nil, err
	}
	if err = setValue(node, strings.TrimSpace(value)); err != nil {
		return nil, errors.WithMessagef(err, "setting %q", key)
	}
	return append(keysSet, key), nil
}

// lookup the node for the dotted key.
func lookup(doc *yaml.Node, key string) (*yaml.Node, error) {
	node := doc
	if node.Kind == yaml.DocumentNode {
		node = node.Content[0]
	}
	for _, part := range strings.Split(key, ".") {
		switch node.Kind {
		case yaml.MappingNode:
			var next *yaml.Node
			for i := 0; i+1 < len(node.Content); i += 2 {
				if node.Content[i].Value == part {
					next = node.Content[i+1]
					break
				}
			}
			if next == nil {
				return nil, errors.Errorf("unknown setting %q: %q not found", key, part)
			}
			node = next
		case yaml.SequenceNode:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node.Content) {
				return nil, errors.Errorf("unknown setting %q: invalid index %q for a list of %d elements",
					key, part, len(node.Content))
			}
			node = node.Content[idx]
		default:
			return nil, errors.Errorf("unknown setting %q: %q is not a section or a list", key, part)
		}
	}
	return node, nil
}

// setValue replaces the contents of a scalar or sequence node. The YAML tags are
// resolved again when the document is decoded, except for strings that are kept as strings.
func setValue(node *yaml.Node, value string) error {
	switch node.Kind {
	case yaml.ScalarNode:
		setScalar(node, node.Tag, value)
	case yaml.SequenceNode:
		elementTag := ""
		if len(node.Content) > 0 {
			elementTag = node.Content[0].Tag
		}
		var content []*yaml.Node
		if value != "" {
			for _, part := range strings.Split(value, ",") {
				element := &yaml.Node{Kind: yaml.ScalarNode}
				setScalar(element, elementTag, strings.TrimSpace(part))
				content = append(content, element)
			}
		}
		node.Content = content
		node.Style = yaml.FlowStyle
	default:
		return errors.New("only single values or lists of values can be set")
	}
	return nil
}

func setScalar(node *yaml.Node, tag, value string) {
	node.Style = 0
	switch tag {
	case "!!str":
		node.Tag = tag
	case "!!int":
		value = strings.ReplaceAll(value, "_", "")
		node.Tag = ""
	default:
		node.Tag = ""
	}
	node.Value = value
}

// Lookup returns the value of the dotted key in cfg, as it would be given in a setting.
// Lists are joined with ",".
func Lookup(cfg *Config, key string) (string, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return "", errors.Wrap(err, "failed to encode configuration")
	}
	node, err := lookup(&doc, key)
	if err != nil {
		return "", err
	}
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Value, nil
	case yaml.SequenceNode:
		parts := make([]string, 0, len(node.Content))
		for _, element := range node.Content {
			if element.Kind != yaml.ScalarNode {
				return "", errors.Errorf("setting %q is not a list of values", key)
			}
			parts = append(parts, element.Value)
		}
		return strings.Join(parts, ","), nil
	}
	return "", errors.Errorf("setting %q is not a single value or a list of values", key)
}
