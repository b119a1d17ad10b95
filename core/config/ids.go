package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// IDList is a list of Telegram user ids. From the environment it accepts
// values separated by commas or semicolons.
type IDList []int64

// ParseIDList parses "1, 2;3" into an IDList, skipping empty items.
func ParseIDList(raw string) (IDList, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	})
	out := make(IDList, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q: %w", f, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// Decode implements envconfig.Decoder.
func (l *IDList) Decode(value string) error {
	ids, err := ParseIDList(value)
	if err != nil {
		return err
	}
	*l = ids
	return nil
}

// UnmarshalYAML accepts either a sequence of ids or a separated string.
func (l *IDList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var ids []int64
		if err := node.Decode(&ids); err != nil {
			return err
		}
		*l = ids
		return nil
	case yaml.ScalarNode:
		return l.Decode(node.Value)
	default:
		return fmt.Errorf("owner_ids: unsupported yaml node kind %d", node.Kind)
	}
}
