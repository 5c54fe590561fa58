// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package command

import (
	"strings"

	"github.com/samber/oops"
)

// ParsedCommand is a split command input. Name is the first
// whitespace-delimited token, lowercased; Args keeps internal
// whitespace intact so secrets containing spaces survive.
type ParsedCommand struct {
	Name string
	Args string
}

// Parse splits raw input into command name and arguments.
func Parse(input string) (ParsedCommand, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ParsedCommand{}, oops.Code("EMPTY_INPUT").Errorf("no command provided")
	}

	idx := strings.IndexAny(trimmed, " \t")
	if idx == -1 {
		return ParsedCommand{Name: strings.ToLower(trimmed)}, nil
	}
	return ParsedCommand{
		Name: strings.ToLower(trimmed[:idx]),
		Args: strings.TrimLeft(trimmed[idx+1:], " \t"),
	}, nil
}

// SplitArgs splits an argument string into whitespace-delimited
// fields.
func SplitArgs(args string) []string {
	return strings.Fields(args)
}
