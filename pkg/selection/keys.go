package selection

import (
	"fmt"
	"strings"
)

// Commands understood by Dispatch. Label commands take the label name after
// a colon, e.g. "label:artifact" or "unlabel:orphan".
const (
	CommandLabel   = "label"
	CommandUnlabel = "unlabel"
	CommandLeft    = "left"
	CommandRight   = "right"
	CommandUp      = "up"
	CommandDown    = "down"
)

// DefaultBindings maps keys to commands
func DefaultBindings() map[string]string {
	return map[string]string{
		"d":     "label:artifact",
		"o":     "label:orphan",
		"c":     "unlabel",
		"left":  CommandLeft,
		"right": CommandRight,
		"up":    CommandUp,
		"down":  CommandDown,
	}
}

// ValidateBindings checks that every bound command is known
func ValidateBindings(bindings map[string]string) error {
	for key, command := range bindings {
		if _, _, err := parseCommand(command); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
	}
	return nil
}

func parseCommand(command string) (string, string, error) {
	verb, arg, _ := strings.Cut(command, ":")
	switch verb {
	case CommandLabel:
		if arg == "" {
			return "", "", fmt.Errorf("command %q needs a label name", command)
		}
	case CommandUnlabel, CommandLeft, CommandRight, CommandUp, CommandDown:
	default:
		return "", "", fmt.Errorf("unknown command %q", command)
	}
	return verb, arg, nil
}

// Dispatch runs the command bound to key. Keys are matched case-insensitively.
// It reports whether the key was bound.
func (c *Controller) Dispatch(bindings map[string]string, key string) (bool, error) {
	command, ok := bindings[strings.ToLower(key)]
	if !ok {
		return false, nil
	}
	verb, arg, err := parseCommand(command)
	if err != nil {
		return true, err
	}

	switch verb {
	case CommandLabel:
		c.Label(arg)
	case CommandUnlabel:
		if arg == "" {
			c.Unlabel()
		} else {
			c.Unlabel(arg)
		}
	case CommandLeft:
		c.Move(Left)
	case CommandRight:
		c.Move(Right)
	case CommandUp:
		c.Move(Up)
	case CommandDown:
		c.Move(Down)
	}
	return true, nil
}
