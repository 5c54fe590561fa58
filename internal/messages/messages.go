// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package messages renders the player-facing text catalog. Operators
// override individual entries in a yaml file; anything not overridden
// falls back to the built-in default, so a partial file is always
// safe.
package messages

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
)

// Catalog paths.
const (
	PathWelcome           = "welcome"
	PathTimeout           = "timeout"
	PathLoggedIn          = "logged_in"
	PathLoginAnnouncement = "login_announcement"
	PathAlreadyLoggedIn   = "already_logged_in"
	PathWrongPassword     = "wrong_password"
	PathNotRegistered     = "not_registered"
	PathAlreadyRegistered = "already_registered"
	PathRegistered        = "registered"
	PathPasswordsMismatch = "passwords_mismatch"
	PathUnregistered      = "unregistered"
	PathSet               = "set"
	PathReload            = "reload"
	PathStoreUnavailable  = "store_unavailable"
	PathUsageLogin        = "usage_login"
	PathUsageRegister     = "usage_register"
	PathUpdateAvailable   = "update_available"
)

// defaults is the built-in catalog. Placeholders use {name} syntax.
var defaults = map[string]interface{}{
	PathWelcome:           "Welcome! Please log in with /login <password> or register with /register <password> <password>.",
	PathTimeout:           "You took too long to log in.",
	PathLoggedIn:          "You have logged in successfully.",
	PathLoginAnnouncement: "{player} has joined the game.",
	PathAlreadyLoggedIn:   "You are already logged in.",
	PathWrongPassword:     "Incorrect password.",
	PathNotRegistered:     "You are not registered. Use /register <password> <password>.",
	PathAlreadyRegistered: "You are already registered. Use /login <password>.",
	PathRegistered:        "Registration complete, you are now logged in.",
	PathPasswordsMismatch: "Passwords do not match.",
	PathUnregistered:      "Account {player} has been unregistered.",
	PathSet:               "Location \"{name}\" saved.",
	PathReload:            "Configuration reloaded.",
	PathStoreUnavailable:  "Authentication is temporarily unavailable, please try again shortly.",
	PathUsageLogin:        "Usage: /login <password>",
	PathUsageRegister:     "Usage: /register <password> <password>",
	PathUpdateAvailable:   "A new version is available: {version} (running {current}).",
}

// Renderer resolves catalog paths to player-facing text.
type Renderer interface {
	// Render returns the message at path with {placeholder} tokens
	// substituted from args. Unknown paths render a visible marker
	// instead of silently vanishing.
	Render(path string, args map[string]string) string
}

// Catalog is a Renderer backed by the built-in defaults plus an
// optional yaml override file.
type Catalog struct {
	k *koanf.Koanf
}

// Load builds a catalog. path may be empty (defaults only); a missing
// file is not an error, a malformed one is.
func Load(path string) (*Catalog, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, oops.Code("MESSAGES_DEFAULTS_FAILED").Wrap(err)
	}

	if path != "" {
		_, statErr := os.Stat(path)
		switch {
		case errors.Is(statErr, fs.ErrNotExist):
			// defaults only
		case statErr != nil:
			return nil, oops.Code("MESSAGES_LOAD_FAILED").
				With("path", path).
				Wrap(statErr)
		default:
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, oops.Code("MESSAGES_LOAD_FAILED").
					With("path", path).
					Wrap(err)
			}
		}
	}
	return &Catalog{k: k}, nil
}

// Render returns the message at path with placeholders substituted.
func (c *Catalog) Render(path string, args map[string]string) string {
	text := c.k.String(path)
	if text == "" {
		return "<missing message: " + path + ">"
	}
	for name, value := range args {
		text = strings.ReplaceAll(text, "{"+name+"}", value)
	}
	return text
}

// Compile-time interface check.
var _ Renderer = (*Catalog)(nil)
