// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beagle

import (
	log "github.com/sirupsen/logrus"
)

// SetLogLevel parses level (e.g. "info", "debug", "warn") and applies
// it to the package's logger. An empty or invalid level leaves the
// current level unchanged.
func SetLogLevel(level string) {
	if level == "" {
		return
	}
	if lvl, err := log.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	}
}
