// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import "strings"

// envKeyMappings maps an environment variable's suffix (after the
// CARTOGRAPHUS_ prefix and lowercasing) to its koanf dotted path, the same
// explicit-table approach the teacher's own envTransformFunc uses rather
// than an algorithmic underscore-to-dot rewrite, since several of our
// fields (graceful_timeout, max_retries) are themselves multi-word.
var envKeyMappings = map[string]string{
	"nats_url": "nats_url",

	"supervisor_unit_dir":              "supervisor.unit_dir",
	"supervisor_max_retries":           "supervisor.max_retries",
	"supervisor_graceful_timeout":      "supervisor.graceful_timeout",
	"supervisor_settings_warmup_delay": "supervisor.settings_warmup_delay",
	"supervisor_monitor_interval":      "supervisor.monitor_interval",
	"supervisor_settings_service_name": "supervisor.settings_service_name",

	"settings_dir":  "settings.dir",
	"settings_file": "settings.file",

	"runtime_get_settings_timeout": "runtime.get_settings_timeout",
	"runtime_retry_interval":       "runtime.retry_interval",
	"runtime_request_timeout":      "runtime.request_timeout",

	"logging_level":  "logging.level",
	"logging_format": "logging.format",

	"ops_enabled": "ops.enabled",
	"ops_addr":    "ops.addr",
}

// koanfPath transforms an environment variable name (already carrying the
// CARTOGRAPHUS_ prefix, per env.Provider's prefix argument) into its koanf
// dotted path. Unrecognized variables map to the empty string, which
// env.Provider treats as "ignore this key" — an operator typo in an env
// var name is silently dropped rather than injecting an unknown field.
func koanfPath(key string) string {
	trimmed := strings.TrimPrefix(key, "CARTOGRAPHUS_")
	lower := strings.ToLower(trimmed)
	if path, ok := envKeyMappings[lower]; ok {
		return path
	}
	return ""
}
