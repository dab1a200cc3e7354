// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package skindl extracts skin bundles from downloaded archives.
//
// Given the raw bytes of a zip, rar or 7z archive and the declared [Format], [Extract]
// returns only the entries whose names end with one of the wanted suffixes (see
// [WantedSuffixes]), keyed by their verbatim in-archive path. Entries that do not match
// are skipped as cheaply as the container format allows.
//
// Some formats need the input staged on disk. Staging and spill files are created in a
// [TempSpace] and removed before [Extract] returns, on success and on error alike.
//
// Configuration is done using the [Config], adjusted with [ConfigOption] functions in
// an option pattern style. Telemetry data is collected for every call and handed to the
// configured [TelemetryHook].
package skindl
