// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

// Package geo resolves IP addresses to coarse geographic locations.
//
// The risk engine compares login locations across sessions to detect
// improbable travel. Resolution accuracy is intentionally coarse (country
// and city level); no precise coordinates are stored.
package geo

import (
	"context"
	"log/slog"
	"net"
)

// Location is the coarse result of an IP lookup.
type Location struct {
	Country string `json:"country"`
	Region  string `json:"region,omitempty"`
	City    string `json:"city,omitempty"`
}

// Lookup resolves an IP address to a location.
//
// Implementations must tolerate unknown addresses by returning a zero
// Location with a nil error; only transport-level failures are errors.
type Lookup interface {
	Locate(ctx context.Context, ip string) (Location, error)
}

// # Implementations

// NoopLookup classifies addresses as local or unknown without any external
// provider. It is the default when no geo backend is configured, and keeps
// the risk engine's location comparison well-defined.
type NoopLookup struct {
	logger *slog.Logger
}

// NewNoopLookup creates a NoopLookup.
func NewNoopLookup(logger *slog.Logger) *NoopLookup {
	return &NoopLookup{logger: logger}
}

// Locate returns "local" for loopback/private addresses, empty otherwise.
func (lookup *NoopLookup) Locate(_ context.Context, ip string) (Location, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Location{}, nil
	}

	if parsed.IsLoopback() || parsed.IsPrivate() {
		return Location{Country: "local"}, nil
	}

	return Location{}, nil
}
