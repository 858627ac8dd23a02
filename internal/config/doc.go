// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config provides configuration management for amgplay.
//
// Precedence is defaults < YAML file < environment (AMG_*) < CLI flags.
// CLI flags are applied by cmd/amgplay after Load returns.
package config
