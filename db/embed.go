// Package db embeds the PostgreSQL schema.
package db

import _ "embed"

// Schema holds idempotent DDL for every table.
//
//go:embed migrations/001_schema.sql
var Schema string
