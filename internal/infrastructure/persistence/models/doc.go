// Package models contains GORM persistence models and their mappings to
// domain entities. Models are kept separate from domain types so schema
// concerns (column types, indexes, conflict targets) never leak into the
// domain layer.
package models
