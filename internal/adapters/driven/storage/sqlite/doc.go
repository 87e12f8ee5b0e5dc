// Package sqlite provides a SQLite-backed driven.VectorIndex.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. Vectors are stored as little-endian float32 BLOBs next to their chunk text,
// and queries scan the namespace with brute-force similarity.
//
// # Schema
//
// The schema is managed through versioned migrations stored in the migrations/
// directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.repochat/data/vectors.db
package sqlite
