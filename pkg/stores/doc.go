// Package stores provides run history persistence for OpenLRO.
// It includes SQLite-based storage with WAL mode, connection pooling,
// and CRUD operations for resolved runs and their phase transitions,
// plus a Recorder that bridges the orchestrator's observer hook to the store.
package stores
