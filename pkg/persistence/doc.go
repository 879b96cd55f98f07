// Package persistence stores the durable identity of a device or probe
// as a JSON profile on disk. Stream state and the fill counter are
// deliberately not persisted; only the identity, the display name and
// a completed bond survive a restart.
package persistence
