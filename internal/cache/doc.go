// Package cache defines the flat disk store that maps remote resource URLs to
// <StoragePath>/<AppID>/<segment>[-<id>] files. The store resolves cache paths
// (recreating the directory on every resolve), reports hits by plain file
// existence, and owns the write path so that fetched bytes are persisted by
// the same component that computes their location. Writes go through a
// pending file + fsync + rename, readers never observe half-written entries.
package cache
