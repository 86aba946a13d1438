// package tasks implements the catalog sync reconciler.
//
// The core type is CatalogEngine, which pulls a user's saved albums from
// Spotify page by page and reconciles them into the local catalog. Sync is
// idempotent: albums already present keep their rank and hidden flag while
// their metadata is refreshed, and new albums are appended unranked behind
// everything the user has ordered.
//
// Long-running operations emit [ProgressUpdate] values through an optional
// channel so CLI and UI layers can display status without blocking the sync.
package tasks
