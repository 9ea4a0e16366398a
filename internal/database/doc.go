// Package database stores the history of audit runs in SQLite.
//
// HistoryDB keeps one row per finished run together with the score of each
// audited page, so the average of a site can be compared across runs. It is
// a log of results, not crawl state: a crawl is never resumed from it.
//
// The database is a single file (sitescore.db) opened with the CGO-free
// modernc.org/sqlite driver in WAL mode.
package database
