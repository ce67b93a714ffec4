// Package history records download runs in a SQLite database kept in the
// dataset's state directory (.imagenet-dl/history.db).
//
// Schema changes are embedded SQL migrations applied in file name order when
// the store is opened.
package history
