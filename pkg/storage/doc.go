/*
Package storage provides BoltDB-backed document persistence for CityFix.

The storage package implements the Store interface using BoltDB (bbolt) as an
embedded, transactional document store. Every entity is serialized as JSON and
kept in its own bucket, keyed by ID. Secondary lookups go through small index
buckets that map a natural key to a document ID.

# Bucket Structure

	users                (User ID)          → User JSON
	issues               (Issue ID)         → Issue JSON
	notifications        (Notification ID)  → Notification JSON
	messages             (Message ID)       → Message JSON
	payments             (Payment ID)       → Payment JSON
	users_by_email       (lowercase email)  → User ID
	payments_by_session  (checkout session) → Payment ID

Index buckets are maintained inside the same write transaction as the
document they point to. Reindex drops and rebuilds them from the document
buckets, which is what `cityfix db reindex` runs.

# Read-Modify-Write

Updates take a callback instead of a whole document:

	issue, err := store.UpdateIssue(id, func(issue *types.Issue) error {
		if issue.HasUpvoted(userID) {
			return ErrAlreadyUpvoted
		}
		issue.Upvoters = append(issue.Upvoters, userID)
		issue.UpvoteCount++
		return nil
	})

The callback runs inside db.Update, so the load, the check and the write are
a single serialized transaction. Returning an error from the callback rolls
the transaction back and the stored document is left untouched.

# Queries

QueryIssues and CountIssues scan the issues bucket, apply an IssueFilter,
sort by IssueSort and cut an Offset/Limit window.

QueryPartitions reads two disjoint partitions (boosted and regular) from a
single read transaction. It hands both counts to a Plan callback and then
cuts the windows the plan returns, so totals and pages always describe the
same snapshot. The issues package builds its boosted-first pagination on it.

# Errors

Missing documents wrap ErrNotFound, uniqueness violations (duplicate email,
reused checkout session) wrap ErrConflict. Callers test with errors.Is.
*/
package storage
