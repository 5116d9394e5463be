// Package search finds fingerprint pairs within a distance threshold.
//
// Exhaustive compares every unordered pair. Bucketed compares only pairs
// inside one bucket and pairs straddling two adjacent buckets, so its output
// is a subset of Exhaustive's. Both grow their output through pairbuf and
// charge it to the shared memory budget.
package search
