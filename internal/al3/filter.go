package al3

// FilterRenewals selects only transactions whose type code indicates a
// renewal, as opposed to new-business, cancellation, endorsement, or
// reinstatement.
func FilterRenewals(transactions []Transaction) []Transaction {
	var renewals []Transaction
	for _, tx := range transactions {
		if tx.Type.IsRenewal() {
			renewals = append(renewals, tx)
		}
	}
	return renewals
}

// PartitionTransactions separates renewals from all other transaction types
// in one pass, for batches that need non-renewal counts for reporting.
func PartitionTransactions(transactions []Transaction) (renewals, others []Transaction) {
	for _, tx := range transactions {
		if tx.Type.IsRenewal() {
			renewals = append(renewals, tx)
		} else {
			others = append(others, tx)
		}
	}
	return renewals, others
}

// DeduplicateRenewals collapses transactions sharing the same natural key
// (policy number + carrier + effective date). When duplicates conflict on
// content the most recently encountered one wins: later files in an archive
// are carrier-resent corrections and are assumed more authoritative. The
// first-seen position is retained so output order stays deterministic.
// Applying the function to its own output is a no-op.
func DeduplicateRenewals(renewals []Transaction) (unique []Transaction, duplicatesRemoved int) {
	index := make(map[string]int, len(renewals))
	for _, tx := range renewals {
		key := tx.Key()
		if at, seen := index[key]; seen {
			unique[at] = tx // later occurrence replaces in place
			duplicatesRemoved++
			continue
		}
		index[key] = len(unique)
		unique = append(unique, tx)
	}
	return unique, duplicatesRemoved
}
