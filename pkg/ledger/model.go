package ledger

import "time"

// Operation is an immutable record of one committed balance change.
// Amount is in minor currency units, positive for deposits and negative for
// withdrawals. Date is the commit timestamp.
type Operation struct {
	ID      int64
	Account int
	Amount  int64
	Date    time.Time
}
