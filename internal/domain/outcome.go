package domain

// OutcomeStatus is the terminal state of one attempted checkout line.
type OutcomeStatus string

const (
	OutcomeCommitted OutcomeStatus = "committed"
	OutcomeRejected  OutcomeStatus = "rejected"
	OutcomeSkipped   OutcomeStatus = "skipped"
)

// Outcome records what happened to a single cart line during a
// checkout run. A run produces one Outcome per line, in line order.
type Outcome struct {
	SweetID  int64          `json:"sweet_id"`
	Status   OutcomeStatus  `json:"status"`
	Quantity int            `json:"quantity,omitempty"` // units actually purchased, committed only
	Reason   PurchaseReason `json:"reason,omitempty"`   // rejected only
}

func Committed(sweetID int64, quantity int) Outcome {
	return Outcome{SweetID: sweetID, Status: OutcomeCommitted, Quantity: quantity}
}

func Rejected(sweetID int64, reason PurchaseReason) Outcome {
	return Outcome{SweetID: sweetID, Status: OutcomeRejected, Reason: reason}
}

func Skipped(sweetID int64) Outcome {
	return Outcome{SweetID: sweetID, Status: OutcomeSkipped}
}
