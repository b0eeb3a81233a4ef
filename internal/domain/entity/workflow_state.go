package entity

// WorkflowState is the last state the borrow workflow reached. States only
// ever advance by one; there are no branches and no way back.
type WorkflowState int

const (
	StatePending WorkflowState = iota
	StateFunded
	StateApproved
	StateDeposited
	StateSized
	StateBorrowed
	StateApprovedForRepay
	StateRepaid
)

var workflowStateNames = [...]string{
	StatePending:          "pending",
	StateFunded:           "funded",
	StateApproved:         "approved",
	StateDeposited:        "deposited",
	StateSized:            "sized",
	StateBorrowed:         "borrowed",
	StateApprovedForRepay: "approved_for_repay",
	StateRepaid:           "repaid",
}

func (s WorkflowState) String() string {
	if s < 0 || int(s) >= len(workflowStateNames) {
		return "unknown"
	}
	return workflowStateNames[s]
}

// Next returns the successor state. StateRepaid is terminal.
func (s WorkflowState) Next() (WorkflowState, bool) {
	if s >= StateRepaid || s < StatePending {
		return s, false
	}
	return s + 1, true
}

// Terminal reports whether the workflow has completed.
func (s WorkflowState) Terminal() bool {
	return s == StateRepaid
}
