package domain

import "time"

type StepName string

const (
	StepCreated    StepName = "created"
	StepProcessing StepName = "processing"
	StepPackaged   StepName = "packaged"
	StepShipped    StepName = "shipped"
	StepDelivered  StepName = "delivered"
	StepCompleted  StepName = "completed"
)

// StepSequence is the fixed fulfillment order. Steps materialize strictly as
// a prefix of this sequence.
var StepSequence = []StepName{
	StepCreated,
	StepProcessing,
	StepPackaged,
	StepShipped,
	StepDelivered,
	StepCompleted,
}

// NextStep returns the successor of a step, or false for the terminal step
// and for names outside the sequence.
func NextStep(name StepName) (StepName, bool) {
	for i, s := range StepSequence {
		if s == name {
			if i+1 < len(StepSequence) {
				return StepSequence[i+1], true
			}
			return "", false
		}
	}
	return "", false
}

type OrderStep struct {
	ID        int64     `db:"id" json:"id"`
	OrderID   string    `db:"order_id" json:"order_id"`
	Name      StepName  `db:"step_name" json:"step_name"`
	Completed bool      `db:"completed" json:"completed"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// OrderChecklist tracks packaging work for one order. Completed is asserted
// by staff through the API, never derived from the children.
type OrderChecklist struct {
	ID        int64                `db:"id" json:"id"`
	OrderID   string               `db:"order_id" json:"order_id"`
	Task      string               `db:"task" json:"task"`
	Completed bool                 `db:"completed" json:"completed"`
	Items     []OrderItemChecklist `json:"item_checklists"`
}

type OrderItemChecklist struct {
	ID                int64 `db:"id" json:"id"`
	ChecklistID       int64 `db:"checklist_id" json:"checklist_id"`
	OrderItemID       int64 `db:"order_item_id" json:"order_item_id"`
	Packaged          bool  `db:"packaged" json:"packaged"`
	CustomerConfirmed bool  `db:"customer_confirmed" json:"customer_confirmed"`
}

// Done reports whether both packaging flags are set for this line.
func (c OrderItemChecklist) Done() bool {
	return c.Packaged && c.CustomerConfirmed
}

// Done requires the checklist's own flag plus every child line. A checklist
// with no lines is never done.
func (c OrderChecklist) Done() bool {
	if len(c.Items) == 0 {
		return false
	}
	for _, item := range c.Items {
		if !item.Done() {
			return false
		}
	}
	return c.Completed
}
