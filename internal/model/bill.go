package model

import (
	"fmt"
	"time"

	"github.com/dukerupert/homequest/internal/docstore"
)

// Bill payment statuses.
const (
	BillPending = "pending"
	BillPaid    = "paid"
	BillOverdue = "overdue"
)

// Bill is a recurring or one-off household obligation.
type Bill struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Amount    float64   `json:"amount"`
	DueDate   string    `json:"dueDate"`
	Status    string    `json:"status"`
	Category  string    `json:"category"`
	Recurring bool      `json:"recurring"`
	OwnerID   string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// ValidBillStatus reports whether s is a known bill status.
func ValidBillStatus(s string) bool {
	return s == BillPending || s == BillPaid || s == BillOverdue
}

// DecodeBill validates and decodes a bill document. An unknown status is
// silently corrected to pending.
func DecodeBill(doc docstore.Document) (Bill, error) {
	f := doc.Fields

	name, ok := stringField(f, "name")
	if !ok || name == "" {
		return Bill{}, fmt.Errorf("bill %s: missing name", doc.ID)
	}
	amount, ok := floatField(f, "amount")
	if !ok {
		return Bill{}, fmt.Errorf("bill %s: amount is not a number", doc.ID)
	}

	b := Bill{
		ID:        doc.ID,
		Name:      name,
		Amount:    amount,
		Recurring: boolField(f, "recurring"),
		OwnerID:   doc.Owner,
		CreatedAt: doc.CreatedAt,
	}
	b.DueDate, _ = stringField(f, "dueDate")
	b.Category, _ = stringField(f, "category")
	if b.Status, _ = stringField(f, "status"); !ValidBillStatus(b.Status) {
		b.Status = BillPending
	}
	return b, nil
}

// Fields encodes the bill as a store document body.
func (b Bill) Fields() map[string]any {
	return map[string]any{
		"name":      b.Name,
		"amount":    b.Amount,
		"dueDate":   b.DueDate,
		"status":    b.Status,
		"category":  b.Category,
		"recurring": b.Recurring,
		"userId":    b.OwnerID,
	}
}
