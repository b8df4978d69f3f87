package api

import (
	"context"
	"net/http"
	"time"
)

// Bill is a monthly charge issued under a contract.
type Bill struct {
	ID         string     `json:"id"`
	ContractID string     `json:"contract_id"`
	Amount     int64      `json:"amount"`
	DueDate    time.Time  `json:"due_date"`
	Status     string     `json:"status"` // "unpaid", "paid", "overdue"
	PaidAt     *time.Time `json:"paid_at,omitempty"`
}

// ListBills lists bills for the authenticated user.
func (c *Client) ListBills(ctx context.Context) ([]Bill, error) {
	var resp struct {
		Bills []Bill `json:"bills"`
	}
	if err := c.do(ctx, http.MethodGet, "/bills", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Bills, nil
}

// PayBill settles a bill through the backend's payment flow.
func (c *Client) PayBill(ctx context.Context, billID string) (*Bill, error) {
	var resp Bill
	if err := c.do(ctx, http.MethodPost, "/bills/"+billID+"/pay", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
