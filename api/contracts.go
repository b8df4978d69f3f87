package api

import (
	"context"
	"net/http"
	"time"
)

// Contract is a rental agreement between a tenant and a landlord.
type Contract struct {
	ID          string     `json:"id"`
	RoomID      string     `json:"room_id"`
	TenantID    string     `json:"tenant_id"`
	LandlordID  string     `json:"landlord_id"`
	MonthlyRent int64      `json:"monthly_rent"`
	Deposit     int64      `json:"deposit,omitempty"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	Status      string     `json:"status"` // "draft", "pending_signature", "active", "terminated"
	SignedAt    *time.Time `json:"signed_at,omitempty"`
}

// ListContracts lists contracts visible to the authenticated user.
func (c *Client) ListContracts(ctx context.Context) ([]Contract, error) {
	var resp struct {
		Contracts []Contract `json:"contracts"`
	}
	if err := c.do(ctx, http.MethodGet, "/contracts", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Contracts, nil
}

// GetContract fetches a single contract by ID.
func (c *Client) GetContract(ctx context.Context, contractID string) (*Contract, error) {
	var resp Contract
	if err := c.do(ctx, http.MethodGet, "/contracts/"+contractID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SignContract records the authenticated user's signature on a contract.
// Signing is idempotent: re-signing an already signed contract succeeds
// without changing its state.
func (c *Client) SignContract(ctx context.Context, contractID string) (*Contract, error) {
	var resp Contract
	if err := c.do(ctx, http.MethodPost, "/contracts/"+contractID+"/sign", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
