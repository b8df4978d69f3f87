package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Room is a rentable listing.
type Room struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	City        string    `json:"city"`
	Address     string    `json:"address,omitempty"`
	Price       int64     `json:"price"` // monthly rent, minor currency units
	Area        float64   `json:"area,omitempty"`
	LandlordID  string    `json:"landlord_id"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoomFilter narrows a room listing query. Zero values are omitted.
type RoomFilter struct {
	City          string
	MinPrice      int64
	MaxPrice      int64
	AvailableOnly bool
}

// RoomsResponse is the response from listing rooms.
type RoomsResponse struct {
	Rooms []Room `json:"rooms"`
	Total int    `json:"total"`
}

// ListRooms lists rooms matching the filter.
func (c *Client) ListRooms(ctx context.Context, filter RoomFilter) (*RoomsResponse, error) {
	q := url.Values{}
	if filter.City != "" {
		q.Set("city", filter.City)
	}
	if filter.MinPrice > 0 {
		q.Set("min_price", strconv.FormatInt(filter.MinPrice, 10))
	}
	if filter.MaxPrice > 0 {
		q.Set("max_price", strconv.FormatInt(filter.MaxPrice, 10))
	}
	if filter.AvailableOnly {
		q.Set("available", "true")
	}

	path := "/rooms"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp RoomsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetRoom fetches a single room by ID.
func (c *Client) GetRoom(ctx context.Context, roomID string) (*Room, error) {
	var resp Room
	if err := c.do(ctx, http.MethodGet, "/rooms/"+roomID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Booking is a tenant's reservation of a room.
type Booking struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	TenantID  string    `json:"tenant_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Status    string    `json:"status"` // "pending", "confirmed", "cancelled"
	CreatedAt time.Time `json:"created_at"`
}

// BookRoomRequest is the request body for booking a room.
type BookRoomRequest struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// BookRoom requests a booking for the given dates.
func (c *Client) BookRoom(ctx context.Context, roomID string, start, end time.Time) (*Booking, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("booking end %s is not after start %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}

	var resp Booking
	req := BookRoomRequest{StartDate: start, EndDate: end}
	if err := c.do(ctx, http.MethodPost, "/rooms/"+roomID+"/book", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListBookings lists the authenticated user's bookings.
func (c *Client) ListBookings(ctx context.Context) ([]Booking, error) {
	var resp struct {
		Bookings []Booking `json:"bookings"`
	}
	if err := c.do(ctx, http.MethodGet, "/bookings", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Bookings, nil
}
