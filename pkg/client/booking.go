package client

import (
	"context"
	"fmt"
	"net/url"

	"campusbook/pkg/model"
)

type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(httpClient *HttpClient) *BookingClient {
	return &BookingClient{
		httpClient: httpClient,
	}
}

func bookingPath(id string) string {
	return "/bookings/" + url.PathEscape(id)
}

func (c *BookingClient) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	resp, err := c.httpClient.GET(ctx, bookingPath(id))
	if err != nil {
		return nil, err
	}
	return c.DecodeBooking(resp)
}

func (c *BookingClient) GetMine(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("offset", fmt.Sprintf("%d", offset))

	resp, err := c.httpClient.GET(ctx, "/bookings/my-bookings?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var bookings []*model.Booking
	if err := DecodeData(resp, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (c *BookingClient) CheckIn(ctx context.Context, id string) (*model.Booking, error) {
	resp, err := c.httpClient.POST(ctx, bookingPath(id)+"/check-in", struct{}{})
	if err != nil {
		return nil, err
	}
	return c.DecodeBooking(resp)
}

func (c *BookingClient) CheckOut(ctx context.Context, id string) (*model.Booking, error) {
	resp, err := c.httpClient.POST(ctx, bookingPath(id)+"/check-out", struct{}{})
	if err != nil {
		return nil, err
	}
	return c.DecodeBooking(resp)
}

func (c *BookingClient) DecodeBooking(resp *Response) (*model.Booking, error) {
	var booking model.Booking
	if err := DecodeData(resp, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}
