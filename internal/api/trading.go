package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/rickgao/empire-bidder/internal/model"
)

// GetActiveAuctions fetches the auctions the account is currently bidding on.
func (c *Client) GetActiveAuctions(ctx context.Context) ([]model.Auction, error) {
	var resp ActiveAuctionsResponse
	if err := c.get(ctx, "/trading/user/auctions", nil, &resp); err != nil {
		return nil, fmt.Errorf("get active auctions: %w", err)
	}

	return AuctionsToModel(resp.ActiveAuctions), nil
}

// PlaceBid places a single bid of value on a deposit. It is never retried:
// the caller decides what to do with a rejection.
//
// A rejection with a decodable body is returned as a BidResponse with
// Success false and a nil error, whatever the HTTP status. An error is
// returned only when no bid response could be obtained.
func (c *Client) PlaceBid(ctx context.Context, itemID, value int64) (*BidResponse, error) {
	path := "/trading/deposit/" + strconv.FormatInt(itemID, 10) + "/bid"
	query := url.Values{}
	query.Set("bid_value", strconv.FormatInt(value, 10))

	body, err := c.doRequest(ctx, http.MethodPost, path, query)
	if err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) || len(apiErr.Body) == 0 {
			return nil, fmt.Errorf("place bid: %w", err)
		}

		var resp BidResponse
		if jsonErr := json.Unmarshal(apiErr.Body, &resp); jsonErr != nil {
			return nil, fmt.Errorf("place bid: %w", err)
		}
		if resp.Success {
			// A 4xx claiming success is not trusted.
			return nil, fmt.Errorf("place bid: %w", err)
		}
		if resp.Message == "" && resp.ErrorKey() == "" {
			return nil, fmt.Errorf("place bid: %w", err)
		}
		return &resp, nil
	}

	var resp BidResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal bid response: %w", err)
	}

	return &resp, nil
}
