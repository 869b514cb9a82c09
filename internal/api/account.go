package api

import (
	"context"
	"fmt"

	"github.com/rickgao/empire-bidder/internal/model"
)

// GetUserContext fetches the user model, balance and socket credentials.
func (c *Client) GetUserContext(ctx context.Context) (model.UserContext, error) {
	var resp SocketMetadataResponse
	if err := c.get(ctx, "/metadata/socket", nil, &resp); err != nil {
		return model.UserContext{}, fmt.Errorf("get socket metadata: %w", err)
	}

	uc, err := resp.ToModel()
	if err != nil {
		return model.UserContext{}, fmt.Errorf("get socket metadata: %w", err)
	}

	return uc, nil
}
