package api

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/rickgao/empire-bidder/internal/model"
)

// ToModel converts an APIAuction to model.Auction.
func (a *APIAuction) ToModel() model.Auction {
	return model.Auction{
		ID:         a.ID,
		MarketName: a.MarketName,
	}
}

// ToModel converts the socket metadata to model.UserContext. The raw user
// model is kept so it can be forwarded verbatim when identifying.
func (r *SocketMetadataResponse) ToModel() (model.UserContext, error) {
	if len(r.User) == 0 || string(r.User) == "null" {
		return model.UserContext{}, fmt.Errorf("metadata response has no user")
	}

	var u APIUser
	if err := json.Unmarshal(r.User, &u); err != nil {
		return model.UserContext{}, fmt.Errorf("unmarshal user: %w", err)
	}

	return model.UserContext{
		User: model.User{
			ID:      u.ID,
			Balance: u.Balance,
		},
		RawUser:         append(json.RawMessage(nil), r.User...),
		SocketToken:     r.SocketToken,
		SocketSignature: r.SocketSignature,
	}, nil
}

// AuctionsToModel converts a list of API auctions, preserving order.
func AuctionsToModel(in []APIAuction) []model.Auction {
	out := make([]model.Auction, 0, len(in))
	for i := range in {
		out = append(out, in[i].ToModel())
	}
	return out
}
