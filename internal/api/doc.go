// Package api provides the marketplace REST client.
//
// Endpoints used by the bidder (relative to api.rest_url):
//   - GET  /metadata/socket                        user model, balance, socket token and signature
//   - GET  /trading/user/auctions                  auctions the account currently leads
//   - POST /trading/deposit/{id}/bid?bid_value=V   place a bid
//
// Bid rejections are returned as structured bodies, usually with a 4xx status,
// and are decoded rather than treated as transport errors.
package api
