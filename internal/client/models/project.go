// Package models defines the data objects shared between the storefront
// gateways, the collection stores, and the CLI.
package models

import "time"

// Project is a catalog entry offered on the marketplace. The collection
// stores keep a denormalized copy of it (see CollectionItem.Subject) so
// saved items stay renderable when the catalog is unreachable.
type Project struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Price      float64 `json:"price"`
	SellerName string  `json:"seller_name"`
	ImageURL   string  `json:"image_url,omitempty"`
}

// CollectionItem is one entry of a user-owned collection (cart or
// wishlist). ID is the server-assigned collection-entry id, or a locally
// generated one when the entry only exists in the fallback cache.
//
// Invariant: within one owner's collection, SubjectID is unique.
type CollectionItem struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	SubjectID string    `json:"project_id"`
	Quantity  int       `json:"quantity,omitempty"`
	AddedAt   time.Time `json:"added_at"`
	Subject   Project   `json:"project"`
}
