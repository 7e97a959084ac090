// Package catalog collects affiliate offers into the offer store and ranks
// them per niche.
//
// Collection parses and validates offers from an OfferSource and upserts the
// accepted ones. Ranking scores every active offer of a niche, commits the
// scores under a distributed lock so concurrent rankers do not interleave
// writes, and returns a top-N or price-diversified selection.
//
// Repository implementations live in repository/postgres/.
package catalog
