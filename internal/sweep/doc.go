// Package sweep measures create, update and delete latency of one entity kind
// across growing data-set sizes.
//
// For every configured size the sweeper empties the collection, fills it with
// size-1 entities and then measures one create, one update and one delete.
// The measured create is the size-th entity, so every sample is tagged with
// the number of entities the server held during the call.
package sweep
