// Package domain defines the core entities and invariants of the nation game.
//
// The model is centered around a few key concepts:
//
// # Nation
//
// A Nation is a persistent player-founded group with a unique name, a single
// founder, a member roster, a shared treasury, and named positions. A nation
// exists as long as it has members; when the last member leaves it dissolves
// and every row referencing it goes with it.
//
// # Membership
//
// A Membership binds one identity to at most one nation at a time. The
// founder's membership is created with the nation itself. Leadership is
// derived, never stored: the leader is always the identity equal to the
// nation's founder.
//
// # Resources
//
// Treasuries and personal inventories carry the same three non-negative
// balances: gold, silver, and jade. Balances only move through the economy
// debit/credit operations so the non-negative invariant stays centrally
// enforced.
//
// # War
//
// A War is a directed hostile edge between two nations. At most one active
// war exists per unordered pair, declarations are rate-limited by an
// attacker-side cooldown, and only the declaring nation's founder can end one.
//
// # Diplomacy
//
// A DiplomacyRequest moves from pending to accepted or rejected, optionally
// escrowing a gift out of the sender's treasury until resolution. Accepting
// creates a durable Relation for the pair; rejecting refunds the escrow.
package domain
