/*
Core implements the trading engine facade.

# Module
  - actor system: one mailbox per account/instrument key, turn-based
  - price aggregators: per-instrument quote state and bar building
  - order books: per-account pending orders and trigger evaluation
  - position ledgers: per-account netting and balance tracking
  - journals: per-account append-only transaction records

# Source
 1. ticks and order requests from broker gateways
 2. recorded tick journals from the replay service

# Produce
  - points, fills, transactions and position updates on the event bus
  - optional write-through of transactions and positions to Postgres

# Sharded
  - account (book, ledger, journal) and instrument (aggregator)
*/
package core
