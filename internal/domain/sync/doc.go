// Package sync contains the marketplace synchronization bounded context.
// This context owns the shared contract between the orchestrator and the
// platform adapters.
//
// Key concepts:
//   - MarketplacePlatform: Port interface for marketplace adapters (Tokopedia, Shopee, Lazada)
//   - NormalizedOrder: Platform-agnostic order representation used before adapter translation
//   - SyncJob / SyncResult: Unit of work and its immutable outcome
//   - ClassifiedError: Failure tagged with recoverability and backoff hints
//   - BusinessCalendar: Read-only port for Indonesian business-context annotations
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package sync
