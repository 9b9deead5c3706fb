// Package entitlementservice implements the entitlement resolution engine
// inside the access-control context.
//
// The module owns grant lifecycle orchestration (temporary grants, payment
// grants, expiry sweeps), live access evaluation under the email-verification
// gate, and the derived status projection kept fresh through outbox-backed
// workers. It keeps business rules in application/domain layers and isolates
// infrastructure concerns behind ports and adapters.
package entitlementservice
