// Package auth is the tiered authentication and entitlement gate in front of
// the MCP endpoint. It normalizes credentials from the accepted header and
// query spellings, resolves them against the keystore, answers capability
// questions per tier and records billable usage.
package auth
