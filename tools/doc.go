// Package tools defines the SEO analysis tools the server exposes and the
// registry that dispatches calls to them. Tools are pure capabilities: tier
// entitlement and usage accounting happen in the server layer, never here.
package tools
