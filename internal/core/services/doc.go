// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The retrieval pipeline lives here: relevance filtering, context
// assembly, confidence scoring, and source formatting.
package services
