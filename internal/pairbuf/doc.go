// Package pairbuf provides the growable index-pair buffer that accumulates
// pair-search output without knowing its size in advance.
//
// Capacity doubles on overflow, so appends are amortized O(1) and capacity
// is always initial·2^k. Every allocation, including each doubling, is
// reserved against a resource.Controller first. A failed reservation
// releases the whole buffer: growth failure is never a truncated success.
package pairbuf
