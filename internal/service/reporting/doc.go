// Package reporting builds performance reports over a time window.
//
// Conversions and revenue come from the conversion store, clicks from the
// click counters. Reports combine them per attribution dimension, roll them
// into a metrics snapshot, compare windows and can be archived.
package reporting
