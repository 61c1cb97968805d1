// Package espec drives Espec P300 and SCP-220 chamber controllers over their
// line oriented ASCII command set.
//
// The controller has at most two physical channels, temperature and humidity.
// A chamber with product temperature control (PTCON) exposes temperature as
// cascade 1 and humidity as loop 1; otherwise loop 1 is temperature and loop 2
// is humidity.
//
// Query replies may be cached for a short freshness window since a single
// reply such as TEMP? carries several loop fields. Every write clears the cache.
//
// The SCP-220 is the P300 command set with a few firmware differences: it
// reports the PTCON negative deviation as a positive number, swaps the air and
// product setpoints of TEMP PTC?, has no detailed run mode or program range
// queries, and stores fewer programs.
package espec
