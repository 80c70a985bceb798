// Package bref4err defines the categorical error kinds the bref4 module can
// fail with. Callers distinguish them with errors.Is; the diagnostic message
// chain built by github.com/carbocation/pfx at each wrapping site is
// preserved for the CLI's single stderr diagnostic line.
package bref4err

import "errors"

// BadArguments marks a CLI parse or construction-time validation failure.
var BadArguments = errors.New("bref4: bad arguments")

// BadVcfLine marks a structural or semantic VCF error: unphased, missing,
// non-diploid, or a duplicate sample.
var BadVcfLine = errors.New("bref4: bad VCF line")

// NonContiguousChromosome marks a chromosome id that reappears after another
// chromosome has already been seen.
var NonContiguousChromosome = errors.New("bref4: non-contiguous chromosome")

// TooManySamples marks a sample count that would overflow the haplotype
// index space (N > 2^30 - 1).
var TooManySamples = errors.New("bref4: too many samples")

// CorruptBlock marks a magic-number mismatch, bad sentinel, out-of-bounds
// index entry, a packed value >= valueSize, or malformed UTF-8.
var CorruptBlock = errors.New("bref4: corrupt block")

// IOError marks any underlying I/O failure.
var IOError = errors.New("bref4: I/O error")
