// Package leb128 encodes and decodes the variable length integers of DWARF
// (DWARF 5 section 7.6). Decoding reports the number of bytes consumed and
// fails on values that do not fit in 64 bits or that run past the input.
package leb128
