// Package convert maps between engineering values and the raw representations
// used on the wire by chamber controllers.
//
// Every function is pure. Register-mapped controllers transport 16-bit words,
// so this package packs scaled integers, IEEE-754 floats (two words, low word
// first), character strings (one character per word) and wall clock values into
// register slices. ASCII-command controllers transport text, so the package also
// parses and formats their date and time tokens.
//
// # Resolution
//
// Resolution is the number of decimal places a raw integer carries. A value of
// 25.3 at resolution 1 is transmitted as 253. ToRaw rounds half away from zero,
// so ToEngineering(ToRaw(v, r), r) is exact for any v already at resolution r.
//
// Malformed raw input yields an error wrapping ErrDecode.
package convert
