// Package wave decodes RIFF/WAVE PCM sources for the encoder.
//
// A Decoder walks the chunk list of a RIFF container until it finds the
// "data" chunk, validates the "fmt " chunk on the way, and then unpacks raw
// little-endian PCM into int32 samples left-justified in the word: an N-bit
// sample occupies the top N bits, sign-extended, lower bits zero. 8-bit input
// is unsigned and is re-biased around zero first.
//
// Decoder states:
//
//	unopened -> headerParsed -> reading -> exhausted -> closed
//	         \-> invalid (any validation failure, no further reads)
//
// Supported sources are mono or stereo, 8, 16, 24 or 32 bits, integer PCM,
// including WAVE_FORMAT_EXTENSIBLE headers whose sub-format is PCM.
package wave
