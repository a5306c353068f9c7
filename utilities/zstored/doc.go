// Package zstored produces zlib streams (RFC 1950) made entirely of DEFLATE
// stored blocks (RFC 1951 section 3.2.4).
//
// A stored block carries its payload verbatim behind a five-byte header: one
// byte holding the BFINAL bit and BTYPE 00, then LEN and NLEN, the block size
// and its ones' complement, both little-endian. LEN is 16 bits wide, so a
// block holds at most 65535 bytes. Nothing is searched or matched, so the cost
// of producing a stream is a single pass over the payload to copy it and update
// the Adler-32 checksum.
//
// The resulting size is known in advance from the payload length alone:
//
//	2 (zlib header) + 5 per block + payload + 4 (Adler-32)
//
// where the number of blocks is one per full 65535-byte block plus exactly one
// final block. The final block holds whatever is left over, which is nothing at
// all when the payload is empty or an exact multiple of 65535 bytes. The final
// block is written even when it's empty.
package zstored
