// Package compression shrinks floppy images for transfer off the SD card
// they're captured from, and restores them on the way back.
//
// An image is made up of fixed-size sectors, usually 512 bytes each. The
// emptier a floppy is, the more sectors consisting of entirely null bytes
// it has. That means even a "large" floppy image (1.44M) is mostly dead
// space once you look past the boot sector, the FATs, and whatever files
// actually live on it.
//
// To keep captured images small enough to move over a slow link or check
// into a repository as test fixtures, we compress them before they leave
// the card and decompress them again once they arrive. In experiments, the
// best compression came from run-length encoding the raw sectors first,
// then gzipping the result. A 1.44M floppy image that's mostly unformatted
// space run-length-encodes down to a few kilobytes; gzip on top of that
// squeezes out most of what's left.
//
// There are a variety of run-length encodings; this document refers strictly
// to the algorithm used by the Microsoft BMP file format, also known as RLE8. A
// brief explanation: if a byte B occurs N times where N >= 2, B is written twice,
// followed by a third (unsigned) byte indicating how many additional times B
// occurred. For example:
//
// 		WXXXXXXXXXXXXXXXYZZ
//		W XX 13 Y ZZ 0
//
// This scheme lets us represent runs of up to 257 bytes with three bytes. For
// runs longer than 257 bytes, they are treated as separate runs. For example,
// a run of 300 "X" is represented as `XX 255 XX 41`. Unfortunately, using a byte
// as its own escape sequence means that occurrences of the same byte exactly
// twice are stored as three bytes: the two bytes followed by a null byte
// indicating no further repetition.

package compression
