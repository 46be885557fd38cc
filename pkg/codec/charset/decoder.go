package charset

import (
	"bytes"
	"unicode/utf8"

	"github.com/lawrencejones/convsink/pkg/convert"
	"github.com/lawrencejones/convsink/pkg/sink"

	"github.com/pkg/errors"
	"golang.org/x/text/transform"
)

// maxSequence bounds the bytes any supported encoding needs to decode a single character
const maxSequence = 8

// errMalformed marks the position in a transformed source where the encoding substituted
// a replacement character.
var errMalformed = errors.New("malformed input")

type decoder struct {
	name           string
	allowMalformed bool
	downstream     sink.Sink[string]
	transformer    transform.Transformer
	dst            []byte // scratch space for transformed output
	carry          []byte // source bytes the transformer could not yet consume
	offset         int64  // logical offset of the next chunk
}

func (d *decoder) Feed(chunk []byte, start, end int) error {
	defer func() { d.offset += int64(end - start) }()

	var out []byte
	from := start
	if len(d.carry) > 0 {
		// Complete the carried sequence by borrowing only as much of the chunk as any
		// character could need, rather than copying the chunk onto the carry.
		borrowed := end - start
		if borrowed > maxSequence {
			borrowed = maxSequence
		}

		window := append(d.carry, chunk[start:start+borrowed]...)
		consumed, text, err := d.transform(window, false)
		if err != nil {
			return d.invalid(d.offset - int64(len(d.carry)) + int64(consumed))
		}

		out = append(out, text...)

		// If the transformer stopped short within what we carried, even after borrowing
		// maxSequence bytes, then the chunk is exhausted and everything must be carried.
		if consumed < len(d.carry) {
			d.carry = append([]byte(nil), window[consumed:]...)
			return d.emit(out)
		}

		from, d.carry = start+consumed-len(d.carry), d.carry[:0]
	}

	consumed, text, err := d.transform(chunk[from:end], false)
	if err != nil {
		return d.invalid(d.offset + int64(from-start+consumed))
	}

	d.carry = append(d.carry, chunk[from+consumed:end]...)
	return d.emit(append(out, text...))
}

func (d *decoder) Finish() error {
	consumed, text, err := d.transform(d.carry, true)
	if err != nil {
		return d.invalid(d.offset - int64(len(d.carry)) + int64(consumed))
	}

	d.carry = nil
	return d.emit(text)
}

// transform runs the transformer over src. It returns how much of src was consumed,
// stopping early only when the tail of src is an incomplete sequence, or at the first
// malformed sequence when replacement is not allowed.
func (d *decoder) transform(src []byte, atEOF bool) (consumed int, out []byte, err error) {
	if !d.allowMalformed {
		return d.transformStrict(src, atEOF)
	}

	for {
		nDst, nSrc, err := d.transformer.Transform(d.dst, src[consumed:], atEOF)
		out = append(out, d.dst[:nDst]...)
		consumed += nSrc

		switch err {
		case nil, transform.ErrShortSrc:
			return consumed, out, nil
		case transform.ErrShortDst:
			if nDst == 0 && nSrc == 0 {
				d.dst = make([]byte, 2*len(d.dst))
			}
		default:
			return consumed, out, err
		}
	}
}

// transformStrict decodes src one character at a time, so that a replacement character
// in the output can be traced back to the source byte that produced it. Encodings in
// x/text never fail, they substitute U+FFFD, which means a U+FFFD in the input is also
// treated as malformed.
func (d *decoder) transformStrict(src []byte, atEOF bool) (consumed int, out []byte, err error) {
	for consumed < len(src) {
		n, text, err := d.next(src[consumed:], atEOF)
		if err != nil {
			return consumed, out, err
		}

		if n == 0 {
			break
		}

		if bytes.IndexRune(text, utf8.RuneError) >= 0 {
			return consumed, out, errMalformed
		}

		out = append(out, text...)
		consumed += n
	}

	return consumed, out, nil
}

// next decodes the first character of src by offering the transformer a growing window,
// returning zero consumed bytes if the character is incomplete.
func (d *decoder) next(src []byte, atEOF bool) (consumed int, out []byte, err error) {
	for size := 1; size <= len(src) && size <= maxSequence; size++ {
		last := atEOF && size == len(src)
		nDst, nSrc, err := d.transformer.Transform(d.dst, src[:size], last)
		if err != nil && err != transform.ErrShortSrc {
			return 0, nil, err
		}

		if nSrc > 0 {
			return nSrc, d.dst[:nDst], nil
		}
	}

	return 0, nil, nil
}

func (d *decoder) emit(out []byte) error {
	if len(out) == 0 {
		return nil
	}

	return d.downstream.Add(string(out))
}

func (d *decoder) invalid(offset int64) error {
	return &convert.FormatError{Format: d.name, Msg: "invalid byte sequence", Offset: offset}
}
