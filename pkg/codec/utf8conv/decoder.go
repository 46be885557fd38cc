package utf8conv

import (
	"unicode/utf8"

	"github.com/lawrencejones/convsink/pkg/convert"
	"github.com/lawrencejones/convsink/pkg/sink"
)

var replacement = []byte(string(utf8.RuneError))

type decoder struct {
	downstream     sink.Sink[string]
	allowMalformed bool
	offset         int64 // logical offset of the next chunk

	// Leading bytes of a sequence cut by the end of the previous chunk
	carry       [utf8.UTFMax]byte
	carried     int
	carryOffset int64
}

func (d *decoder) Feed(chunk []byte, start, end int) error {
	base := d.offset - int64(start)
	defer func() { d.offset += int64(end - start) }()

	var out []byte // only allocated if the text can't be taken straight from the chunk

	idx := start
	for d.carried > 0 {
		// Borrow just enough of the chunk to complete the carried sequence
		var window [2 * utf8.UTFMax]byte
		n := copy(window[:], d.carry[:d.carried])
		borrowed := copy(window[n:n+utf8.UTFMax-d.carried], chunk[idx:end])

		if !utf8.FullRune(window[:n+borrowed]) {
			// Still incomplete, which means we've exhausted the chunk
			d.carried += copy(d.carry[d.carried:], chunk[idx:end])
			return d.emit(out)
		}

		r, size := utf8.DecodeRune(window[:n+borrowed])
		if r == utf8.RuneError && size == 1 {
			if !d.allowMalformed {
				return d.invalid(d.carryOffset)
			}

			out = append(out, replacement...)
		} else {
			out = append(out, window[:size]...)
		}

		// Either the sequence consumed all the carried bytes and some of the chunk, or it was
		// invalid, and we retry from the next carried byte.
		if size >= d.carried {
			idx, d.carried = idx+size-d.carried, 0
		} else {
			copy(d.carry[:], d.carry[size:d.carried])
			d.carried, d.carryOffset = d.carried-size, d.carryOffset+int64(size)
		}
	}

	from := idx
	for idx < end {
		if chunk[idx] < utf8.RuneSelf {
			idx++
			continue
		}

		if !utf8.FullRune(chunk[idx:end]) {
			break
		}

		r, size := utf8.DecodeRune(chunk[idx:end])
		if r == utf8.RuneError && size == 1 {
			if !d.allowMalformed {
				return d.invalid(base + int64(idx))
			}

			out = append(append(out, chunk[from:idx]...), replacement...)
			idx++
			from = idx
			continue
		}

		idx += size
	}

	// Anything left is the start of a sequence cut by the end of the chunk
	d.carried = copy(d.carry[:], chunk[idx:end])
	d.carryOffset = base + int64(idx)

	if out == nil {
		return d.emitString(string(chunk[from:idx]))
	}

	return d.emit(append(out, chunk[from:idx]...))
}

// Finish decodes any carried bytes as they would be at the end of a whole input, which
// means each of them is invalid.
func (d *decoder) Finish() error {
	if d.carried == 0 {
		return nil
	}

	if !d.allowMalformed {
		return d.invalid(d.carryOffset)
	}

	var out []byte
	for rest := d.carry[:d.carried]; len(rest) > 0; {
		r, size := utf8.DecodeRune(rest)
		if r == utf8.RuneError && size == 1 {
			out = append(out, replacement...)
		} else {
			out = append(out, rest[:size]...)
		}

		rest = rest[size:]
	}

	d.carried = 0
	return d.emit(out)
}

func (d *decoder) emit(out []byte) error {
	return d.emitString(string(out))
}

func (d *decoder) emitString(text string) error {
	if text == "" {
		return nil
	}

	return d.downstream.Add(text)
}

func (d *decoder) invalid(offset int64) error {
	return &convert.FormatError{Format: "utf8", Msg: "invalid UTF-8 byte sequence", Offset: offset}
}
