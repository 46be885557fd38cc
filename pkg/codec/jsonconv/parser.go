package jsonconv

import (
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/lawrencejones/convsink/pkg/convert"
	"github.com/lawrencejones/convsink/pkg/sink"

	"github.com/valyala/bytebufferpool"
)

// maxDepth matches the nesting limit of encoding/json
const maxDepth = 10000

// state is what the parser expects to see next. Everything needed to resume parsing is
// captured by the state, the container stack and the carry buffer.
type state int

const (
	stateValue       state = iota // start of any value
	stateArrayFirst               // first element of an array, or ']'
	stateObjectFirst              // first key of an object, or '}'
	stateObjectKey                // key of an object, after ','
	stateColon                    // ':' after an object key
	stateAfterValue               // ',' or the closing bracket of the enclosing container
	stateString                   // inside a string literal
	stateEscape                   // after a '\' inside a string literal
	stateUnicode                  // inside the hex digits of a '\u' escape
	stateNumber                   // inside a number literal
	stateLiteral                  // inside true, false or null
	stateEnd                      // after a complete top-level document
)

// frame is an open array or object
type frame struct {
	object map[string]any
	array  []any
	key    string
}

type parser struct {
	downstream sink.Sink[any]
	useNumber  bool
	multi      bool // stream of documents, rather than exactly one

	state  state
	stack  []*frame
	result any   // complete document, held until end of input
	offset int64 // logical offset of the next chunk

	// Partial token state, carried across chunks
	carry     *bytebufferpool.ByteBuffer
	key       bool   // the string being parsed is an object key
	hex       rune   // value of the '\u' escape so far
	hexDigits int    // hex digits consumed of the current '\u' escape
	surrogate rune   // high surrogate waiting for its pair
	number    number // position in the number grammar
	literal   string // literal being matched
	matched   int    // bytes of literal matched so far
}

func newParser(downstream sink.Sink[any], useNumber, multi bool) *parser {
	return &parser{
		downstream: downstream,
		useNumber:  useNumber,
		multi:      multi,
		state:      stateValue,
		carry:      bytebufferpool.Get(),
	}
}

func (p *parser) Feed(chunk []byte, start, end int) (err error) {
	base := p.offset - int64(start)
	defer func() { p.offset += int64(end - start) }()

	for idx := start; idx < end; {
		if idx, err = p.step(chunk, idx, end, base); err != nil {
			return err
		}
	}

	return nil
}

func (p *parser) Finish() error {
	defer p.release()

	// A number at the top-level has no closing delimiter, so it only completes here
	if p.state == stateNumber {
		if !p.number.terminal() {
			return p.errorAt(p.offset, "unexpected end of input")
		}

		if err := p.numberDone(p.offset); err != nil {
			return err
		}
	}

	if p.multi {
		if p.state != stateValue || len(p.stack) > 0 {
			return p.errorAt(p.offset, "unexpected end of input")
		}

		return nil
	}

	if p.state != stateEnd {
		return p.errorAt(p.offset, "unexpected end of input")
	}

	return p.downstream.Add(p.result)
}

// step consumes input from chunk[idx:end] according to the current state, returning the
// index of the first unconsumed byte. A step may consume nothing only if it changes
// state, which guarantees progress.
func (p *parser) step(chunk []byte, idx, end int, base int64) (int, error) {
	switch p.state {
	case stateString:
		return p.scanString(chunk, idx, end, base)
	case stateEscape:
		return p.scanEscape(chunk, idx, base)
	case stateUnicode:
		return p.scanUnicode(chunk, idx, end, base)
	case stateNumber:
		return p.scanNumber(chunk, idx, end, base)
	case stateLiteral:
		return p.scanLiteral(chunk, idx, end, base)
	}

	idx = skipWhitespace(chunk, idx, end)
	if idx == end {
		return end, nil
	}

	c, pos := chunk[idx], base+int64(idx)

	switch p.state {
	case stateArrayFirst:
		if c == ']' {
			return idx + 1, p.closeContainer()
		}

		return p.beginValue(c, idx, pos)

	case stateValue:
		return p.beginValue(c, idx, pos)

	case stateObjectFirst, stateObjectKey:
		if c == '}' && p.state == stateObjectFirst {
			return idx + 1, p.closeContainer()
		}

		if c != '"' {
			return idx, p.errorAt(pos, "invalid character %q looking for beginning of object key string", c)
		}

		p.state, p.key = stateString, true
		return idx + 1, nil

	case stateColon:
		if c != ':' {
			return idx, p.errorAt(pos, "invalid character %q after object key", c)
		}

		p.state = stateValue
		return idx + 1, nil

	case stateAfterValue:
		top := p.stack[len(p.stack)-1]
		switch {
		case c == ',' && top.object != nil:
			p.state = stateObjectKey
		case c == ',':
			p.state = stateValue
		case c == '}' && top.object != nil, c == ']' && top.object == nil:
			return idx + 1, p.closeContainer()
		default:
			return idx, p.errorAt(pos, "invalid character %q after %s", c, top.describe())
		}

		return idx + 1, nil

	case stateEnd:
		return idx, p.errorAt(pos, "invalid character %q after top-level value", c)
	}

	panic(fmt.Sprintf("unhandled parser state: %d", p.state))
}

func (p *parser) beginValue(c byte, idx int, pos int64) (int, error) {
	switch {
	case c == '{' || c == '[':
		if len(p.stack) >= maxDepth {
			return idx, p.errorAt(pos, "exceeded max depth")
		}

		if c == '{' {
			p.stack, p.state = append(p.stack, &frame{object: map[string]any{}}), stateObjectFirst
		} else {
			p.stack, p.state = append(p.stack, &frame{array: []any{}}), stateArrayFirst
		}

	case c == '"':
		p.state, p.key = stateString, false

	case c == '-' || ('0' <= c && c <= '9'):
		p.number, _ = numberStart.next(c)
		p.carry.WriteByte(c)
		p.state = stateNumber

	case c == 't' || c == 'f' || c == 'n':
		p.literal, p.matched, p.state = literals[c], 1, stateLiteral

	default:
		return idx, p.errorAt(pos, "invalid character %q looking for beginning of value", c)
	}

	return idx + 1, nil
}

// value records a complete value into its enclosing container, or publishes it if it was
// a top-level document.
func (p *parser) value(v any) error {
	if len(p.stack) == 0 {
		return p.document(v)
	}

	top := p.stack[len(p.stack)-1]
	if top.object != nil {
		top.object[top.key] = v
	} else {
		top.array = append(top.array, v)
	}

	p.state = stateAfterValue
	return nil
}

func (p *parser) document(v any) error {
	if p.multi {
		p.state = stateValue
		return p.downstream.Add(v)
	}

	p.result, p.state = v, stateEnd
	return nil
}

func (p *parser) closeContainer() error {
	top := p.stack[len(p.stack)-1]
	p.stack[len(p.stack)-1] = nil
	p.stack = p.stack[:len(p.stack)-1]

	if top.object != nil {
		return p.value(top.object)
	}

	return p.value(top.array)
}

// scanString appends runs of plain string content in bulk, stopping at the closing quote,
// an escape, or the end of the chunk.
func (p *parser) scanString(chunk []byte, idx, end int, base int64) (int, error) {
	run := idx
	for run < end {
		if c := chunk[run]; c == '"' || c == '\\' || c < 0x20 {
			break
		}
		run++
	}

	if run > idx {
		p.flushSurrogate()
		p.carry.Write(chunk[idx:run])
	}

	if run == end {
		return end, nil
	}

	switch c := chunk[run]; c {
	case '"':
		p.flushSurrogate()
		s := validString(p.carry.B)
		p.carry.Reset()

		if p.key {
			p.stack[len(p.stack)-1].key, p.state = s, stateColon
			return run + 1, nil
		}

		return run + 1, p.value(s)

	case '\\':
		p.state = stateEscape
		return run + 1, nil

	default:
		return run, p.errorAt(base+int64(run), "invalid character %q in string literal", c)
	}
}

var escapes = map[byte]byte{
	'"':  '"',
	'\\': '\\',
	'/':  '/',
	'b':  '\b',
	'f':  '\f',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
}

func (p *parser) scanEscape(chunk []byte, idx int, base int64) (int, error) {
	c := chunk[idx]
	if c == 'u' {
		p.state, p.hex, p.hexDigits = stateUnicode, 0, 0
		return idx + 1, nil
	}

	unescaped, ok := escapes[c]
	if !ok {
		return idx, p.errorAt(base+int64(idx), "invalid character %q in string escape code", c)
	}

	p.flushSurrogate()
	p.carry.WriteByte(unescaped)
	p.state = stateString

	return idx + 1, nil
}

func (p *parser) scanUnicode(chunk []byte, idx, end int, base int64) (int, error) {
	for ; idx < end && p.hexDigits < 4; idx++ {
		v := unhex(chunk[idx])
		if v < 0 {
			return idx, p.errorAt(base+int64(idx), "invalid character %q in \\u hexadecimal character escape", chunk[idx])
		}

		p.hex, p.hexDigits = p.hex<<4|v, p.hexDigits+1
	}

	if p.hexDigits == 4 {
		p.unicode(p.hex)
		p.state = stateString
	}

	return idx, nil
}

// unicode writes a decoded '\u' escape. High surrogates are held until the next escape,
// which may complete the pair. Anything unpaired becomes U+FFFD, as with encoding/json.
func (p *parser) unicode(r rune) {
	if p.surrogate != 0 && 0xDC00 <= r && r < 0xE000 {
		p.writeRune(utf16.DecodeRune(p.surrogate, r))
		p.surrogate = 0
		return
	}

	p.flushSurrogate()
	switch {
	case 0xD800 <= r && r < 0xDC00:
		p.surrogate = r
	case utf16.IsSurrogate(r):
		p.writeRune(utf8.RuneError)
	default:
		p.writeRune(r)
	}
}

func (p *parser) flushSurrogate() {
	if p.surrogate != 0 {
		p.writeRune(utf8.RuneError)
		p.surrogate = 0
	}
}

func (p *parser) writeRune(r rune) {
	p.carry.B = utf8.AppendRune(p.carry.B, r)
}

func (p *parser) scanNumber(chunk []byte, idx, end int, base int64) (int, error) {
	run := idx
	for ; run < end; run++ {
		next, ok := p.number.next(chunk[run])
		if !ok {
			break
		}

		p.number = next
	}

	p.carry.Write(chunk[idx:run])
	if run == end {
		return end, nil
	}

	// The byte at run terminates the number, and is left for the next state to consume
	if !p.number.terminal() {
		return run, p.errorAt(base+int64(run), "invalid character %q in numeric literal", chunk[run])
	}

	return run, p.numberDone(base + int64(run))
}

func (p *parser) numberDone(pos int64) error {
	literal := string(p.carry.B)
	p.carry.Reset()

	if p.useNumber {
		return p.value(json.Number(literal))
	}

	f, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return p.errorAt(pos-int64(len(literal)), "number %s out of range", literal)
	}

	return p.value(f)
}

var literals = map[byte]string{
	't': "true",
	'f': "false",
	'n': "null",
}

var literalValues = map[string]any{
	"true":  true,
	"false": false,
	"null":  nil,
}

func (p *parser) scanLiteral(chunk []byte, idx, end int, base int64) (int, error) {
	for ; idx < end && p.matched < len(p.literal); idx++ {
		if c := chunk[idx]; c != p.literal[p.matched] {
			return idx, p.errorAt(base+int64(idx), "invalid character %q in literal %s (expecting %q)", c, p.literal, p.literal[p.matched])
		}

		p.matched++
	}

	if p.matched == len(p.literal) {
		return idx, p.value(literalValues[p.literal])
	}

	return idx, nil
}

func (p *parser) errorAt(offset int64, format string, args ...interface{}) error {
	return &convert.FormatError{Format: "json", Msg: fmt.Sprintf(format, args...), Offset: offset}
}

// release returns the carry buffer to the pool. A parser that failed is never finished,
// and leaves its buffer to the garbage collector.
func (p *parser) release() {
	if p.carry != nil {
		bytebufferpool.Put(p.carry)
		p.carry = nil
	}
}

func (f *frame) describe() string {
	if f.object != nil {
		return "object key:value pair"
	}

	return "array element"
}

func skipWhitespace(chunk []byte, idx, end int) int {
	for idx < end {
		switch chunk[idx] {
		case ' ', '\t', '\n', '\r':
			idx++
		default:
			return idx
		}
	}

	return idx
}

// validString replaces each byte of invalid UTF-8 with U+FFFD, as encoding/json does.
func validString(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}

	out := make([]byte, 0, len(b)+2*utf8.UTFMax)
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			out = utf8.AppendRune(out, utf8.RuneError)
		} else {
			out = append(out, b[:size]...)
		}
		b = b[size:]
	}

	return string(out)
}

func unhex(c byte) rune {
	switch {
	case '0' <= c && c <= '9':
		return rune(c - '0')
	case 'a' <= c && c <= 'f':
		return rune(c - 'a' + 10)
	case 'A' <= c && c <= 'F':
		return rune(c - 'A' + 10)
	}

	return -1
}
