package jsonconv

// number is the position within the JSON number grammar, tracked so that a number split
// across chunks can be validated without rescanning its digits.
type number int

const (
	numberStart     number = iota
	numberSign             // '-'
	numberZero             // leading '0'
	numberInt              // integer digits
	numberDot              // '.'
	numberFrac             // fraction digits
	numberExp              // 'e' or 'E'
	numberExpSign          // '+' or '-' after the exponent
	numberExpDigits        // exponent digits
)

// next returns the state after consuming c, or false if c cannot continue the number.
func (n number) next(c byte) (number, bool) {
	digit := '0' <= c && c <= '9'

	switch n {
	case numberStart:
		switch {
		case c == '-':
			return numberSign, true
		case c == '0':
			return numberZero, true
		case digit:
			return numberInt, true
		}
	case numberSign:
		switch {
		case c == '0':
			return numberZero, true
		case digit:
			return numberInt, true
		}
	case numberZero, numberInt:
		switch {
		case digit && n == numberInt:
			return numberInt, true
		case c == '.':
			return numberDot, true
		case c == 'e' || c == 'E':
			return numberExp, true
		}
	case numberDot, numberFrac:
		switch {
		case digit:
			return numberFrac, true
		case (c == 'e' || c == 'E') && n == numberFrac:
			return numberExp, true
		}
	case numberExp:
		switch {
		case c == '+' || c == '-':
			return numberExpSign, true
		case digit:
			return numberExpDigits, true
		}
	case numberExpSign, numberExpDigits:
		if digit {
			return numberExpDigits, true
		}
	}

	return n, false
}

// terminal is true if the number could end here
func (n number) terminal() bool {
	switch n {
	case numberZero, numberInt, numberFrac, numberExpDigits:
		return true
	}

	return false
}
