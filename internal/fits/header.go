// Package fits reads the subset of the FITS format produced by the WEAVE
// data-processing chain: primary headers, image extensions and binary tables.
// It is a reading layer only; qagmire never writes FITS.
package fits

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// blockSize is the FITS record length; headers and data are padded to it.
	blockSize = 2880
	// cardSize is the length of a single header card.
	cardSize = 80
	cardsPerBlock = blockSize / cardSize
)

// Card is one 80-character header record, split into its parts.
type Card struct {
	Keyword string
	Value   string // raw value text, unquoted for strings
	Comment string
}

// Header is an ordered FITS header. Keyword lookup returns the first
// occurrence; COMMENT and HISTORY cards are retained but never indexed.
type Header struct {
	cards []Card
	index map[string]int
	// size is the number of bytes the header occupied on disk, always a
	// multiple of blockSize.
	size int64
}

// Size returns the on-disk byte length of the header including padding.
func (h *Header) Size() int64 { return h.size }

// Cards returns the parsed cards in file order.
func (h *Header) Cards() []Card { return h.cards }

// Has reports whether the header contains the keyword.
func (h *Header) Has(key string) bool {
	_, ok := h.index[key]
	return ok
}

// Str returns the keyword's value as a string. String values arrive with
// FITS quoting already removed and trailing blanks trimmed.
func (h *Header) Str(key string) (string, error) {
	i, ok := h.index[key]
	if !ok {
		return "", fmt.Errorf("fits: keyword %q not in header", key)
	}
	return h.cards[i].Value, nil
}

// StrDefault returns the keyword's value, or def when absent.
func (h *Header) StrDefault(key, def string) string {
	if v, err := h.Str(key); err == nil {
		return v
	}
	return def
}

// Int returns the keyword's value as an integer.
func (h *Header) Int(key string) (int64, error) {
	s, err := h.Str(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("fits: keyword %q: %q is not an integer", key, s)
	}
	return v, nil
}

// Float returns the keyword's value as a float. FITS exponent markers D and
// d are accepted alongside E/e.
func (h *Header) Float(key string) (float64, error) {
	s, err := h.Str(key)
	if err != nil {
		return 0, err
	}
	norm := strings.NewReplacer("D", "E", "d", "e").Replace(s)
	v, err := strconv.ParseFloat(norm, 64)
	if err != nil {
		return 0, fmt.Errorf("fits: keyword %q: %q is not a number", key, s)
	}
	return v, nil
}

// FloatDefault returns the keyword's value, or def when absent or malformed.
func (h *Header) FloatDefault(key string, def float64) float64 {
	if v, err := h.Float(key); err == nil {
		return v
	}
	return def
}

// Bool returns the keyword's value as a FITS logical (T or F).
func (h *Header) Bool(key string) (bool, error) {
	s, err := h.Str(key)
	if err != nil {
		return false, err
	}
	switch s {
	case "T":
		return true, nil
	case "F":
		return false, nil
	}
	return false, fmt.Errorf("fits: keyword %q: %q is not a logical", key, s)
}

// readHeader consumes whole 2880-byte blocks from r until the END card.
func readHeader(r io.Reader) (*Header, error) {
	h := &Header{index: make(map[string]int)}
	block := make([]byte, blockSize)
	for {
		if _, err := io.ReadFull(r, block); err != nil {
			if err == io.EOF && h.size == 0 {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("fits: truncated header: %w", err)
		}
		h.size += blockSize
		for i := 0; i < cardsPerBlock; i++ {
			card := string(block[i*cardSize : (i+1)*cardSize])
			keyword := strings.TrimRight(card[:8], " ")
			if keyword == "END" {
				return h, nil
			}
			parsed, indexable := parseCard(keyword, card)
			if parsed == nil {
				continue
			}
			if indexable {
				if _, dup := h.index[keyword]; !dup {
					h.index[keyword] = len(h.cards)
				}
			}
			h.cards = append(h.cards, *parsed)
		}
	}
}

// parseCard splits one card into keyword, value and comment. The second
// return reports whether the card carries an indexable value.
func parseCard(keyword, card string) (*Card, bool) {
	if keyword == "" {
		return nil, false
	}
	if keyword == "COMMENT" || keyword == "HISTORY" {
		return &Card{Keyword: keyword, Comment: strings.TrimRight(card[8:], " ")}, false
	}
	if len(card) < 10 || card[8] != '=' {
		// Keyword without a value indicator; keep the text as a comment.
		return &Card{Keyword: keyword, Comment: strings.TrimSpace(card[8:])}, false
	}
	value, comment := splitValueComment(card[10:])
	return &Card{Keyword: keyword, Value: value, Comment: comment}, true
}

// splitValueComment separates the value field from the trailing "/ comment",
// honouring quoted strings with '' escapes.
func splitValueComment(rest string) (value, comment string) {
	rest = strings.TrimLeft(rest, " ")
	if strings.HasPrefix(rest, "'") {
		var b strings.Builder
		i := 1
		for i < len(rest) {
			if rest[i] == '\'' {
				if i+1 < len(rest) && rest[i+1] == '\'' {
					b.WriteByte('\'')
					i += 2
					continue
				}
				i++
				break
			}
			b.WriteByte(rest[i])
			i++
		}
		value = strings.TrimRight(b.String(), " ")
		if j := strings.Index(rest[i:], "/"); j >= 0 {
			comment = strings.TrimSpace(rest[i+j+1:])
		}
		return value, comment
	}
	if j := strings.Index(rest, "/"); j >= 0 {
		return strings.TrimSpace(rest[:j]), strings.TrimSpace(rest[j+1:])
	}
	return strings.TrimSpace(rest), ""
}
