package chunking

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Codec is a reversible token codec. Decode(Encode(s)) must reproduce s up to
// the codec's own normalization.
type Codec interface {
	Encode(text string) []int
	Decode(tokens []int) string
	Count(text string) int
}

// TiktokenCodec implements Codec on tiktoken BPE encodings.
type TiktokenCodec struct {
	enc *tiktoken.Tiktoken
}

var _ Codec = (*TiktokenCodec)(nil)

// NewTiktokenCodec creates a codec for the named encoding (e.g. "cl100k_base").
func NewTiktokenCodec(encoding string) (*TiktokenCodec, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("loading tiktoken encoding %q: %w", encoding, err)
	}
	return &TiktokenCodec{enc: enc}, nil
}

// Encode converts text to token ids.
func (c *TiktokenCodec) Encode(text string) []int {
	return c.enc.Encode(text, nil, nil)
}

// Decode converts token ids back to text.
func (c *TiktokenCodec) Decode(tokens []int) string {
	return c.enc.Decode(tokens)
}

// Count returns the number of tokens in text.
func (c *TiktokenCodec) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}
