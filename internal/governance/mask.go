package governance

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// parseMaskSpec parses a mask expression like "redact_part(keep=4)"
// or a bare kind like "hash" into a MaskSpec.
func parseMaskSpec(raw string) (MaskSpec, error) {
	raw = strings.TrimSpace(raw)
	if open := strings.Index(raw, "("); open >= 0 {
		kind := MaskKind(raw[:open])
		if !strings.HasSuffix(raw, ")") {
			return MaskSpec{}, fmt.Errorf("malformed mask expression %q", raw)
		}
		params := raw[open+1 : len(raw)-1]
		keep := 0
		for _, pair := range strings.Split(params, ",") {
			kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
			if len(kv) != 2 {
				continue
			}
			if strings.TrimSpace(kv[0]) == "keep" {
				n, err := strconv.Atoi(strings.TrimSpace(kv[1]))
				if err != nil {
					return MaskSpec{}, fmt.Errorf("invalid keep value in %q: %w", raw, err)
				}
				keep = n
			}
		}
		return MaskSpec{Kind: kind, Keep: keep}, nil
	}

	if raw == "none" {
		raw = string(MaskNull)
	}

	switch MaskKind(raw) {
	case MaskRedactFull, MaskHash, MaskTokenize, MaskInitials, MaskYearOnly, MaskYYYYMM, MaskCityOnly, MaskNull:
		return MaskSpec{Kind: MaskKind(raw)}, nil
	default:
		return MaskSpec{}, fmt.Errorf("unknown mask kind %q", raw)
	}
}

// Tokenizer deterministically maps a value to a stable "tok_" token,
// reusing the same token for the same input within process lifetime.
// The process-wide map is bounded by a configurable-size LRU rather
// than left to grow without limit.
type Tokenizer struct {
	cache *lru.Cache[string, string]
}

// NewTokenizer constructs a Tokenizer bounded to size entries.
func NewTokenizer(size int) *Tokenizer {
	if size <= 0 {
		size = 100000
	}
	cache, _ := lru.New[string, string](size)
	return &Tokenizer{cache: cache}
}

// Token returns the deterministic token for value, computing and
// caching it on first use.
func (t *Tokenizer) Token(value string) string {
	if tok, ok := t.cache.Get(value); ok {
		return tok
	}
	sum := sha1.Sum([]byte(value))
	tok := "tok_" + hex.EncodeToString(sum[:])[:10]
	t.cache.Add(value, tok)
	return tok
}

// ApplyMask applies spec to value, returning the masked value. A nil
// value, redact_full and null all yield a plain nil. When t is nil,
// tokenize uses a fresh Tokenizer; the token depends only on the value.
func ApplyMask(spec MaskSpec, value interface{}, t *Tokenizer) interface{} {
	if value == nil {
		return nil
	}

	str := fmt.Sprintf("%v", value)

	switch spec.Kind {
	case MaskRedactFull, MaskNull:
		return nil
	case MaskRedactPart:
		return redactPart(str, spec.Keep)
	case MaskHash:
		sum := sha256.Sum256([]byte(str))
		return hex.EncodeToString(sum[:])[:16]
	case MaskTokenize:
		if t == nil {
			t = NewTokenizer(0)
		}
		return t.Token(str)
	case MaskInitials:
		return initials(str)
	case MaskYearOnly:
		return truncate(str, 4)
	case MaskYYYYMM:
		return truncate(str, 7)
	case MaskCityOnly:
		return cityOnly(str)
	default:
		return value
	}
}

func redactPart(value string, keep int) string {
	if keep < 0 {
		keep = 0
	}
	if keep >= len(value) {
		return value
	}
	masked := strings.Repeat("*", len(value)-keep)
	return masked + value[len(value)-keep:]
}

func initials(value string) string {
	fields := strings.Fields(value)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		upper := strings.ToUpper(f)
		out = append(out, upper[:1])
	}
	return strings.Join(out, "")
}

func truncate(value string, n int) string {
	if n > len(value) {
		n = len(value)
	}
	return value[:n]
}

func cityOnly(value string) string {
	idx := strings.LastIndex(value, ",")
	if idx < 0 {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(value[idx+1:])
}
