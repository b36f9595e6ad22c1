package audit

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// cursor is the keyset position of the last record on a page.
// Encoded form: base64(occurred_at_unix_micro + "|" + seq).
type cursor struct {
	OccurredAt time.Time
	Seq        int64
}

func encodeCursor(c cursor) string {
	raw := strconv.FormatInt(c.OccurredAt.UnixMicro(), 10) + "|" + strconv.FormatInt(c.Seq, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(token string) (cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return cursor{}, fmt.Errorf("decode cursor: %w", err)
	}

	ts, seq, ok := strings.Cut(string(raw), "|")
	if !ok {
		return cursor{}, fmt.Errorf("decode cursor: missing separator")
	}

	micros, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return cursor{}, fmt.Errorf("decode cursor timestamp: %w", err)
	}
	n, err := strconv.ParseInt(seq, 10, 64)
	if err != nil || n < 1 {
		return cursor{}, fmt.Errorf("decode cursor seq: invalid %q", seq)
	}

	return cursor{OccurredAt: time.UnixMicro(micros).UTC(), Seq: n}, nil
}
