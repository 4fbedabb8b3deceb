package parsers

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// RunKey derives the stable key tying one logical request together across
// the header, detail and response layers: SHA-256 over the pipe-joined
// run id, session id, model and query hash, with nil components as empty
// strings. The warehouse inserts compute the same digest with
// SHA2(COALESCE(...) || '|' || ..., 256); the two must agree byte for byte.
func RunKey(runID string, sessionID *int64, model, queryHash *string) string {
	var sid string
	if sessionID != nil {
		sid = strconv.FormatInt(*sessionID, 10)
	}
	s := runID + "|" + sid + "|" + deref(model) + "|" + deref(queryHash)
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
