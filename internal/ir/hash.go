package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows the hashing scheme to migrate.
const (
	DomainFact = "factview/fact/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FactHash computes the content-addressed identity of a fact.
//
// The hash covers the fact type, its fields and its predecessor hashes per
// role. Predecessor lists are treated as sets: callers must pass them
// sorted and de-duplicated (NewFact does this).
func FactHash(factType string, fields IRObject, predecessors map[string][]string) (string, error) {
	preds := make(IRObject, len(predecessors))
	for role, hashes := range predecessors {
		arr := make(IRArray, len(hashes))
		for i, h := range hashes {
			arr[i] = IRString(h)
		}
		preds[role] = arr
	}
	if fields == nil {
		fields = IRObject{}
	}

	obj := IRObject{
		"type":         IRString(factType),
		"fields":       fields,
		"predecessors": preds,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("FactHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainFact, canonical), nil
}
