package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainScene  = "minq/scene/v1"
	DomainResult = "minq/result/v1"
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

// SceneHash computes a content hash of a compiled scene. Two scenes with the
// same nodes, attributes, connections and type extensions hash equal
// regardless of map iteration order.
func SceneHash(s *Scene) (string, error) {
	canonical, err := MarshalCanonical(s.Object())
	if err != nil {
		return "", fmt.Errorf("SceneHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainScene, canonical), nil
}

// ResultHash computes a content hash of a result sequence. Order matters.
func ResultHash(values []IRValue) (string, error) {
	canonical, err := MarshalCanonicalSeq(values)
	if err != nil {
		return "", fmt.Errorf("ResultHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainResult, canonical), nil
}
