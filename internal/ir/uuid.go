package ir

import "github.com/google/uuid"

// sceneNamespace seeds deterministic node UUIDs.
var sceneNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/roach88/minq/scene"))

// NodeUUID derives a stable v5 UUID for a node name, so recompiling the same
// scene yields the same identities.
func NodeUUID(name string) string {
	return uuid.NewSHA1(sceneNamespace, []byte(name)).String()
}
