// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scan

import (
	"fmt"
	"strconv"
	"strings"
)

// RootPath addresses a document's root node.
const RootPath = "/"

// ParsePath converts a node path into child indices. "/" yields no indices,
// "/0/2" yields [0 2].
func ParsePath(p string) ([]int, error) {
	if p == RootPath {
		return nil, nil
	}
	if !strings.HasPrefix(p, "/") {
		return nil, fmt.Errorf("%q: %w", p, ErrInvalidPath)
	}
	segments := strings.Split(p[1:], "/")
	indices := make([]int, 0, len(segments))
	for _, seg := range segments {
		i, err := strconv.ParseUint(seg, 10, 31)
		if err != nil {
			return nil, fmt.Errorf("%q: segment %q: %w", p, seg, ErrInvalidPath)
		}
		indices = append(indices, int(i))
	}
	return indices, nil
}
