// Copyright 2026 The Docket Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"fmt"
	"strings"
)

// SanitizeName converts a user-supplied case or client name into a
// filesystem-safe directory segment: spaces become underscores,
// characters outside [A-Za-z0-9._-] are dropped, and the result must
// be non-empty and must not be a dot path. "Silva vs Banco" becomes
// "Silva_vs_Banco".
func SanitizeName(name string) (string, error) {
	var builder strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == ' ':
			builder.WriteByte('_')
		case r == '-' || r == '_' || r == '.':
			builder.WriteRune(r)
		}
		// Everything else (path separators, control characters,
		// accented letters) is dropped rather than transliterated.
	}

	segment := strings.Trim(builder.String(), ".")
	if segment == "" {
		return "", fmt.Errorf("no filesystem-safe characters in name")
	}
	return segment, nil
}
