// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation from arbitrary strings
// and collision-free allocation against an existing set of slugs.
package slug

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Fallback is used when a title contains nothing slug-worthy.
const Fallback = "prompt"

// DefaultMaxProbes bounds how many candidates Allocate tries.
const DefaultMaxProbes = 1000

// ErrExhausted is returned when every candidate up to the probe cap is taken.
var ErrExhausted = errors.New("slug candidates exhausted")

// separators matches any run of characters outside [a-z0-9].
var separators = regexp.MustCompile(`[^a-z0-9]+`)

// Generate creates a URL-friendly slug from the given string.
// Example: "Hello, World! 2026" → "hello-world-2026"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = separators.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	if result == "" {
		return Fallback
	}
	return result
}

// Candidate returns the n-th probe for base: base itself for n <= 1,
// otherwise base-n.
func Candidate(base string, n int) string {
	if n <= 1 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n)
}

// ExistsFunc reports whether a slug is already taken.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// Allocate derives a slug from title and probes base, base-2, base-3, ...
// until exists reports a free one. At most maxProbes candidates are tried;
// a non-positive maxProbes means DefaultMaxProbes.
func Allocate(ctx context.Context, exists ExistsFunc, title string, maxProbes int) (string, error) {
	if maxProbes <= 0 {
		maxProbes = DefaultMaxProbes
	}
	base := Generate(title)
	for n := 1; n <= maxProbes; n++ {
		candidate := Candidate(base, n)
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("checking slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %q after %d probes", ErrExhausted, base, maxProbes)
}
