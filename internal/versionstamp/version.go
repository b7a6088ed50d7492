// Package versionstamp rewrites assembly version attributes in AssemblyInfo
// source files.
package versionstamp

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a four-part assembly version.
type Version struct {
	Major    int
	Minor    int
	Build    int
	Revision int
}

// ParseVersion parses "major[.minor[.build[.revision]]]". Missing trailing
// components are 0, so "2.1" is 2.1.0.0.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, fmt.Errorf("version cannot be empty")
	}

	parts := strings.Split(s, ".")
	if len(parts) > 4 {
		return Version{}, fmt.Errorf("version %q has %d components, at most 4 allowed", s, len(parts))
	}

	var nums [4]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Version{}, fmt.Errorf("version %q: component %d (%q) is not a number", s, i+1, part)
		}
		if n < 0 {
			return Version{}, fmt.Errorf("version %q: component %d must be >= 0", s, i+1)
		}
		nums[i] = n
	}

	return Version{Major: nums[0], Minor: nums[1], Build: nums[2], Revision: nums[3]}, nil
}

// String returns the dotted four-part form.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}
