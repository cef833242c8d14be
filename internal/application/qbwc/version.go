package qbwc

import (
	"strconv"
	"strings"
)

// compareVersions orders dotted numeric versions such as "2.3.0.215".
// Missing parts count as zero and non-numeric parts compare as zero.
func compareVersions(a, b string) int {
	pa := strings.Split(strings.TrimSpace(a), ".")
	pb := strings.Split(strings.TrimSpace(b), ".")
	n := max(len(pa), len(pb))
	for i := 0; i < n; i++ {
		va, vb := versionPart(pa, i), versionPart(pb, i)
		switch {
		case va < vb:
			return -1
		case va > vb:
			return 1
		}
	}
	return 0
}

func versionPart(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	v, err := strconv.Atoi(parts[i])
	if err != nil {
		return 0
	}
	return v
}
