package utils

import "strconv"

const (
	kb = 1 << 10
	mb = 1 << 20
	gb = 1 << 30
)

// FmtMemory renders a byte count as a human readable size for logs.
func FmtMemory(bytes uintptr) string {
	b := int64(bytes)
	switch {
	case b >= gb:
		return strconv.FormatFloat(float64(b)/gb, 'f', 2, 64) + "GB"
	case b >= mb:
		return strconv.FormatFloat(float64(b)/mb, 'f', 2, 64) + "MB"
	case b >= kb:
		return strconv.FormatFloat(float64(b)/kb, 'f', 2, 64) + "KB"
	default:
		return strconv.FormatInt(b, 10) + "B"
	}
}
