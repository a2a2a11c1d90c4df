package chunker

import "unicode/utf8"

// window performs the fixed-size sliding-window fallback split. The window
// equals the configured max size; consecutive windows overlap by the
// configured fraction. Boundaries are adjusted to rune starts, so a window
// can undershoot the bound by a few bytes but never splits a rune.
func (c *Chunker) window(text string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= c.maxSize {
		return []string{text}
	}

	overlap := int(float64(c.maxSize) * c.overlap)
	var parts []string

	for start := 0; start < len(text); {
		end := start + c.maxSize
		if end >= len(text) {
			parts = append(parts, text[start:])
			break
		}
		for end > start && !utf8.RuneStart(text[end]) {
			end--
		}
		parts = append(parts, text[start:end])

		next := end - overlap
		if next <= start {
			next = start + 1
		}
		for next < len(text) && !utf8.RuneStart(text[next]) {
			next++
		}
		start = next
	}

	return parts
}
