package orchestrator

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/specialistvlad/storeysplit/internal/entity"
)

// SanitizeLabel keeps letters, digits, spaces, hyphens and underscores,
// trims the result and turns the remaining spaces into underscores.
func SanitizeLabel(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
}

// DisplayName returns the container's name attribute, or the fallback
// Storey_<idx> used for unnamed containers.
func DisplayName(c *entity.Entity, attr string, idx int) string {
	if v, ok := c.Attr(attr); ok {
		if name, ok := v.StringValue(); ok && strings.TrimSpace(name) != "" {
			return name
		}
	}
	return fmt.Sprintf("Storey_%d", idx)
}

// assignLabels derives one artifact label per container. Labels that would
// collide get the container id appended, then a counter if the suffixed
// label is itself taken.
func assignLabels(containers []*entity.Entity, attr string) []string {
	labels := make([]string, len(containers))
	counts := make(map[string]int, len(containers))
	for i, c := range containers {
		label := SanitizeLabel(DisplayName(c, attr, i))
		if label == "" {
			label = fmt.Sprintf("Storey_%d", i)
		}
		labels[i] = label
		counts[label]++
	}

	taken := make(map[string]bool, len(containers))
	for _, label := range labels {
		if counts[label] == 1 {
			taken[label] = true
		}
	}
	for i, c := range containers {
		if counts[labels[i]] == 1 {
			continue
		}
		base := fmt.Sprintf("%s_%d", labels[i], c.ID)
		label := base
		for n := 2; taken[label]; n++ {
			label = fmt.Sprintf("%s_%d", base, n)
		}
		taken[label] = true
		labels[i] = label
	}
	return labels
}

// ArtifactName joins the input stem and a label into an output file name.
func ArtifactName(stem, label string) string {
	if stem == "" {
		return label + ".ifc"
	}
	return stem + "_" + label + ".ifc"
}
