package segment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/brieflink/core"
)

func paths(args []core.Argument) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = a.Path
	}
	return out
}

func TestExtractArguments_RomanHeading(t *testing.T) {
	text := strings.Join([]string{
		"II. STATEMENT OF THE CASE",
		"The defendant was charged.",
		"III. ARGUMENT",
		"  A. Waived issue",
		"    1. Prosecutor misstated",
	}, "\n")

	args := ExtractArguments(text)
	require.Len(t, args, 3)

	assert.Equal(t, []string{"III", "III.A", "III.A.1"}, paths(args))
	assert.Equal(t, []int{1, 2, 3}, []int{args[0].Level, args[1].Level, args[2].Level})
	assert.Equal(t, -1, args[0].ParentIndex)
	assert.Equal(t, 0, args[1].ParentIndex)
	assert.Equal(t, 1, args[2].ParentIndex)
	assert.Equal(t, "Waived issue", args[1].Title)
	assert.Equal(t, "Prosecutor misstated", args[2].Title)
	assert.Equal(t, 3, args[0].Line)
	assert.Equal(t, 5, args[2].Line)
}

func TestExtractArguments_UnnumberedHeading(t *testing.T) {
	text := strings.Join([]string{
		"TABLE OF CONTENTS",
		"ARGUMENT ........................ 5",
		"I. THE TRIAL COURT ERRED ........ 5",
		"",
		"ARGUMENT",
		"I. THE TRIAL COURT ERRED",
		"A. Standard of review",
		"Review is de novo.",
		"B. The instruction was wrong",
		"1. It misstated the law",
		"2. It was prejudicial",
		"a. Closing argument",
		"II. THE STATE'S EVIDENCE WAS INSUFFICIENT",
		"A. Elements",
		"CONCLUSION",
		"I. Should not be read",
	}, "\n")

	args := ExtractArguments(text)

	assert.Equal(t, []string{
		"I", "I.A", "I.B", "I.B.1", "I.B.2", "I.B.2.a", "II", "II.A",
	}, paths(args))

	levels := make([]int, len(args))
	positions := make([]int, len(args))
	for i, a := range args {
		levels[i] = a.Level
		positions[i] = a.Position
	}
	assert.Equal(t, []int{1, 2, 2, 3, 3, 4, 1, 2}, levels)
	assert.Equal(t, []int{1, 1, 2, 1, 2, 1, 2, 1}, positions)
	assert.Equal(t, 6, args[0].Line)
}

func TestExtractArguments_LetterNumeralAmbiguity(t *testing.T) {
	text := strings.Join([]string{
		"IV. ARGUMENT",
		"A. First point",
		"B. Second point",
		"C. Third point",
		"(1) Nested in parentheses",
		"V. CONCLUSION",
		"A. Not part of the argument",
	}, "\n")

	args := ExtractArguments(text)
	assert.Equal(t, []string{"IV", "IV.A", "IV.B", "IV.C", "IV.C.1"}, paths(args))
	assert.Equal(t, 3, args[3].Position)
}

func TestExtractArguments_SubheadingNamedLikeSection(t *testing.T) {
	text := strings.Join([]string{
		"ARGUMENT",
		"A. Facts",
		"B. Prejudice",
		"CONCLUSION",
	}, "\n")

	args := ExtractArguments(text)
	assert.Equal(t, []string{"A", "B"}, paths(args))
	assert.Equal(t, 1, args[0].Level)
}

func TestExtractArguments_NoArgumentSection(t *testing.T) {
	assert.Empty(t, ExtractArguments("I. INTRODUCTION\nA. Something\n"))
	assert.Empty(t, ExtractArguments(""))
}
