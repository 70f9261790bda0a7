package openai

import "strings"

// repairJSON fixes the malformations small local models most often emit:
// keys missing their opening quote (`, description":`), trailing commas
// before a closing bracket, and output cut off before the closing brackets.
func repairJSON(s string) string {
	in := []rune(s)
	out := make([]rune, 0, len(in)+16)
	var stack []rune
	inString, escaped := false, false

	for i := 0; i < len(in); i++ {
		ch := in[i]
		if inString {
			out = append(out, ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
			out = append(out, ch)
		case '{', '[':
			stack = append(stack, ch)
			out = append(out, ch)
			if ch == '{' {
				i = quoteKey(in, i+1, &out) - 1
			}
		case ',':
			out = append(out, ch)
			if len(stack) > 0 && stack[len(stack)-1] == '{' {
				i = quoteKey(in, i+1, &out) - 1
			}
		case '}', ']':
			out = trimTrailingComma(out)
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			out = append(out, ch)
		default:
			out = append(out, ch)
		}
	}

	if inString {
		out = append(out, '"')
	}
	out = trimTrailingComma(out)
	for j := len(stack) - 1; j >= 0; j-- {
		if stack[j] == '{' {
			out = append(out, '}')
		} else {
			out = append(out, ']')
		}
	}
	return string(out)
}

// quoteKey copies whitespace starting at i and, when it finds a bare word
// followed by `":`, emits it with an opening quote. It returns the index of
// the first rune it did not consume.
func quoteKey(in []rune, i int, out *[]rune) int {
	for i < len(in) && strings.ContainsRune(" \n\r\t", in[i]) {
		*out = append(*out, in[i])
		i++
	}
	if i >= len(in) || !isLetter(in[i]) {
		return i
	}
	end := i
	for end < len(in) && (isLetter(in[end]) || in[end] == '_') {
		end++
	}
	if end+1 < len(in) && in[end] == '"' && in[end+1] == ':' {
		*out = append(*out, '"')
		*out = append(*out, in[i:end]...)
		*out = append(*out, '"', ':')
		return end + 2
	}
	return i
}

func trimTrailingComma(out []rune) []rune {
	j := len(out) - 1
	for j >= 0 && strings.ContainsRune(" \n\r\t", out[j]) {
		j--
	}
	if j >= 0 && out[j] == ',' {
		return append(out[:j], out[j+1:]...)
	}
	return out
}
