// Copyright 2015 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lexer

import (
	"fmt"
	"strconv"
	"strings"
)

// Unquote returns the value of a short or long quoted string token,
// resolving the escape sequences.
func Unquote(text string) (string, error) {
	if len(text) < 2 {
		return "", fmt.Errorf("lexer.Unquote: invalid string %q", text)
	}
	q := text[0]
	if q != '"' && q != '\'' {
		return "", fmt.Errorf("lexer.Unquote: invalid string %q", text)
	}
	long := strings.Repeat(string(q), 3)
	switch {
	case len(text) >= 6 && strings.HasPrefix(text, long) && strings.HasSuffix(text, long):
		text = text[3 : len(text)-3]
	case text[len(text)-1] == q:
		text = text[1 : len(text)-1]
	default:
		return "", fmt.Errorf("lexer.Unquote: unterminated string %q", text)
	}
	return Unescape(text)
}

// Unescape resolves the string escape sequences of the input.
func Unescape(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", fmt.Errorf("lexer.Unescape: dangling escape in %q", s)
		}
		switch s[i] {
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case '"', '\'', '\\':
			b.WriteByte(s[i])
		case 'u', 'U':
			n := 4
			if s[i] == 'U' {
				n = 8
			}
			if i+n >= len(s) {
				return "", fmt.Errorf("lexer.Unescape: truncated unicode escape in %q", s)
			}
			r, err := strconv.ParseUint(s[i+1:i+1+n], 16, 32)
			if err != nil {
				return "", fmt.Errorf("lexer.Unescape: invalid unicode escape in %q", s)
			}
			b.WriteRune(rune(r))
			i += n
		default:
			return "", fmt.Errorf("lexer.Unescape: unknown escape \\%c in %q", s[i], s)
		}
	}
	return b.String(), nil
}
