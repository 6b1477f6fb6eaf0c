package refcontext

import (
	"regexp"
	"strconv"
	"strings"
)

// PositionLast is the sentinel returned for "last"-style references before
// the list length is known.
const PositionLast = -1

// ordinalWords maps ordinal words in the supported languages to 1-indexed
// positions. PositionLast marks final-element references.
var ordinalWords = map[string]int{
	// English
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"last": PositionLast,
	// French
	"premier": 1, "premiere": 1, "première": 1, "deuxieme": 2, "deuxième": 2,
	"troisieme": 3, "troisième": 3, "quatrieme": 4, "quatrième": 4,
	"cinquieme": 5, "cinquième": 5, "dernier": PositionLast, "derniere": PositionLast, "dernière": PositionLast,
	// Darija (Latin script)
	"lowel": 1, "louwel": 1, "tani": 2, "talet": 3, "lekher": PositionLast, "lakher": PositionLast,
	// Arabic script
	"الأول": 1, "الاول": 1, "لول": 1, "الثاني": 2, "التاني": 2,
	"الثالث": 3, "الأخير": PositionLast, "الاخير": PositionLast,
}

var (
	// bareNumberPattern matches a message that is just a number, with optional
	// punctuation ("2", "2.", " 2 ").
	bareNumberPattern = regexp.MustCompile(`^\s*(\d{1,3})\s*[.)]?\s*$`)
	// numberedReferencePattern matches "number 2", "numéro 2", "n° 2",
	// "raqm 2", "رقم 2" and similar phrasings.
	numberedReferencePattern = regexp.MustCompile(`(?i)(?:number|num|numero|numéro|n°|raqm|rqm|رقم)\s*(\d{1,3})`)
)

// ParsePosition extracts a 1-indexed position reference from text, given the
// length of the active list. It recognizes bare numbers, ordinal words in the
// supported languages, and "number N" phrasings; "last" style words resolve to
// the final index. Out-of-range positions yield no match.
func ParsePosition(text string, listLen int) (int, bool) {
	if listLen <= 0 {
		return 0, false
	}

	if m := bareNumberPattern.FindStringSubmatch(text); m != nil {
		return boundPosition(m[1], listLen)
	}
	if m := numberedReferencePattern.FindStringSubmatch(text); m != nil {
		return boundPosition(m[1], listLen)
	}

	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,!?;:()")
		if pos, ok := ordinalWords[tok]; ok {
			if pos == PositionLast {
				return listLen, true
			}
			if pos >= 1 && pos <= listLen {
				return pos, true
			}
			return 0, false
		}
	}
	return 0, false
}

func boundPosition(digits string, listLen int) (int, bool) {
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 || n > listLen {
		return 0, false
	}
	return n, true
}
