// Package lang provides lightweight lexical language detection for inbound
// messages. It produces a set of language tags from raw text without any
// external calls, so it is cheap enough to run on every message.
package lang

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Language tags produced by the tagger.
const (
	TagEnglish = "en"
	TagFrench  = "fr"
	TagArabic  = "ar"
	// TagDarija marks Maghrebi Arabic, either in Arabic script or written in
	// Latin script with digit substitutions ("arabizi", e.g. "b7al", "m3ak").
	TagDarija = "ary"
)

// arabiziPattern matches Latin-script tokens that embed the digit-for-letter
// substitutions characteristic of Maghrebi chat spelling (3=ع, 7=ح, 9=ق).
var arabiziPattern = regexp.MustCompile(`[a-z][379][a-z]|[a-z][379]\b|\b[379][a-z]`)

// Small per-language marker lexicons. These are intentionally high-precision
// everyday words, not exhaustive vocabularies.
var frenchMarkers = map[string]struct{}{
	"bonjour": {}, "bonsoir": {}, "salut": {}, "merci": {}, "combien": {},
	"je": {}, "veux": {}, "voudrais": {}, "acheter": {}, "livraison": {},
	"commande": {}, "produit": {}, "produits": {}, "prix": {}, "rendez-vous": {},
	"aujourd'hui": {}, "demain": {}, "retour": {}, "paiement": {}, "payer": {},
	"disponible": {}, "vous": {}, "est-ce": {}, "svp": {}, "oui": {}, "non": {},
}

var englishMarkers = map[string]struct{}{
	"hello": {}, "hi": {}, "hey": {}, "thanks": {}, "thank": {}, "please": {},
	"the": {}, "want": {}, "need": {}, "buy": {}, "order": {}, "price": {},
	"how": {}, "much": {}, "delivery": {}, "shipping": {}, "return": {},
	"product": {}, "products": {}, "show": {}, "available": {}, "today": {},
	"tomorrow": {}, "book": {}, "appointment": {}, "status": {}, "yes": {}, "no": {},
}

// darijaLatinMarkers are common Darija words as written in Latin script.
var darijaLatinMarkers = map[string]struct{}{
	"wach": {}, "wash": {}, "bghit": {}, "bghi": {}, "chhal": {}, "ch7al": {},
	"chnou": {}, "chno": {}, "kayn": {}, "kayna": {}, "labas": {}, "mzyan": {},
	"daba": {}, "ghda": {}, "lyouma": {}, "salam": {}, "smahli": {}, "afak": {},
	"dyal": {}, "khoya": {}, "sat": {}, "zwin": {}, "zwina": {}, "flous": {},
}

// darijaArabicMarkers are Darija-specific words in Arabic script that do not
// occur in standard Arabic.
var darijaArabicMarkers = map[string]struct{}{
	"واش": {}, "بغيت": {}, "شحال": {}, "كاين": {}, "كاينة": {}, "دابا": {},
	"غدا": {}, "ديال": {}, "مزيان": {}, "زوين": {}, "فلوس": {}, "خويا": {},
}

// Tag detects the set of language tags present in the given text. The result
// is sorted and deduplicated; an empty result means no signal was found and
// the caller should fall back to the tenant's default language.
func Tag(text string) []string {
	tags := make(map[string]struct{})

	if containsArabicScript(text) {
		tags[TagArabic] = struct{}{}
	}

	lower := strings.ToLower(text)
	tokens := tokenize(lower)
	frHits, enHits := 0, 0
	for _, tok := range tokens {
		if _, ok := frenchMarkers[tok]; ok {
			frHits++
		}
		if _, ok := englishMarkers[tok]; ok {
			enHits++
		}
		if _, ok := darijaLatinMarkers[tok]; ok {
			tags[TagDarija] = struct{}{}
		}
		if _, ok := darijaArabicMarkers[tok]; ok {
			tags[TagArabic] = struct{}{}
			tags[TagDarija] = struct{}{}
		}
	}
	if frHits > 0 {
		tags[TagFrench] = struct{}{}
	}
	if enHits > 0 {
		tags[TagEnglish] = struct{}{}
	}
	if arabiziPattern.MatchString(lower) {
		tags[TagDarija] = struct{}{}
	}

	out := make([]string, 0, len(tags))
	for t := range tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Primary returns the single most useful tag from a tag set: Darija wins over
// plain Arabic, and the first tag otherwise. Empty input yields fallback.
func Primary(tags []string, fallback string) string {
	if len(tags) == 0 {
		return fallback
	}
	for _, t := range tags {
		if t == TagDarija {
			return t
		}
	}
	return tags[0]
}

func containsArabicScript(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Arabic, r) {
			return true
		}
	}
	return false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		if r == '\'' || r == '-' {
			return false
		}
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
