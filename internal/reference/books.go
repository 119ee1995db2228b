package reference

import (
	"fmt"
	"strings"
	"unicode"
)

// CanonicalBooks lists the 66 book names in the form the upstream source expects.
var CanonicalBooks = []string{
	"Genesis", "Exodus", "Leviticus", "Numbers", "Deuteronomy",
	"Joshua", "Judges", "Ruth", "1 Samuel", "2 Samuel",
	"1 Kings", "2 Kings", "1 Chronicles", "2 Chronicles", "Ezra",
	"Nehemiah", "Esther", "Job", "Psalms", "Proverbs",
	"Ecclesiastes", "Song of Solomon", "Isaiah", "Jeremiah", "Lamentations",
	"Ezekiel", "Daniel", "Hosea", "Joel", "Amos",
	"Obadiah", "Jonah", "Micah", "Nahum", "Habakkuk",
	"Zephaniah", "Haggai", "Zechariah", "Malachi",
	"Matthew", "Mark", "Luke", "John", "Acts",
	"Romans", "1 Corinthians", "2 Corinthians", "Galatians", "Ephesians",
	"Philippians", "Colossians", "1 Thessalonians", "2 Thessalonians", "1 Timothy",
	"2 Timothy", "Titus", "Philemon", "Hebrews", "James",
	"1 Peter", "2 Peter", "1 John", "2 John", "3 John",
	"Jude", "Revelation",
}

// EnglishAliases maps common English abbreviations and variants to canonical names.
var EnglishAliases = map[string]string{
	"Gen": "Genesis", "Ex": "Exodus", "Exo": "Exodus", "Exod": "Exodus",
	"Lev": "Leviticus", "Num": "Numbers", "Deut": "Deuteronomy", "Dt": "Deuteronomy",
	"Josh": "Joshua", "Judg": "Judges", "Jdg": "Judges",
	"1 Sam": "1 Samuel", "2 Sam": "2 Samuel", "1 Kgs": "1 Kings", "2 Kgs": "2 Kings",
	"1 Chr": "1 Chronicles", "2 Chr": "2 Chronicles",
	"Neh": "Nehemiah", "Esth": "Esther",
	"Ps": "Psalms", "Psa": "Psalms", "Psalm": "Psalms",
	"Prov": "Proverbs", "Eccl": "Ecclesiastes", "Qoheleth": "Ecclesiastes",
	"Song": "Song of Solomon", "Song of Songs": "Song of Solomon", "Canticles": "Song of Solomon",
	"Isa": "Isaiah", "Jer": "Jeremiah", "Lam": "Lamentations", "Ezek": "Ezekiel",
	"Dan": "Daniel", "Hos": "Hosea", "Obad": "Obadiah", "Mic": "Micah",
	"Nah": "Nahum", "Hab": "Habakkuk", "Zeph": "Zephaniah", "Hag": "Haggai",
	"Zech": "Zechariah", "Mal": "Malachi",
	"Matt": "Matthew", "Mt": "Matthew", "Mk": "Mark", "Lk": "Luke", "Jn": "John",
	"Rom": "Romans", "1 Cor": "1 Corinthians", "2 Cor": "2 Corinthians",
	"Gal": "Galatians", "Eph": "Ephesians", "Phil": "Philippians", "Col": "Colossians",
	"1 Thess": "1 Thessalonians", "2 Thess": "2 Thessalonians",
	"1 Tim": "1 Timothy", "2 Tim": "2 Timothy", "Phlm": "Philemon", "Philem": "Philemon",
	"Heb": "Hebrews", "Jas": "James", "1 Pet": "1 Peter", "2 Pet": "2 Peter",
	"1 Jn": "1 John", "2 Jn": "2 John", "3 Jn": "3 John",
	"Rev": "Revelation", "Revelations": "Revelation", "Apocalypse": "Revelation",
}

// GermanAliases maps German (Luther / Schlachter) book names to canonical names.
var GermanAliases = map[string]string{
	"1. Mose": "Genesis", "2. Mose": "Exodus", "3. Mose": "Leviticus",
	"4. Mose": "Numbers", "5. Mose": "Deuteronomy",
	"Josua": "Joshua", "Richter": "Judges", "Rut": "Ruth",
	"1. Samuel": "1 Samuel", "2. Samuel": "2 Samuel",
	"1. Könige": "1 Kings", "2. Könige": "2 Kings",
	"1. Chronik": "1 Chronicles", "2. Chronik": "2 Chronicles",
	"Esra": "Ezra", "Nehemia": "Nehemiah", "Ester": "Esther", "Hiob": "Job", "Ijob": "Job",
	"Psalmen": "Psalms", "Sprüche": "Proverbs", "Prediger": "Ecclesiastes", "Kohelet": "Ecclesiastes",
	"Hoheslied": "Song of Solomon", "Hohelied": "Song of Solomon",
	"Jesaja": "Isaiah", "Jeremia": "Jeremiah", "Klagelieder": "Lamentations",
	"Hesekiel": "Ezekiel", "Ezechiel": "Ezekiel", "Hosea": "Hosea",
	"Obadja": "Obadiah", "Jona": "Jonah", "Micha": "Micah",
	"Zefanja": "Zephaniah", "Zephanja": "Zephaniah", "Haggai": "Haggai",
	"Sacharja": "Zechariah", "Maleachi": "Malachi",
	"Matthäus": "Matthew", "Markus": "Mark", "Lukas": "Luke", "Johannes": "John",
	"Apostelgeschichte": "Acts", "Römer": "Romans",
	"1. Korinther": "1 Corinthians", "2. Korinther": "2 Corinthians",
	"Galater": "Galatians", "Epheser": "Ephesians", "Philipper": "Philippians",
	"Kolosser": "Colossians", "1. Thessalonicher": "1 Thessalonians",
	"2. Thessalonicher": "2 Thessalonians", "1. Timotheus": "1 Timothy",
	"2. Timotheus": "2 Timothy", "Philemon": "Philemon", "Hebräer": "Hebrews",
	"Jakobus": "James", "1. Petrus": "1 Peter", "2. Petrus": "2 Peter",
	"1. Johannes": "1 John", "2. Johannes": "2 John", "3. Johannes": "3 John",
	"Judas": "Jude", "Offenbarung": "Revelation",
}

// minPrefixLen is the shortest abbreviation resolved by prefix matching.
const minPrefixLen = 3

// BookTable resolves user-supplied book names to canonical names.
type BookTable struct {
	canonical []string
	names     map[string]string
	ambiguous map[string][]string
}

// NewBookTable builds a table from CanonicalBooks plus the given alias maps.
// An alias registered for two different books is kept as ambiguous and
// fails resolution instead of picking one.
func NewBookTable(aliases ...map[string]string) (*BookTable, error) {
	t := &BookTable{
		canonical: CanonicalBooks,
		names:     make(map[string]string, len(CanonicalBooks)),
		ambiguous: make(map[string][]string),
	}
	known := make(map[string]bool, len(CanonicalBooks))
	for _, book := range CanonicalBooks {
		t.names[bookKey(book)] = book
		known[book] = true
	}

	for _, table := range aliases {
		for alias, book := range table {
			if !known[book] {
				return nil, fmt.Errorf("alias %q maps to unknown book %q", alias, book)
			}
			key := bookKey(alias)
			if prev, ok := t.ambiguous[key]; ok {
				t.ambiguous[key] = appendUnique(prev, book)
				continue
			}
			if prev, ok := t.names[key]; ok && prev != book {
				delete(t.names, key)
				t.ambiguous[key] = []string{prev, book}
				continue
			}
			t.names[key] = book
		}
	}
	return t, nil
}

// MustBookTable is like NewBookTable but panics on error.
func MustBookTable(aliases ...map[string]string) *BookTable {
	t, err := NewBookTable(aliases...)
	if err != nil {
		panic(err)
	}
	return t
}

// Resolve returns the canonical name for name.
func (t *BookTable) Resolve(name string) (string, error) {
	key := bookKey(name)
	if key == "" {
		return "", errUnknownBook
	}
	if books, ok := t.ambiguous[key]; ok {
		return "", &ambiguousBookError{candidates: books}
	}
	if book, ok := t.names[key]; ok {
		return book, nil
	}
	if len([]rune(key)) < minPrefixLen {
		return "", errUnknownBook
	}

	var matches []string
	for _, book := range t.canonical {
		if strings.HasPrefix(bookKey(book), key) {
			matches = append(matches, book)
		}
	}
	switch len(matches) {
	case 0:
		return "", errUnknownBook
	case 1:
		return matches[0], nil
	default:
		return "", &ambiguousBookError{candidates: matches}
	}
}

// bookKey folds case and drops periods and whitespace so that
// "1. Mose", "1 mose" and "1Mose" share a key.
func bookKey(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(name) {
		if r == '.' || unicode.IsSpace(r) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
