// Package reference parses free-form scripture references such as
// "John 3:16; Romans 8:28-30" into normalized book/chapter/verse descriptors.
package reference

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Delimiter separates references in a multi-reference input.
const Delimiter = ";"

// Reference is one normalized lookup. A zero VerseStart selects the whole
// chapter; a zero VerseEnd with VerseStart set selects a single verse.
type Reference struct {
	Book       string `json:"book"`
	Chapter    int    `json:"chapter"`
	VerseStart int    `json:"verse_start,omitempty"`
	VerseEnd   int    `json:"verse_end,omitempty"`
}

// String renders the reference in the syntax accepted by Parse.
func (r Reference) String() string {
	var sb strings.Builder
	sb.WriteString(r.Book)
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(r.Chapter))
	if r.VerseStart > 0 {
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(r.VerseStart))
		if r.VerseEnd > 0 {
			sb.WriteByte('-')
			sb.WriteString(strconv.Itoa(r.VerseEnd))
		}
	}
	return sb.String()
}

// IsChapter reports whether the reference selects a whole chapter.
func (r Reference) IsChapter() bool {
	return r.VerseStart == 0
}

// IsRange reports whether the reference spans more than one verse.
func (r Reference) IsRange() bool {
	return r.VerseEnd > 0
}

// segment is the participle grammar for a single reference.
//
//nolint:govet // participle grammar tags are not standard struct tags
type segment struct {
	Book     string `@Book`
	Chapter  int    `@Number`
	Verse    *int   `( ":" @Number`
	VerseEnd *int   `  ( "-" @Number )? )?`
}

// segmentLexer tokenizes a reference segment.
var segmentLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Book names: optional leading ordinal ("1 ", "1. ", "2"), then one or
	// more words, optional trailing period.
	// Examples: John, 1 John, 1. Mose, Song of Solomon, Römer, Gen.
	{Name: "Book", Pattern: `(?:[1-5]\.?\s*)?\p{L}+(?:\s+\p{L}+)*\.?`},
	{Name: "Number", Pattern: `\d+`},
	{Name: "Punct", Pattern: `[:-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var segmentParser = participle.MustBuild[segment](
	participle.Lexer(segmentLexer),
	participle.Elide("Whitespace"),
)

// dashes are range separators normalized to '-' before lexing.
var dashes = strings.NewReplacer("–", "-", "—", "-", "‐", "-")

// Parser parses references against a BookTable.
type Parser struct {
	books *BookTable
}

// NewParser returns a parser that resolves book names with books.
func NewParser(books *BookTable) *Parser {
	return &Parser{books: books}
}

// DefaultBooks knows the canonical English names plus English and German aliases.
var DefaultBooks = MustBookTable(EnglishAliases, GermanAliases)

var defaultParser = NewParser(DefaultBooks)

// Parse parses text with the default book table.
func Parse(text string) ([]Reference, error) {
	return defaultParser.Parse(text)
}

// Parse splits text on Delimiter and parses every segment in order. The
// first malformed segment aborts the whole parse.
func (p *Parser) Parse(text string) ([]Reference, error) {
	var refs []Reference
	for _, raw := range strings.Split(text, Delimiter) {
		seg := strings.TrimSpace(raw)
		if seg == "" {
			continue
		}
		ref, err := p.parseSegment(seg)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	if len(refs) == 0 {
		return nil, &ParseError{Segment: text, Reason: "empty reference"}
	}
	return refs, nil
}

func (p *Parser) parseSegment(seg string) (Reference, error) {
	parsed, err := segmentParser.ParseString("", dashes.Replace(seg))
	if err != nil {
		return Reference{}, &ParseError{Segment: seg, Reason: "invalid reference syntax", Err: err}
	}

	book, err := p.books.Resolve(parsed.Book)
	if err != nil {
		reason := "unknown book"
		var amb *ambiguousBookError
		if errors.As(err, &amb) {
			reason = "ambiguous book"
		}
		return Reference{}, &ParseError{Segment: seg, Reason: reason, Err: err}
	}

	ref := Reference{Book: book, Chapter: parsed.Chapter}
	if ref.Chapter < 1 {
		return Reference{}, &ParseError{Segment: seg, Reason: "chapter must be positive"}
	}
	if parsed.Verse != nil {
		ref.VerseStart = *parsed.Verse
		if ref.VerseStart < 1 {
			return Reference{}, &ParseError{Segment: seg, Reason: "verse must be positive"}
		}
	}
	if parsed.VerseEnd != nil {
		ref.VerseEnd = *parsed.VerseEnd
		if ref.VerseEnd < ref.VerseStart {
			return Reference{}, &ParseError{Segment: seg, Reason: "verse range ends before it starts"}
		}
		// "John 3:16-16" is a single verse.
		if ref.VerseEnd == ref.VerseStart {
			ref.VerseEnd = 0
		}
	}
	return ref, nil
}

// ParseError reports a segment that could not be parsed.
type ParseError struct {
	Segment string
	Reason  string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %q: %s: %v", e.Segment, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %q: %s", e.Segment, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var errUnknownBook = errors.New("book not recognized")

type ambiguousBookError struct {
	candidates []string
}

func (e *ambiguousBookError) Error() string {
	names := slices.Clone(e.candidates)
	slices.Sort(names)
	return "book matches " + strings.Join(names, ", ")
}
