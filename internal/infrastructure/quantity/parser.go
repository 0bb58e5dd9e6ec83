package quantity

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/width"

	"github.com/kirillkom/meal-nutrition/internal/core/domain"
)

const (
	confidenceExplicitMass = 1.0
	confidenceExplicitUnit = 0.9
	confidencePinch        = 0.8
	confidenceDefaultUnit  = 0.7
	confidenceNoNumber     = 0.6
	confidenceBare         = 0.5
	approxPenalty          = 0.9
)

var (
	numberPattern = regexp.MustCompile(`^(?:(\d+)\s+(\d+)/(\d+)|(\d+)/(\d+)|(\d+(?:\.\d+)?|\.\d+))`)

	fractionReplacer = strings.NewReplacer(
		"½", " 1/2", "⅓", " 1/3", "⅔", " 2/3", "¼", " 1/4", "¾", " 3/4",
		"／", "/", "～", "~", "〜", "~", "（", "(", "）", ")",
	)

	approxPrefixes = []string{"approximately", "approx.", "approx", "about", "around", "roughly", "およそ", "約", "~"}
	sizeWords      = []string{"small", "medium", "large", "big", "小さめ", "大きめ", "小", "中", "大"}

	errNoNumber = errors.New("no number")
)

// numberWords are tried in order, so longer spellings come first.
var numberWords = []struct {
	word  string
	value float64
}{
	{"three", 3}, {"half", 0.5}, {"one", 1}, {"two", 2}, {"an", 1}, {"a", 1}, {"半分", 0.5}, {"半", 0.5},
}

// expr is a parsed quantity expression before confidence is assigned.
type expr struct {
	value          float64
	unit           unitDef
	explicitNumber bool
	explicitUnit   bool
	approx         bool
}

// Parser implements free-text quantity parsing and gram conversion. It holds
// no state and is safe for concurrent use.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// ParseQuantity extracts a value and unit. A missing unit falls back to
// pieces and a missing number to 1, both with reduced confidence. A number
// followed by a short word phrase ("2 apples", "1 large egg") or by the food's
// own name counts pieces. Any other trailing text fails with ErrUnknownUnit;
// text with neither number nor unit fails with ErrQuantityParse.
func (p *Parser) ParseQuantity(text string, food domain.FoodProfile) (domain.ParsedQuantity, error) {
	s := normalizeText(text)
	if s == "" {
		return domain.ParsedQuantity{
			Quantity:   domain.Quantity{Value: 1, Unit: domain.DefaultCountUnit},
			Confidence: confidenceBare,
		}, nil
	}

	e, err := parseExpr(s, food)
	if err != nil {
		return domain.ParsedQuantity{}, err
	}
	return domain.ParsedQuantity{
		Quantity:   domain.Quantity{Value: e.value, Unit: e.unit.canonical},
		Confidence: e.confidence(),
	}, nil
}

func (e expr) confidence() float64 {
	var c float64
	switch {
	case e.unit.kind == domain.UnitKindPinch:
		c = confidencePinch
	case !e.explicitNumber:
		c = confidenceNoNumber
	case !e.explicitUnit:
		c = confidenceDefaultUnit
	case e.unit.kind == domain.UnitKindMass:
		c = confidenceExplicitMass
	default:
		c = confidenceExplicitUnit
	}
	if e.approx {
		c *= approxPenalty
	}
	return c
}

func parseExpr(s string, food domain.FoodProfile) (expr, error) {
	original := s
	var e expr
	s, e.approx = stripApprox(s)

	value, rest, err := leadingNumber(s)
	switch {
	case err == nil:
		e.value = value
		e.explicitNumber = true
	case errors.Is(err, errNoNumber):
		return parseUnitFirst(original, s, e)
	default:
		return expr{}, domain.WrapError(domain.ErrQuantityParse, "parse quantity", fmt.Errorf("%q: %w", original, err))
	}

	rest = strings.TrimSpace(rest)
	if hi, tail, ok := rangeUpper(rest); ok {
		if hi < e.value {
			return expr{}, domain.WrapError(domain.ErrQuantityParse, "parse quantity", fmt.Errorf("%q: descending range", original))
		}
		e.value = (e.value + hi) / 2
		e.approx = true
		rest = tail
	}

	if rest == "" {
		e.unit = unitTable[domain.DefaultCountUnit]
		return e, nil
	}
	sized := stripSizeWord(rest)
	if sized == "" {
		e.unit = unitTable[domain.DefaultCountUnit]
		return e, nil
	}
	if def, _, ok := matchUnitPrefix(sized); ok {
		e.unit = def
		e.explicitUnit = true
		return e, nil
	}
	if def, _, ok := matchUnitPrefix(rest); ok {
		e.unit = def
		e.explicitUnit = true
		return e, nil
	}
	if countsNoun(s, rest, food) {
		e.unit = unitTable[domain.DefaultCountUnit]
		return e, nil
	}
	return expr{}, domain.WrapError(domain.ErrUnknownUnit, "parse quantity", fmt.Errorf("%q: unit %q not recognized", original, rest))
}

// maxNounWords bounds the word phrase accepted after a number in place of a unit.
const maxNounWords = 3

// countsNoun reports whether rest, the text after the number in s, names what
// is being counted rather than a unit. A phrase set off by a space must be
// plain words; an attached one must name the food itself.
func countsNoun(s, rest string, food domain.FoodProfile) bool {
	at := len(s) - len(rest)
	separated := at > 0 && s[at-1] == ' '
	words := strings.Fields(rest)
	if len(words) == 0 || len(words) > maxNounWords {
		return false
	}
	for _, w := range words {
		if !isWord(w) {
			return false
		}
	}
	return separated || namesFood(rest, food)
}

func isWord(w string) bool {
	for _, r := range w {
		if !unicode.IsLetter(r) && r != '-' && r != '\'' {
			return false
		}
	}
	return true
}

func namesFood(phrase string, food domain.FoodProfile) bool {
	phrase = strings.TrimSuffix(phrase, "s")
	names := append([]string{food.Name}, food.Aliases...)
	for _, name := range names {
		n := normalizeText(name)
		if n == "" {
			continue
		}
		if strings.Contains(n, phrase) || strings.Contains(phrase, n) {
			return true
		}
	}
	return false
}

// parseUnitFirst handles "大さじ2", "cup", "少々" and other forms without a
// leading number.
func parseUnitFirst(original, s string, e expr) (expr, error) {
	def, rest, ok := matchUnitPrefix(stripSizeWord(s))
	if !ok {
		return expr{}, domain.WrapError(domain.ErrQuantityParse, "parse quantity", fmt.Errorf("%q: no amount or unit", original))
	}
	e.unit = def
	e.explicitUnit = true

	rest = strings.TrimSpace(rest)
	if rest == "" {
		e.value = 1
		return e, nil
	}
	value, tail, err := leadingNumber(rest)
	if err != nil || strings.TrimSpace(tail) != "" {
		return expr{}, domain.WrapError(domain.ErrQuantityParse, "parse quantity", fmt.Errorf("%q: unexpected text after unit", original))
	}
	e.value = value
	e.explicitNumber = true
	return e, nil
}

// leadingNumber reads an integer, decimal, simple or mixed fraction, or a
// number word at the start of s.
func leadingNumber(s string) (float64, string, error) {
	m := numberPattern.FindStringSubmatchIndex(s)
	if m == nil {
		return numberWord(s)
	}
	group := func(i int) string {
		if m[2*i] < 0 {
			return ""
		}
		return s[m[2*i]:m[2*i+1]]
	}
	rest := s[m[1]:]

	switch {
	case group(1) != "":
		whole, _ := strconv.ParseFloat(group(1), 64)
		frac, err := fraction(group(2), group(3))
		if err != nil {
			return 0, "", err
		}
		return whole + frac, rest, nil
	case group(4) != "":
		frac, err := fraction(group(4), group(5))
		if err != nil {
			return 0, "", err
		}
		return frac, rest, nil
	default:
		v, err := strconv.ParseFloat(group(6), 64)
		if err != nil || math.IsInf(v, 0) {
			return 0, "", fmt.Errorf("invalid number %q", group(6))
		}
		return v, rest, nil
	}
}

func fraction(num, den string) (float64, error) {
	n, _ := strconv.ParseFloat(num, 64)
	d, _ := strconv.ParseFloat(den, 64)
	if d == 0 {
		return 0, fmt.Errorf("division by zero in %s/%s", num, den)
	}
	return n / d, nil
}

func numberWord(s string) (float64, string, error) {
	for _, nw := range numberWords {
		if !strings.HasPrefix(s, nw.word) {
			continue
		}
		rest := s[len(nw.word):]
		if isASCIILetter(nw.word[0]) && rest != "" && rest[0] != ' ' {
			continue
		}
		return nw.value, rest, nil
	}
	return 0, s, errNoNumber
}

func rangeUpper(s string) (float64, string, bool) {
	if !strings.HasPrefix(s, "-") && !strings.HasPrefix(s, "~") && !strings.HasPrefix(s, "to ") {
		return 0, s, false
	}
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(strings.TrimPrefix(s, "-"), "~"), "to "))
	hi, rest, err := leadingNumber(s)
	if err != nil {
		return 0, s, false
	}
	return hi, strings.TrimSpace(rest), true
}

func stripApprox(s string) (string, bool) {
	for _, prefix := range approxPrefixes {
		if strings.HasPrefix(s, prefix) {
			return strings.TrimSpace(s[len(prefix):]), true
		}
	}
	return s, false
}

func stripSizeWord(s string) string {
	for _, w := range sizeWords {
		if !strings.HasPrefix(s, w) {
			continue
		}
		rest := strings.TrimSpace(s[len(w):])
		if rest == "" {
			return ""
		}
		// 大さじ and similar units begin with a size character.
		if _, _, ok := matchUnitPrefix(s); ok && !isASCIILetter(w[0]) {
			return s
		}
		return rest
	}
	return s
}

func normalizeText(s string) string {
	s = width.Fold.String(s)
	s = fractionReplacer.Replace(s)
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}
