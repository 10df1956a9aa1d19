package corpus

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/xkilldash9x/finding-dedup/internal/config"
)

var whitespaceRun = regexp.MustCompile(`[ \t\n\r]+`)

// Normalizer cleans up corpus text before it reaches a technique.
type Normalizer struct {
	Unicode                 bool // NFKC normalization
	RemoveLinebreaks        bool
	RemoveSpecialCharacters bool
	RemoveStopwords         bool
}

// NormalizerFromConfig builds the normalizer of a dataset. NFKC is always
// applied to loaded text.
func NormalizerFromConfig(cfg config.DatasetConfig) Normalizer {
	return Normalizer{
		Unicode:                 true,
		RemoveLinebreaks:        cfg.RemoveLinebreaks,
		RemoveSpecialCharacters: cfg.RemoveSpecialCharacters,
		RemoveStopwords:         cfg.RemoveStopwords,
	}
}

// Normalize applies the enabled steps in a fixed order: NFKC, whitespace
// collapsing, special character removal, stop word removal.
func (n Normalizer) Normalize(text string) string {
	if n.Unicode {
		text = norm.NFKC.String(text)
	}
	if n.RemoveLinebreaks {
		text = strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	}
	if n.RemoveSpecialCharacters {
		text = strings.Join(strings.Fields(strings.Map(keepWordRune, text)), " ")
	}
	if n.RemoveStopwords {
		text = RemoveStopwords(text)
	}
	return text
}

// keepWordRune maps everything but letters, digits and whitespace to a space.
func keepWordRune(r rune) rune {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
		return r
	}
	return ' '
}

// RemoveStopwords drops English stop words from a space separated text and
// lower-cases the remaining words.
func RemoveStopwords(text string) string {
	return strings.Join(Tokenize(text), " ")
}

// Tokenize splits text on single spaces, lower-cases every word and drops stop
// words. Empty words produced by repeated spaces are kept out.
func Tokenize(text string) []string {
	words := strings.Split(text, " ")
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(w)
		if w == "" || IsStopword(w) {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// IsStopword reports whether the lower-case word is an English stop word.
func IsStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}

var stopwords = func() map[string]struct{} {
	words := strings.Fields(`
		i me my myself we our ours ourselves you you're you've you'll you'd your
		yours yourself yourselves he him his himself she she's her hers herself it
		it's its itself they them their theirs themselves what which who whom this
		that that'll these those am is are was were be been being have has had
		having do does did doing a an the and but if or because as until while of
		at by for with about against between into through during before after
		above below to from up down in out on off over under again further then
		once here there when where why how all any both each few more most other
		some such no nor not only own same so than too very s t can will just don
		don't should should've now d ll m o re ve y ain aren aren't couldn
		couldn't didn didn't doesn doesn't hadn hadn't hasn hasn't haven haven't
		isn isn't ma mightn mightn't mustn mustn't needn needn't shan shan't
		shouldn shouldn't wasn wasn't weren weren't won won't wouldn wouldn't`)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}()
