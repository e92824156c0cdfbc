// Package stopwords provides per-language stop-word lists behind an
// explicit cache service. The cache has a get-or-load contract: the first
// caller to request a language performs the load, concurrent requesters
// share that one load, and a list is never stored twice.
package stopwords

import (
	"strings"
	"sync"

	"github.com/pulsarml/pulsar/pkg/errors"
)

// Loader produces the raw word list for a language.
type Loader func(language string) ([]string, error)

// Cache is a thread-safe, lazily populated stop-word list cache keyed by
// language.
type Cache struct {
	load Loader

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	once sync.Once
	set  map[string]struct{}
	err  error
}

// NewCache creates a cache backed by the given loader.
func NewCache(load Loader) *Cache {
	return &Cache{load: load, entries: make(map[string]*entry)}
}

// Default returns a cache over the built-in lists.
func Default() *Cache {
	return NewCache(builtinList)
}

// Get returns the stop-word set for a language, loading it on first use.
// Lookup keys are lower-cased words.
func (c *Cache) Get(language string) (map[string]struct{}, error) {
	key := strings.ToLower(language)

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		words, err := c.load(key)
		if err != nil {
			e.err = err
			return
		}
		set := make(map[string]struct{}, len(words))
		for _, w := range words {
			set[strings.ToLower(w)] = struct{}{}
		}
		e.set = set
	})
	return e.set, e.err
}

// Set builds a stop-word set from an explicit word list.
func Set(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

func builtinList(language string) ([]string, error) {
	list, ok := builtin[language]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeConfig, "no predefined stop words for language %q", language)
	}
	return list, nil
}

// Languages returns the languages with built-in lists.
func Languages() []string {
	out := make([]string, 0, len(builtin))
	for lang := range builtin {
		out = append(out, lang)
	}
	return out
}

var builtin = map[string][]string{
	"english": {
		"a", "about", "above", "after", "again", "all", "an", "and", "any",
		"are", "as", "at", "be", "because", "been", "before", "being",
		"below", "between", "both", "but", "by", "can", "did", "do", "does",
		"doing", "down", "during", "each", "few", "for", "from", "further",
		"had", "has", "have", "having", "he", "her", "here", "hers", "him",
		"his", "how", "i", "if", "in", "into", "is", "it", "its", "just",
		"me", "more", "most", "my", "no", "nor", "not", "now", "of", "off",
		"on", "once", "only", "or", "other", "our", "out", "over", "own",
		"same", "she", "so", "some", "such", "than", "that", "the", "their",
		"them", "then", "there", "these", "they", "this", "those", "through",
		"to", "too", "under", "until", "up", "very", "was", "we", "were",
		"what", "when", "where", "which", "while", "who", "why", "with",
		"you", "your",
	},
	"french": {
		"au", "aux", "avec", "ce", "ces", "dans", "de", "des", "du", "elle",
		"en", "et", "eux", "il", "je", "la", "le", "les", "leur", "lui",
		"ma", "mais", "me", "mes", "moi", "mon", "ne", "nos", "notre",
		"nous", "on", "ou", "par", "pas", "pour", "qu", "que", "qui", "sa",
		"se", "ses", "son", "sur", "ta", "te", "tes", "toi", "ton", "tu",
		"un", "une", "vos", "votre", "vous",
	},
	"german": {
		"aber", "als", "am", "an", "auch", "auf", "aus", "bei", "bin",
		"bis", "da", "das", "dem", "den", "der", "des", "die", "doch",
		"du", "ein", "eine", "einem", "einen", "einer", "er", "es", "für",
		"hat", "ich", "ihr", "im", "in", "ist", "mit", "nach", "nicht",
		"noch", "nur", "oder", "sich", "sie", "sind", "so", "um", "und",
		"von", "vor", "war", "was", "wie", "wir", "zu", "zum", "zur",
	},
	"spanish": {
		"a", "al", "algo", "como", "con", "de", "del", "donde", "el",
		"ella", "ellas", "ellos", "en", "entre", "era", "es", "esta",
		"este", "ha", "hay", "la", "las", "le", "lo", "los", "mas", "me",
		"mi", "muy", "no", "nos", "o", "para", "pero", "por", "que", "se",
		"sin", "sobre", "su", "sus", "te", "tu", "un", "una", "uno", "y",
		"ya", "yo",
	},
	"italian": {
		"a", "ad", "al", "alla", "anche", "che", "chi", "ci", "come",
		"con", "da", "dei", "del", "della", "di", "e", "ed", "era", "gli",
		"ha", "ho", "i", "il", "in", "io", "la", "le", "lei", "lo", "lui",
		"ma", "mi", "ne", "nel", "non", "o", "per", "piu", "quella",
		"quello", "questa", "questo", "se", "si", "sono", "su", "ti", "tra",
		"tu", "un", "una", "uno",
	},
}
