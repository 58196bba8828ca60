package vocabulary

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	DefaultAssetBaseURL = "https://storage.cloud.google.com/omdena-videos/skeletons-webm"
	DefaultAssetExt     = "webm"
	DefaultWord         = "Senyum"
)

// DefaultWords are the BISINDO words with a recorded skeleton animation.
var DefaultWords = []string{
	"adik", "anak", "besar", "buka", "buruk", "dengar", "gembira", "guru",
	"haus", "ibu", "jalan", "keluarga", "kertas", "kucing", "lapar", "lihat",
	"maaf", "main", "makan", "marah", "minum", "nama", "orang", "panggil",
	"rumah", "sedikit", "selamat", "senyum", "teman", "tidur",
}

// Entry is the resolution of a typed word against the vocabulary.
type Entry struct {
	Input    string `json:"input"`
	Word     string `json:"word"`
	Display  string `json:"display"`
	Known    bool   `json:"known"`
	AssetURL string `json:"asset_url,omitempty"`
}

type Vocabulary struct {
	words   map[string]struct{}
	sorted  []string
	baseURL string
	ext     string
}

func New(words []string, baseURL, ext string) *Vocabulary {
	if len(words) == 0 {
		words = DefaultWords
	}
	if baseURL == "" {
		baseURL = DefaultAssetBaseURL
	}
	if ext == "" {
		ext = DefaultAssetExt
	}

	v := &Vocabulary{
		words:   make(map[string]struct{}, len(words)),
		baseURL: strings.TrimRight(baseURL, "/"),
		ext:     strings.TrimPrefix(ext, "."),
	}
	for _, w := range words {
		w = normalize(w)
		if w == "" {
			continue
		}
		if _, ok := v.words[w]; ok {
			continue
		}
		v.words[w] = struct{}{}
		v.sorted = append(v.sorted, w)
	}
	sort.Strings(v.sorted)
	return v
}

func (v *Vocabulary) Words() []string {
	out := make([]string, len(v.sorted))
	copy(out, v.sorted)
	return out
}

func (v *Vocabulary) Contains(input string) bool {
	_, ok := v.words[normalize(input)]
	return ok
}

// Lookup resolves input case-insensitively. Unknown words get no asset URL.
func (v *Vocabulary) Lookup(input string) Entry {
	word := normalize(input)
	entry := Entry{
		Input:   input,
		Word:    word,
		Display: v.Display(input),
	}
	if _, ok := v.words[word]; ok {
		entry.Known = true
		entry.AssetURL = v.assetURL(word)
	}
	return entry
}

// AssetURL returns "" for words outside the vocabulary.
func (v *Vocabulary) AssetURL(input string) string {
	word := normalize(input)
	if _, ok := v.words[word]; !ok {
		return ""
	}
	return v.assetURL(word)
}

// Display title-cases input. Casers are stateful, so each call gets its own.
func (v *Vocabulary) Display(input string) string {
	return cases.Title(language.Und).String(strings.TrimSpace(input))
}

func (v *Vocabulary) assetURL(word string) string {
	return v.baseURL + "/" + word + "." + v.ext
}

func normalize(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}
