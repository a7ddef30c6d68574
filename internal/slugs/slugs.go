// Package slugs generates the human-readable component of a deployment's
// public URL ({slug}.{base_domain}).
package slugs

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

// adjectives and nouns form the wordlist. kept short deliberately: the
// uniqueness comes from the hex suffix, not wordlist size. words are chosen
// to be unambiguous when spoken aloud and safe in a professional context.
var adjectives = []string{
	"amber", "azure", "bold", "calm", "cedar", "clean", "clear",
	"crisp", "dawn", "dusk", "emerald", "fair", "firm", "fleet",
	"frost", "gold", "grand", "green", "grey", "iron", "jade",
	"keen", "lark", "lean", "light", "lunar", "maple", "mist",
	"noble", "north", "oak", "onyx", "open", "peak", "pine",
	"plain", "prime", "quick", "quiet", "rapid", "regal", "ridge",
	"river", "rose", "ruby", "sage", "sand", "sharp", "shore",
	"silk", "silver", "slate", "solar", "solid", "stark", "steel",
	"stone", "storm", "swift", "teal", "terra", "tidal", "true",
	"vale", "vast", "warm", "white", "wild", "wind",
}

var nouns = []string{
	"arc", "bay", "beam", "bird", "blade", "bloom", "bolt", "bond",
	"brook", "cliff", "cloud", "coast", "core", "crest", "crow",
	"dale", "dawn", "delta", "dune", "dust", "echo", "edge", "fern",
	"field", "flame", "flare", "fleet", "flow", "fog", "ford",
	"forge", "fox", "frost", "gale", "gate", "glen", "grove", "gust",
	"hawk", "hill", "horizon", "isle", "keep", "lake", "lark", "leaf",
	"light", "line", "lynx", "mast", "mesa", "mill", "mist", "moon",
	"moss", "mount", "node", "ore", "path", "peak", "pine", "plain",
	"pond", "pool", "port", "pulse", "ridge", "rift", "rise", "river",
	"rock", "root", "run", "sand", "seed", "shore", "sky", "slope",
	"snow", "sol", "spark", "spire", "spring", "star", "stem", "step",
	"stone", "stream", "sun", "surf", "surge", "tide", "trail", "tree",
	"vale", "veil", "vine", "wake", "wave", "wind", "wing", "wood",
}

// Generate returns a URL-safe slug in the form "adjective-noun-xxxx", where
// xxxx is the first 4 hex characters of a fresh UUID. Collisions are
// possible in principle; neither this package nor its caller checks for
// them.
func Generate() string {
	adjective := adjectives[rand.IntN(len(adjectives))]
	noun := nouns[rand.IntN(len(nouns))]
	suffix := uuid.New().String()[:4]
	return fmt.Sprintf("%s-%s-%s", adjective, noun, suffix)
}
