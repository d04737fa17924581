package classify

// Cue lists for sentence classification. Matching is case-insensitive over
// the raw sentence, so multi-word cues stay intact.

var factualCues = []string{
	"announced", "confirmed", "reported", "stated", "revealed", "declared",
	"according to", "data shows", "statistics", "figures", "study found",
	"survey", "research shows", "percent", "%", "million", "billion",
	"officials", "ministry", "government", "spokesperson", "authorities",
	"court ruled", "signed", "approved", "launched", "released",
}

var opinionCues = []string{
	"believe", "think", "feel", "argue", "suggest", "seems", "appears",
	"likely", "probably", "perhaps", "maybe", "should", "must", "ought",
	"opinion", "controversial", "remarkable", "surprising", "unfortunately",
	"fortunately", "disappointing", "impressive", "worrying", "hope",
}

var contextCues = []string{
	"according to", "experts say", "analysts", "in context", "meanwhile",
	"officials said", "sources said", "in comparison", "by contrast",
	"at the same time",
}

var backgroundCues = []string{
	"since", "founded", "historically", "previously", "began", "originally",
	"history of", "timeline", "last year", "in recent years", "decades",
	"was established", "dates back",
}

var positiveWords = map[string]struct{}{
	"good": {}, "great": {}, "excellent": {}, "positive": {}, "success": {},
	"successful": {}, "win": {}, "growth": {}, "improve": {}, "improved": {},
	"strong": {}, "benefit": {}, "progress": {}, "hope": {}, "gain": {},
	"boost": {}, "record": {}, "best": {}, "breakthrough": {}, "recovery": {},
}

var negativeWords = map[string]struct{}{
	"bad": {}, "poor": {}, "negative": {}, "failure": {}, "fail": {},
	"loss": {}, "crisis": {}, "decline": {}, "weak": {}, "threat": {},
	"risk": {}, "concern": {}, "fear": {}, "worst": {}, "damage": {},
	"collapse": {}, "crash": {}, "deaths": {}, "conflict": {}, "disaster": {},
}
