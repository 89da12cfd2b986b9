package filespec

// score is the lexicographic tuple used to rank candidate types against an
// unlabeled header set.
type score struct {
	oneOfOK      int // alternative groups satisfied
	requiredHits int // required fields present
	totalHits    int // all relevant fields present
	missingNeg   int // negative count of required fields missing
}

func (a score) less(b score) bool {
	if a.oneOfOK != b.oneOfOK {
		return a.oneOfOK < b.oneOfOK
	}
	if a.requiredHits != b.requiredHits {
		return a.requiredHits < b.requiredHits
	}
	if a.totalHits != b.totalHits {
		return a.totalHits < b.totalHits
	}
	return a.missingNeg < b.missingNeg
}

// GuessFileType infers the file type of an unlabeled header set by
// header-overlap scoring. Ties keep the first-registered type. Returns
// ok=false when no type shares a required field with the headers.
func GuessFileType(headers []string) (FileType, bool) {
	if len(headers) == 0 {
		return "", false
	}

	var best FileType
	bestScore := score{oneOfOK: -1, requiredHits: -1, totalHits: -1}

	for _, ft := range All() {
		mapped := map[string]bool{}
		for _, h := range headers {
			mapped[ResolveField(h, ft)] = true
		}
		spec := registry[ft]

		var s score
		for _, r := range spec.Required {
			if mapped[r] {
				s.requiredHits++
			} else {
				s.missingNeg--
			}
		}
		scope := map[string]bool{}
		for _, r := range spec.Required {
			scope[r] = true
		}
		for _, g := range spec.OneOf {
			if anyPresent(mapped, g) {
				s.oneOfOK++
			}
			for _, c := range g {
				scope[c] = true
			}
		}
		for c := range scope {
			if mapped[c] {
				s.totalHits++
			}
		}

		if bestScore.less(s) {
			bestScore, best = s, ft
		}
	}

	if bestScore.requiredHits == 0 {
		return "", false
	}
	return best, true
}
