package ocr

import (
	"regexp"
	"strings"
)

var (
	rePhone    = regexp.MustCompile(`\(?\d{2}\)?\s?9?\d{4}[-\s]?\d{4}`)
	reEmail    = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.]+`)
	reMoney    = regexp.MustCompile(`r\$\s*\d`)
	reKeywords = regexp.MustCompile(`\b(vagas?|cargo|requisitos|benef[ií]cios|sal[aá]rio|hor[aá]rio|contrata)\b`)
)

// naive heuristic confidence for job flyers: boost for contact data,
// money and the usual headings.
func heuristicConfidence(txt string) float32 {
	txtL := strings.ToLower(txt)
	score := float32(0.2) // base
	if rePhone.MatchString(txtL) {
		score += 0.15
	}
	if reEmail.MatchString(txtL) {
		score += 0.15
	}
	if reMoney.MatchString(txtL) {
		score += 0.1
	}
	if reKeywords.MatchString(txtL) {
		score += 0.2
	}
	if len(txt) > 120 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
