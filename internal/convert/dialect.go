package convert

import (
	"bufio"
	"bytes"
	"strings"
)

// Dialect is the delimiter and quote convention used to parse a CSV file.
type Dialect struct {
	Comma rune
	Quote rune
}

// candidateDelimiters are tried in order when sniffing; the first is also
// the fallback when the sample is inconclusive.
var candidateDelimiters = []rune{',', ';', '\t', '|'}

const sniffSampleSize = 4096

// SniffDialect determines the dialect for raw. Non-empty overrides win;
// otherwise the delimiter is chosen by counting candidate runes outside
// quoted regions across the first few lines and picking the one that appears
// most consistently. The quote character defaults to a double quote.
func SniffDialect(raw []byte, delimiterOverride, quoteOverride string) Dialect {
	d := Dialect{Comma: ',', Quote: '"'}
	if quoteOverride != "" {
		d.Quote = []rune(quoteOverride)[0]
	}
	if delimiterOverride != "" {
		d.Comma = []rune(delimiterOverride)[0]
		return d
	}

	sample := raw
	if len(sample) > sniffSampleSize {
		sample = sample[:sniffSampleSize]
	}

	best := rune(0)
	bestScore := 0
	for _, cand := range candidateDelimiters {
		score := delimiterScore(sample, cand, d.Quote)
		if score > bestScore {
			best = cand
			bestScore = score
		}
	}
	if best != 0 {
		d.Comma = best
	}
	return d
}

// delimiterScore counts occurrences of cand outside quoted regions, but only
// when every sampled line agrees on the count. Lines that disagree suggest
// cand is data, not structure.
func delimiterScore(sample []byte, cand, quote rune) int {
	scanner := bufio.NewScanner(bytes.NewReader(sample))
	scanner.Buffer(make([]byte, sniffSampleSize), sniffSampleSize)

	perLine := -1
	lines := 0
	for scanner.Scan() && lines < 10 {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		count := countUnquoted(line, cand, quote)
		if perLine == -1 {
			perLine = count
		} else if count != perLine {
			return 0
		}
		lines++
	}
	if perLine <= 0 || lines == 0 {
		return 0
	}
	return perLine * lines
}

func countUnquoted(line string, cand, quote rune) int {
	count := 0
	inQuote := false
	for _, r := range line {
		switch {
		case r == quote:
			inQuote = !inQuote
		case r == cand && !inQuote:
			count++
		}
	}
	return count
}
