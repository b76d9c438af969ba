package recipe

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	rgerrors "github.com/matzehuels/recipegraph/pkg/errors"
)

// ParseLine parses one raw export line of the form
//
//	Product,"2- Iron Ingot,1- Copper Ingot"
//
// A line with no quoted ingredient list yields a record with no
// ingredients. The returned record has already been validated.
func ParseLine(line string) (Record, error) {
	line = strings.TrimSpace(line)
	product, list, hasList := strings.Cut(line, `,"`)
	rec := Record{Product: strings.TrimSpace(product)}

	if hasList {
		list = strings.ReplaceAll(list, `"`, "")
		for _, tok := range strings.Split(list, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			weight, name, ok := strings.Cut(tok, "- ")
			if !ok {
				return Record{}, rgerrors.New(rgerrors.ErrCodeMalformedRecord, "ingredient %q: expected \"<qty>- <name>\"", tok)
			}
			qty, err := strconv.Atoi(strings.TrimSpace(weight))
			if err != nil {
				return Record{}, rgerrors.Wrap(rgerrors.ErrCodeMalformedRecord, err, "ingredient %q: bad quantity", tok)
			}
			rec.Ingredients.Set(strings.TrimSpace(name), qty)
		}
	}

	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ParseText parses raw export lines from r. Blank lines are ignored.
// Lines that fail to parse are skipped; their errors are returned in
// skipped, annotated with the 1-based line number. err is non-nil only
// when r itself fails.
func ParseText(r io.Reader) (records []Record, skipped []error, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, perr := ParseLine(line)
		if perr != nil {
			skipped = append(skipped, rgerrors.Wrap(rgerrors.ErrCodeMalformedRecord, perr, "line %d", lineNo))
			continue
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return records, skipped, rgerrors.Resource(err, "scan line %d", lineNo+1)
	}
	return records, skipped, nil
}

// FormatLine renders a record back into the raw export format.
func FormatLine(rec Record) string {
	if len(rec.Ingredients) == 0 {
		return rec.Product
	}
	parts := make([]string, len(rec.Ingredients))
	for i, ing := range rec.Ingredients {
		parts[i] = strconv.Itoa(ing.Quantity) + "- " + ing.Name
	}
	return rec.Product + `,"` + strings.Join(parts, ",") + `"`
}
