package graph

import (
	rgerrors "github.com/matzehuels/recipegraph/pkg/errors"
	"github.com/matzehuels/recipegraph/pkg/recipe"
)

// Report describes how a [Build] call treated its input.
type Report struct {
	// Accepted is the number of records added to the graph.
	Accepted int
	// Skipped holds one MALFORMED_RECORD error per rejected record.
	Skipped []error
	// Isolated lists products whose record had no ingredients.
	Isolated []string
}

// Build constructs a graph from records. Malformed records are skipped and
// reported; they never abort the build.
func Build(records []recipe.Record) (*Graph, Report) {
	g := New()
	return g, g.Add(records)
}

// Add applies records to an existing graph in order. A rejected record leaves
// the graph untouched.
func (g *Graph) Add(records []recipe.Record) Report {
	var r Report
	for i, rec := range records {
		if err := rec.Validate(); err != nil {
			r.Skipped = append(r.Skipped, rgerrors.Wrap(rgerrors.ErrCodeMalformedRecord, err, "record %d", i))
			continue
		}
		if err := g.addRecord(rec); err != nil {
			r.Skipped = append(r.Skipped, rgerrors.Wrap(rgerrors.ErrCodeMalformedRecord, err, "record %d", i))
			continue
		}
		r.Accepted++
		if len(rec.Ingredients) == 0 {
			r.Isolated = append(r.Isolated, rec.Product)
		}
	}
	return r
}

func (g *Graph) addRecord(rec recipe.Record) error {
	from, err := g.Upsert(rec.Product, RoleProduct)
	if err != nil {
		return err
	}
	for _, in := range rec.Ingredients {
		to, err := g.Upsert(in.Name, RoleIngredient)
		if err != nil {
			return err
		}
		if err := g.SetEdge(from, to, in.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// IsolatedError reports an isolated product as a DISCONNECTED_INPUT
// diagnostic. It is meant for logging, not for aborting.
func IsolatedError(product string) error {
	return rgerrors.New(rgerrors.ErrCodeDisconnectedInput, "product %q has no ingredients", product)
}
