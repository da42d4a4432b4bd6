// Package resources loads and fetches the reference tables used during
// interpretation: the AMRFinderPlus gene hierarchy and database version,
// the subclass to drug conversion table, the CARD drug class map and the
// optional sample to organism map.
package resources

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/tsv"

	"github.com/amrrules-interpreter/internal/domain"
	"github.com/amrrules-interpreter/internal/tsvio"
)

// Hierarchy table columns.
const (
	ColNodeID       = "node_id"
	ColParentNodeID = "parent_node_id"
)

// ReadHierarchy parses ReferenceGeneHierarchy.txt.
func ReadHierarchy(r io.Reader) (*domain.GeneHierarchy, error) {
	tr, err := tsvio.NewTableReader(r, "gene hierarchy", ColNodeID, ColParentNodeID)
	if err != nil {
		return nil, err
	}
	parents := make(map[string]string)
	for {
		row, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		node := row.Get(ColNodeID)
		if node == "" {
			continue
		}
		parents[node] = row.Get(ColParentNodeID)
	}
	return domain.NewGeneHierarchy(parents), nil
}

// conversionRow is one line of the AMRFinderPlus subclass to CARD drug
// conversion table.
type conversionRow struct {
	Subclass  string `tsv:"AFP_Subclass"`
	Drug      string `tsv:"CARD drug"`
	DrugClass string `tsv:"CARD drug class"`
}

// ReadConversion adds the subclass conversion table to catalog.
func ReadConversion(r io.Reader, catalog *domain.DrugCatalog) (int, error) {
	reader := tsv.NewReader(r)
	reader.HasHeaderRow = true
	reader.UseHeaderNames = true

	n := 0
	for {
		var row conversionRow
		if err := reader.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return n, fmt.Errorf("drug conversion table: %w", err)
		}
		catalog.AddConversion(row.Subclass, row.Drug, row.DrugClass)
		n++
	}
	return n, nil
}

// drugClassRow is one line of the drug to drug class map.
type drugClassRow struct {
	Drug      string `tsv:"drug"`
	DrugClass string `tsv:"drug class"`
}

// ReadDrugClasses adds a drug to class map to catalog.
func ReadDrugClasses(r io.Reader, catalog *domain.DrugCatalog) (int, error) {
	reader := tsv.NewReader(r)
	reader.HasHeaderRow = true
	reader.UseHeaderNames = true

	n := 0
	for {
		var row drugClassRow
		if err := reader.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return n, fmt.Errorf("drug class map: %w", err)
		}
		catalog.AddDrugClass(row.Drug, row.DrugClass)
		n++
	}
	return n, nil
}

// WriteDrugClasses writes a drug to class map readable by ReadDrugClasses.
// Rows are written in the order of drugs.
func WriteDrugClasses(w io.Writer, drugs []string, classOf map[string]string) error {
	out := tsv.NewWriter(w)
	out.WriteString("drug")
	out.WriteString("drug class")
	if err := out.EndLine(); err != nil {
		return err
	}
	for _, d := range drugs {
		out.WriteString(d)
		out.WriteString(classOf[d])
		if err := out.EndLine(); err != nil {
			return err
		}
	}
	return out.Flush()
}

// organismRow is one line of a sample to organism map.
type organismRow struct {
	Sample   string `tsv:"sample"`
	Organism string `tsv:"organism"`
}

// ReadOrganismMap parses a sample to organism table into an assignment. A
// sample listed under two organisms fails with
// domain.ErrDuplicateSampleOrganism.
func ReadOrganismMap(r io.Reader, defaultOrganism string) (domain.OrganismAssignment, error) {
	reader := tsv.NewReader(r)
	reader.HasHeaderRow = true
	reader.UseHeaderNames = true

	var pairs [][2]string
	for {
		var row organismRow
		if err := reader.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return domain.OrganismAssignment{}, fmt.Errorf("organism map: %w", err)
		}
		sample := strings.TrimSpace(row.Sample)
		if sample == "" {
			continue
		}
		pairs = append(pairs, [2]string{sample, strings.TrimSpace(row.Organism)})
	}
	return domain.NewOrganismAssignment(defaultOrganism, pairs)
}
