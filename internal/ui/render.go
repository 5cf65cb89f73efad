package ui

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/papapumpkin/slitforge/internal/catalog"
	"github.com/papapumpkin/slitforge/internal/mask"
	"github.com/papapumpkin/slitforge/internal/result"
	"github.com/papapumpkin/slitforge/internal/store"
)

func grid(w io.Writer, headers []string, rows [][]string) {
	r := lipgloss.NewRenderer(w)
	head := r.NewStyle().Bold(true).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.NewStyle().Faint(true)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return head
			}
			return cell
		})
	fmt.Fprintln(w, t.String())
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// Projects writes a project listing.
func Projects(w io.Writer, ps []store.Project) {
	rows := make([][]string, len(ps))
	for i, p := range ps {
		rows[i] = []string{p.Name, p.Description, p.CreatedAt.Format("2006-01-02 15:04")}
	}
	grid(w, []string{"PROJECT", "DESCRIPTION", "CREATED"}, rows)
}

// Catalog writes every object of c.
func Catalog(w io.Writer, c catalog.Catalog) {
	rows := make([][]string, len(c.Objects))
	for i, o := range c.Objects {
		rows[i] = []string{o.Name, string(o.Kind), num(o.RA), num(o.Dec), strconv.Itoa(o.Priority)}
	}
	grid(w, []string{"NAME", "KIND", "RA", "DEC", "PRI"}, rows)
}

// Masks writes a mask listing.
func Masks(w io.Writer, ms []mask.Mask) {
	rows := make([][]string, len(ms))
	for i, m := range ms {
		slits, holes := m.Counts()
		rows[i] = []string{
			m.Name, string(m.Status), num(m.Setup.Position),
			strconv.Itoa(slits), strconv.Itoa(holes),
			strconv.Itoa(len(m.Included)), strconv.Itoa(len(m.Excluded)),
			m.CreatedAt.Format("2006-01-02 15:04"),
		}
	}
	grid(w, []string{"MASK", "STATUS", "POSITION", "SLITS", "HOLES", "IN", "OUT", "CREATED"}, rows)
}

// Mask writes one mask's details and features.
func Mask(w io.Writer, m mask.Mask) {
	fmt.Fprintf(w, "mask:      %s (%s)\n", m.Name, m.Status)
	fmt.Fprintf(w, "project:   %s\n", m.Project)
	fmt.Fprintf(w, "catalog:   %s\n", m.Setup.Catalog)
	fmt.Fprintf(w, "position:  %s\n", num(m.Setup.Position))
	fmt.Fprintf(w, "included:  %d\n", len(m.Included))
	fmt.Fprintf(w, "excluded:  %d %v\n", len(m.Excluded), m.Excluded)
	for _, a := range m.Artifacts {
		fmt.Fprintf(w, "artifact:  %s\n", a)
	}

	rows := make([][]string, len(m.Features))
	for i, f := range m.Features {
		var g result.Geometry
		shape := ""
		switch v := f.(type) {
		case result.Slit:
			g = v.Geometry
		case result.Hole:
			g, shape = v.Geometry, strconv.Itoa(v.Shape)
		}
		rows[i] = []string{string(f.Kind()), g.ID, num(g.X), num(g.Y), num(g.Width), num(g.ALen), num(g.BLen), num(g.Angle), shape}
	}
	grid(w, []string{"KIND", "ID", "X", "Y", "WIDTH", "A", "B", "ANGLE", "SHAPE"}, rows)
}
