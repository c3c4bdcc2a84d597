// Package explain renders the outcome of a run as text: the solution table, the statistics, and,
// when the problem has no solution, the constraints to blame together with every slot they
// depend on.
package explain

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/cottand/qinfer/internal/log"
	"github.com/cottand/qinfer/lattice"
	"github.com/cottand/qinfer/model"
	"github.com/cottand/qinfer/solver"
	"github.com/hashicorp/go-set/v3"
)

var logger = log.DefaultLogger.With("section", "explain")

// ErrUnsupported is returned when there is nothing to explain because the backend named no
// constraints as the cause of unsatisfiability
var ErrUnsupported = errors.New("the backend you used doesn't support explanation feature")

const (
	unsatisfactoryHeader = "------------------ Unsatisfactory Constraints ------------------\n"
	relatedHeader        = "------------- Related Slots -------------\n"
)

// Unsolvable lists the constraints of an unsat core with their locations, followed by every
// non-constant slot they reach, each once
func Unsolvable(slots *model.Slots, constraints []model.Constraint) (string, error) {
	if len(constraints) == 0 {
		return "", ErrUnsupported
	}
	sb := strings.Builder{}
	sb.WriteString(unsatisfactoryHeader)
	for _, c := range constraints {
		fmt.Fprintf(&sb, "\t%s \n\t\t%s\n", c, c.Location())
	}
	sb.WriteString(relatedHeader)
	printer := NewSlotPrinter(slots)
	for _, c := range constraints {
		sb.WriteString(printer.Constraint(c))
	}
	logger.Debug("explained", "constraints", len(constraints), "slots", printer.printed.Size())
	return sb.String(), nil
}

// SlotPrinter prints the slots constraints depend on, transitively. A slot is printed at most once
// per SlotPrinter, after the slots it is derived from
type SlotPrinter struct {
	slots   *model.Slots
	printed *set.Set[model.SlotID]
}

func NewSlotPrinter(slots *model.Slots) *SlotPrinter {
	return &SlotPrinter{slots: slots, printed: set.New[model.SlotID](0)}
}

func (p *SlotPrinter) Constraint(c model.Constraint) string {
	sb := strings.Builder{}
	for _, operand := range c.Operands() {
		sb.WriteString(p.Slot(operand))
	}
	return sb.String()
}

func (p *SlotPrinter) Slot(slot model.Slot) string {
	// marked before descending, so that a cycle leads back to a slot already seen
	if !p.printed.Insert(slot.ID()) {
		return ""
	}
	v, ok := slot.(model.VariableSlot)
	if !ok {
		return ""
	}
	sb := strings.Builder{}
	for _, ref := range slot.References() {
		sb.WriteString(p.Slot(p.slots.Get(ref)))
	}
	fmt.Fprintf(&sb, "\t%s\n\t\t%s\n", v, v.Location())
	return sb.String()
}

// Solutions renders one row per solved slot, in id order, padded to the width of the
// highest slot id
func Solutions(solutions map[model.SlotID]lattice.Qualifier, slotCount int) string {
	width := len(strconv.Itoa(slotCount))
	sb := strings.Builder{}
	for _, id := range slices.Sorted(maps.Keys(solutions)) {
		digits := strconv.Itoa(int(id))
		sb.WriteString("SlotID: ")
		sb.WriteString(digits)
		sb.WriteString(strings.Repeat(" ", max(0, width+2-len(digits))))
		sb.WriteString("Annotation: ")
		sb.WriteString(string(solutions[id]))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Statistics renders stats as key,value lines
func Statistics(stats solver.Stats) string {
	return stats.String() + "\n"
}
