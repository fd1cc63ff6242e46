package conflict

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/iudanet/fieldsync/internal/models"
)

// WriteText renders a conflict as a table. Conflicting fields are marked with "*".
func WriteText(w io.Writer, c models.Conflict) error {
	conflicting := make(map[string]struct{}, len(c.ConflictingFieldNames))
	for _, n := range c.ConflictingFieldNames {
		conflicting[n] = struct{}{}
	}

	fmt.Fprintf(w, "%s/%s\n", c.EntityType, c.EntityID)
	fmt.Fprintf(w, "  local:  %s\n", c.LocalTimestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "  remote: %s\n", c.RemoteTimestamp.UTC().Format(time.RFC3339))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  \tFIELD\tLOCAL\tREMOTE")
	for _, name := range names(c.LocalFields, c.RemoteFields) {
		mark := " "
		if _, ok := conflicting[name]; ok {
			mark = "*"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", mark, name, show(c.LocalFields, name), show(c.RemoteFields, name))
	}
	return tw.Flush()
}

func show(f models.Fields, name string) string {
	v, ok := f[name]
	if !ok {
		return "-"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "?"
	}
	return string(data)
}
