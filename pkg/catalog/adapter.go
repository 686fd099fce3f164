package catalog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/txn2/mcp-databricks/pkg/result"
)

// TypeView is the object type of a view.
const TypeView = "VIEW"

// faultPrefix starts the message of a failed listing.
const faultPrefix = "Error listing views from SDK: "

// Columns are the listing columns, in display order.
var Columns = []string{"Name", "Catalog", "Schema", "Type", "Comment"}

// Listing is the outcome of ListObjects: either an envelope or a fault
// detail. Exactly one is meaningful, as reported by Ok.
type Listing struct {
	envelope result.Envelope
	fault    string
	failed   bool
}

// Ok wraps a successful listing.
func Ok(e result.Envelope) Listing {
	return Listing{envelope: e}
}

// Fault wraps an enumeration failure.
func Fault(detail string) Listing {
	return Listing{fault: detail, failed: true}
}

// Ok reports whether the listing succeeded.
func (l Listing) Ok() bool {
	return !l.failed
}

// Detail returns the fault detail, or "" for a successful listing.
func (l Listing) Detail() string {
	return l.fault
}

// Envelope returns the listing as an envelope. A fault becomes the
// single-cell error envelope, so callers can always render the result.
func (l Listing) Envelope() result.Envelope {
	if l.failed {
		return result.ErrorEnvelope(faultPrefix + l.fault)
	}
	return l.envelope
}

// Adapter filters catalog objects by type and projects them into envelopes.
type Adapter struct {
	lister Lister
}

// NewAdapter creates an adapter over lister.
func NewAdapter(lister Lister) *Adapter {
	return &Adapter{lister: lister}
}

// ListObjects lists objects in catalogName.schemaName whose type matches
// typeFilter, ignoring case. It never returns an error; failures come back
// as a Fault listing.
func (a *Adapter) ListObjects(ctx context.Context, catalogName, schemaName, typeFilter string) Listing {
	records, err := a.lister.ListTables(ctx, catalogName, schemaName)
	if err != nil {
		slog.Debug("catalog listing failed",
			"catalog", catalogName,
			"schema", schemaName,
			"error", err,
		)
		return Fault(err.Error())
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		if !strings.EqualFold(r.ObjectType, typeFilter) {
			continue
		}
		rows = append(rows, []string{r.Name, r.CatalogName, r.SchemaName, r.ObjectType, r.Comment})
	}
	return Ok(result.New(Columns, rows))
}

// ListViews lists the views in catalogName.schemaName.
func (a *Adapter) ListViews(ctx context.Context, catalogName, schemaName string) Listing {
	return a.ListObjects(ctx, catalogName, schemaName, TypeView)
}
