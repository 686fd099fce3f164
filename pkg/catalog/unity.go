// Package catalog enumerates Unity Catalog objects and reshapes them into the
// result envelope used for statement results.
package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

const (
	// TablesAPI is the Unity Catalog list-tables endpoint.
	TablesAPI = "/api/2.1/unity-catalog/tables"

	// DefaultPageSize is the max_results requested per page.
	DefaultPageSize = 100

	// maxPages bounds pagination against a service that never stops
	// returning a next_page_token.
	maxPages = 1000
)

// ObjectRecord is the read-only projection of one catalog object. Fields
// absent upstream are empty strings.
type ObjectRecord struct {
	Name        string `json:"name"`
	CatalogName string `json:"catalog_name"`
	SchemaName  string `json:"schema_name"`
	ObjectType  string `json:"table_type"`
	Comment     string `json:"comment"`
}

// Lister enumerates every object in a catalog schema.
type Lister interface {
	ListTables(ctx context.Context, catalogName, schemaName string) ([]ObjectRecord, error)
}

// Getter is the subset of the client shim UnityClient needs.
type Getter interface {
	Get(ctx context.Context, endpoint string, query url.Values, out any) error
}

// UnityClient lists tables and views through the Unity Catalog REST API.
type UnityClient struct {
	api      Getter
	pageSize int
}

// NewUnityClient creates a Unity Catalog lister. A pageSize of zero or less
// uses DefaultPageSize.
func NewUnityClient(api Getter, pageSize int) *UnityClient {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &UnityClient{api: api, pageSize: pageSize}
}

type listTablesResponse struct {
	Tables        []ObjectRecord `json:"tables"`
	NextPageToken string         `json:"next_page_token"`
}

// ListTables returns every object in catalogName.schemaName, following
// next_page_token until the listing is exhausted.
func (u *UnityClient) ListTables(ctx context.Context, catalogName, schemaName string) ([]ObjectRecord, error) {
	var (
		records []ObjectRecord
		token   string
	)
	for range maxPages {
		q := url.Values{}
		q.Set("catalog_name", catalogName)
		q.Set("schema_name", schemaName)
		q.Set("max_results", strconv.Itoa(u.pageSize))
		if token != "" {
			q.Set("page_token", token)
		}

		var page listTablesResponse
		if err := u.api.Get(ctx, TablesAPI, q, &page); err != nil {
			return nil, err
		}
		records = append(records, page.Tables...)

		if page.NextPageToken == "" {
			return records, nil
		}
		token = page.NextPageToken
	}
	return nil, fmt.Errorf("listing %s.%s: more than %d pages", catalogName, schemaName, maxPages)
}

// Verify interface compliance.
var _ Lister = (*UnityClient)(nil)
