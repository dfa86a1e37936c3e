package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/supabase-community/postgrest-go"
	supabase "github.com/supabase-community/supabase-go"
)

const (
	supabaseSchema      = "newslink"
	supabaseRosterPage  = 1000
	supabaseContactCols = "id,workspace_id,first_name,last_name,company_name"
	supabaseCompanyCols = "id,workspace_id,name"
	supabaseProjectCols = "id,workspace_id,title"
)

// SupabaseRoster reads the entity roster through the Supabase REST API, for
// deployments where the roster tables live in a Supabase project that the
// service can reach only with an API key.
type SupabaseRoster struct {
	client   *supabase.Client
	pageSize int
}

func NewSupabaseRoster(projectURL, apiKey string) (*SupabaseRoster, error) {
	projectURL = strings.TrimSpace(projectURL)
	apiKey = strings.TrimSpace(apiKey)
	if projectURL == "" || apiKey == "" {
		return nil, fmt.Errorf("supabase url and key are required")
	}

	client, err := supabase.NewClient(projectURL, apiKey, &supabase.ClientOptions{Schema: supabaseSchema})
	if err != nil {
		return nil, fmt.Errorf("initialize supabase client: %w", err)
	}
	return &SupabaseRoster{client: client, pageSize: supabaseRosterPage}, nil
}

// LoadRoster fetches all three tables page by page. Any failure discards the
// partial result.
func (r *SupabaseRoster) LoadRoster(ctx context.Context) (Roster, error) {
	if r == nil || r.client == nil {
		return Roster{}, fmt.Errorf("supabase roster is not initialized")
	}

	var (
		roster Roster
		err    error
	)
	if roster.Contacts, err = fetchAllRows[Contact](ctx, r, "contacts", supabaseContactCols); err != nil {
		return Roster{}, err
	}
	if roster.Companies, err = fetchAllRows[Company](ctx, r, "companies", supabaseCompanyCols); err != nil {
		return Roster{}, err
	}
	if roster.Projects, err = fetchAllRows[Project](ctx, r, "projects", supabaseProjectCols); err != nil {
		return Roster{}, err
	}
	return roster, nil
}

func fetchAllRows[T any](ctx context.Context, r *SupabaseRoster, table, columns string) ([]T, error) {
	var all []T
	for from := 0; ; from += r.pageSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("load %s: %w", table, err)
		}

		var page []T
		_, err := r.client.From(table).
			Select(columns, "", false).
			Order("id", &postgrest.OrderOpts{Ascending: true}).
			Range(from, from+r.pageSize-1, "").
			ExecuteTo(&page)
		if err != nil {
			return nil, fmt.Errorf("load %s from supabase: %w", table, err)
		}

		all = append(all, page...)
		if len(page) < r.pageSize {
			return all, nil
		}
	}
}
