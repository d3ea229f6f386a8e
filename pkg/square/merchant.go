package square

import (
	"context"
	"strings"

	sq "github.com/square/square-go-sdk"
	sqoption "github.com/square/square-go-sdk/option"

	pkgerrors "github.com/tavernbuddy/tavernbuddy-backend/pkg/errors"
)

const teamMemberPageSize = 200

// PrimaryLocationID returns the merchant's first location.
func (c *Client) PrimaryLocationID(ctx context.Context, accessToken string) (string, error) {
	c.log(ctx, "request", "list_locations", nil)

	resp, err := c.sdk.Locations.List(ctx, sqoption.WithToken(accessToken))
	if err != nil {
		c.log(ctx, "error", "list_locations", map[string]any{"error": err.Error()})
		return "", c.mapSquareError(err, "list_locations")
	}

	for _, loc := range resp.GetLocations() {
		if loc == nil {
			continue
		}
		if id := stringValue(loc.GetID()); id != "" {
			c.log(ctx, "response", "list_locations", map[string]any{
				"location_count": len(resp.GetLocations()),
				"location_id":    id,
			})
			return id, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeDataIntegrity, "square account has no locations")
}

// FetchStaff returns every active team member on the account.
func (c *Client) FetchStaff(ctx context.Context, accessToken string) ([]TeamMember, error) {
	members, err := Collect(Pages(ctx, func(ctx context.Context, cursor string) (Page[TeamMember], error) {
		return c.searchTeamMembers(ctx, accessToken, cursor)
	}))
	if err != nil {
		return nil, err
	}
	c.log(ctx, "response", "search_team_members", map[string]any{"team_member_count": len(members)})
	return members, nil
}

func (c *Client) searchTeamMembers(ctx context.Context, accessToken, cursor string) (Page[TeamMember], error) {
	req := &sq.SearchTeamMembersRequest{
		Query: &sq.SearchTeamMembersQuery{
			Filter: &sq.SearchTeamMembersFilter{
				Status: sq.TeamMemberStatusActive.Ptr(),
			},
		},
		Limit: sq.Int(teamMemberPageSize),
	}
	if cursor != "" {
		req.Cursor = sq.String(cursor)
	}

	resp, err := c.sdk.TeamMembers.Search(ctx, req, sqoption.WithToken(accessToken))
	if err != nil {
		c.log(ctx, "error", "search_team_members", map[string]any{"error": err.Error()})
		return Page[TeamMember]{}, c.mapSquareError(err, "search_team_members")
	}

	page := Page[TeamMember]{Cursor: strings.TrimSpace(stringValue(resp.GetCursor()))}
	for _, tm := range resp.GetTeamMembers() {
		if tm == nil || stringValue(tm.GetID()) == "" {
			continue
		}
		page.Items = append(page.Items, TeamMember{
			ID:         stringValue(tm.GetID()),
			GivenName:  stringValue(tm.GetGivenName()),
			FamilyName: stringValue(tm.GetFamilyName()),
		})
	}
	return page, nil
}
