package enrichment

import (
	"context"
	"encoding/json"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const rosterCacheKey = "go-autopilot::roster::v1"

// User is one platform account from the roster listing.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type RosterClient interface {
	ListUsers(ctx context.Context) ([]User, error)
}

const listUsersQuery = `query { users { id name } }`

type platformRoster struct {
	client GraphQLClient
}

// NewPlatformRoster lists users straight from the platform GraphQL API.
func NewPlatformRoster(client GraphQLClient) RosterClient {
	return &platformRoster{client: client}
}

func (r *platformRoster) ListUsers(ctx context.Context) ([]User, error) {
	if r == nil || r.client == nil {
		return nil, enrichmentFailed(nil, "enrichment: roster client is not configured", nil)
	}
	data, _, err := r.client.Query(ctx, listUsersQuery, nil)
	if err != nil {
		return nil, enrichmentFailed(err, "enrichment: list users", nil)
	}
	var decoded struct {
		Users []User `json:"users"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, enrichmentFailed(err, "enrichment: decode user roster", nil)
	}
	return decoded.Users, nil
}

// CachedRoster serves roster reads through the repository cache so a burst of
// JOB_* events produces a single list-users call per cache window.
type CachedRoster struct {
	base  RosterClient
	cache repositorycache.CacheService
}

func NewCachedRoster(base RosterClient, cache repositorycache.CacheService) *CachedRoster {
	return &CachedRoster{base: base, cache: cache}
}

func (r *CachedRoster) ListUsers(ctx context.Context) ([]User, error) {
	if r == nil || r.base == nil {
		return nil, enrichmentFailed(nil, "enrichment: cached roster is not configured", nil)
	}
	if r.cache == nil {
		return r.base.ListUsers(ctx)
	}
	users, err := repositorycache.GetOrFetch(ctx, r.cache, rosterCacheKey, func(ctx context.Context) ([]User, error) {
		return r.base.ListUsers(ctx)
	})
	if err != nil {
		return nil, err
	}
	return append([]User(nil), users...), nil
}

// ResolveCreator maps an event actor onto a roster entry, preferring the id
// match and falling back to a case-insensitive name match.
func ResolveCreator(roster []User, userID string, userName string) (string, bool) {
	userID = strings.TrimSpace(userID)
	userName = strings.TrimSpace(userName)
	if userID != "" {
		for _, user := range roster {
			if strings.TrimSpace(user.ID) == userID {
				if name := strings.TrimSpace(user.Name); name != "" {
					return name, true
				}
				return userID, true
			}
		}
	}
	if userName != "" {
		for _, user := range roster {
			if strings.EqualFold(strings.TrimSpace(user.Name), userName) {
				return strings.TrimSpace(user.Name), true
			}
		}
	}
	return "Unknown", false
}

var _ RosterClient = (*CachedRoster)(nil)
