package taiga

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Resolver turns human identifiers (slugs, #refs, names) into the numeric
// IDs the Taiga API expects. Numeric input is always used unmodified.
type Resolver struct {
	client *Client
	me     func(ctx context.Context) (*User, error)

	mu         sync.Mutex
	attributes map[attrKey][]Attribute
}

type attrKey struct {
	kind    AttributeKind
	project int
}

// NewResolver creates a new resolver
func NewResolver(client *Client) *Resolver {
	return &Resolver{
		client:     client,
		me:         client.GetMe,
		attributes: make(map[attrKey][]Attribute),
	}
}

// parseID reports whether s is a plain numeric ID. Any number is passed on
// as is; the API rejects IDs that do not exist.
func parseID(s string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return id, true
}

// ParseRef parses a "#42" reference number
func ParseRef(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		return 0, false
	}
	ref, err := strconv.Atoi(s[1:])
	if err != nil || ref <= 0 {
		return 0, false
	}
	return ref, true
}

// ResolveProject resolves a project ID or slug to a project ID
func (r *Resolver) ResolveProject(ctx context.Context, idOrSlug string) (int, error) {
	if id, ok := parseID(idOrSlug); ok {
		return id, nil
	}

	slug := strings.TrimSpace(idOrSlug)
	if slug == "" {
		return 0, errors.New("project is required")
	}

	p, err := r.client.GetProjectBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, &ResolveError{Type: "project", Query: slug}
		}
		return 0, fmt.Errorf("failed to look up project %q: %w", slug, err)
	}
	return p.ID, nil
}

// ResolveItem resolves a work item ID or "#ref" within a project to an item ID
func (r *Resolver) ResolveItem(ctx context.Context, kind ItemKind, projectID int, idOrRef string) (int, error) {
	if id, ok := parseID(idOrRef); ok {
		return id, nil
	}

	ref, ok := ParseRef(idOrRef)
	if !ok {
		return 0, fmt.Errorf("invalid %s identifier %q: use a numeric ID or #ref", kind.Label(), idOrRef)
	}
	if projectID <= 0 {
		return 0, fmt.Errorf("a project is required to resolve %s reference %s", kind.Label(), idOrRef)
	}

	items, err := r.client.listRefs(ctx, kind, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s references: %w", kind.Label(), err)
	}
	for _, item := range items {
		if item.Ref == ref {
			return item.ID, nil
		}
	}
	return 0, &ResolveError{Type: kind.Label(), Query: idOrRef}
}

// ResolveUserStory resolves a user story ID or "#ref"
func (r *Resolver) ResolveUserStory(ctx context.Context, projectID int, idOrRef string) (int, error) {
	return r.ResolveItem(ctx, KindUserStory, projectID, idOrRef)
}

// ResolveTask resolves a task ID or "#ref"
func (r *Resolver) ResolveTask(ctx context.Context, projectID int, idOrRef string) (int, error) {
	return r.ResolveItem(ctx, KindTask, projectID, idOrRef)
}

// ResolveIssue resolves an issue ID or "#ref"
func (r *Resolver) ResolveIssue(ctx context.Context, projectID int, idOrRef string) (int, error) {
	return r.ResolveItem(ctx, KindIssue, projectID, idOrRef)
}

// ResolveEpic resolves an epic ID or "#ref"
func (r *Resolver) ResolveEpic(ctx context.Context, projectID int, idOrRef string) (int, error) {
	return r.ResolveItem(ctx, KindEpic, projectID, idOrRef)
}

// ResolveWikiPage resolves a wiki page ID or slug
func (r *Resolver) ResolveWikiPage(ctx context.Context, projectID int, idOrSlug string) (int, error) {
	if id, ok := parseID(idOrSlug); ok {
		return id, nil
	}
	if projectID <= 0 {
		return 0, fmt.Errorf("a project is required to resolve wiki page %q", idOrSlug)
	}
	page, err := r.client.GetWikiPageBySlug(ctx, projectID, strings.TrimSpace(idOrSlug))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, &ResolveError{Type: "wiki page", Query: idOrSlug}
		}
		return 0, fmt.Errorf("failed to look up wiki page %q: %w", idOrSlug, err)
	}
	return page.ID, nil
}

// ResolveMilestone resolves a milestone ID or exact name
func (r *Resolver) ResolveMilestone(ctx context.Context, projectID int, idOrName string) (int, error) {
	if id, ok := parseID(idOrName); ok {
		return id, nil
	}
	if projectID <= 0 {
		return 0, fmt.Errorf("a project is required to resolve milestone %q", idOrName)
	}
	milestones, err := r.client.ListMilestones(ctx, projectID, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to load milestones: %w", err)
	}
	query := strings.ToLower(strings.TrimSpace(idOrName))
	for _, m := range milestones {
		if strings.ToLower(m.Name) == query || m.Slug == query {
			return m.ID, nil
		}
	}
	return 0, &ResolveError{Type: "milestone", Query: idOrName}
}

// ResolveUser resolves a user ID, "me", username or full name among project members
func (r *Resolver) ResolveUser(ctx context.Context, projectID int, nameOrID string) (int, error) {
	if id, ok := parseID(nameOrID); ok {
		return id, nil
	}

	query := strings.ToLower(strings.TrimSpace(nameOrID))
	if query == "me" {
		u, err := r.me(ctx)
		if err != nil {
			return 0, err
		}
		return u.ID, nil
	}

	if projectID <= 0 {
		return 0, errors.New("cannot search users without project context, please use user ID")
	}

	users, err := r.client.ListProjectUsers(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to load project users: %w", err)
	}
	for _, u := range users {
		if strings.ToLower(u.Username) == query || strings.ToLower(u.DisplayName()) == query {
			return u.ID, nil
		}
	}
	return 0, &ResolveError{Type: "user", Query: nameOrID}
}

// ResolveAttribute resolves an ID or exact (case-insensitive) name of a
// lookup value such as a status, issue type, priority or severity.
func (r *Resolver) ResolveAttribute(ctx context.Context, kind AttributeKind, projectID int, nameOrID string) (int, error) {
	if id, ok := parseID(nameOrID); ok {
		return id, nil
	}

	attrs, err := r.Attributes(ctx, kind, projectID)
	if err != nil {
		return 0, err
	}

	query := strings.ToLower(strings.TrimSpace(nameOrID))
	for _, a := range attrs {
		if strings.ToLower(a.Name) == query || (a.Slug != "" && a.Slug == query) {
			return a.ID, nil
		}
	}

	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = a.Name
	}
	return 0, &ResolveError{
		Type:  kind.Label(),
		Query: nameOrID,
		Err:   fmt.Errorf("available: %s", strings.Join(names, ", ")),
	}
}

// ResolveStatus resolves a status name or ID for a work item kind
func (r *Resolver) ResolveStatus(ctx context.Context, kind ItemKind, projectID int, nameOrID string) (int, error) {
	return r.ResolveAttribute(ctx, StatusAttribute(kind), projectID, nameOrID)
}

// Attributes returns a project's lookup values, loading them once
func (r *Resolver) Attributes(ctx context.Context, kind AttributeKind, projectID int) ([]Attribute, error) {
	key := attrKey{kind: kind, project: projectID}

	r.mu.Lock()
	cached, ok := r.attributes[key]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	attrs, err := r.client.ListAttributes(ctx, kind, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", kind, err)
	}

	r.mu.Lock()
	r.attributes[key] = attrs
	r.mu.Unlock()
	return attrs, nil
}

// ResolveRole resolves a role ID, name or slug within a project
func (r *Resolver) ResolveRole(ctx context.Context, projectID int, nameOrID string) (int, error) {
	if id, ok := parseID(nameOrID); ok {
		return id, nil
	}
	roles, err := r.client.ListRoles(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to load roles: %w", err)
	}
	query := strings.ToLower(strings.TrimSpace(nameOrID))
	for _, role := range roles {
		if strings.ToLower(role.Name) == query || role.Slug == query {
			return role.ID, nil
		}
	}
	return 0, &ResolveError{Type: "role", Query: nameOrID}
}
